package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	errs "github.com/tidepool-org/intake/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	valueInputOptionRaw = "RAW"
	insertDataOption    = "INSERT_ROWS"
)

type googleGateway struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetId string
	sheetName     string
	logger        *zap.SugaredLogger
}

var _ Gateway = &googleGateway{}

// NewGoogleGateway creates a gateway authenticated with the service account
// credentials file. Additional client options replace the default credentials.
func NewGoogleGateway(ctx context.Context, config *Config, logger *zap.SugaredLogger, opts ...option.ClientOption) (Gateway, error) {
	if len(opts) == 0 {
		data, err := os.ReadFile(config.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &googleGateway{
		values:        svc.Spreadsheets.Values,
		spreadsheetId: config.SpreadsheetId,
		sheetName:     config.SheetName,
		logger:        logger,
	}, nil
}

func (g *googleGateway) ReadHeader(ctx context.Context) ([]string, error) {
	rng := g.headerRange()
	resp, err := g.values.Get(g.spreadsheetId, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read %s: %w", errs.Upstream, rng, err)
	}
	if len(resp.Values) == 0 {
		return []string{}, nil
	}
	return toStrings(resp.Values[0]), nil
}

func (g *googleGateway) WriteHeader(ctx context.Context, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}

	rng := g.anchorRange()
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}
	_, err := g.values.Update(g.spreadsheetId, rng, vr).
		ValueInputOption(valueInputOptionRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: unable to update %s: %w", errs.Upstream, rng, err)
	}

	g.logger.Infow("updated header row", "spreadsheetId", g.spreadsheetId, "sheet", g.sheetName, "columns", len(headers))
	return nil
}

func (g *googleGateway) AppendRow(ctx context.Context, row []interface{}) (*Update, error) {
	rng := g.anchorRange()
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}
	resp, err := g.values.Append(g.spreadsheetId, rng, vr).
		ValueInputOption(valueInputOptionRaw).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to append to %s: %w", errs.Upstream, rng, err)
	}

	update := &Update{
		SpreadsheetId: resp.SpreadsheetId,
		TableRange:    resp.TableRange,
	}
	if resp.Updates != nil {
		update.UpdatedRange = resp.Updates.UpdatedRange
		update.UpdatedRows = resp.Updates.UpdatedRows
		update.UpdatedColumns = resp.Updates.UpdatedColumns
		update.UpdatedCells = resp.Updates.UpdatedCells
	}
	return update, nil
}

func (g *googleGateway) headerRange() string {
	return fmt.Sprintf("%s!1:1", quoteSheetName(g.sheetName))
}

func (g *googleGateway) anchorRange() string {
	return fmt.Sprintf("%s!A1", quoteSheetName(g.sheetName))
}

// quoteSheetName quotes a sheet name for A1 notation, e.g. Bob's Sheet becomes 'Bob''s Sheet'
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
