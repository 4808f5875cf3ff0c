package sheets

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const (
	BackendGoogle = "google"
	BackendXlsx   = "xlsx"
)

type Config struct {
	Backend         string `envconfig:"TIDEPOOL_INTAKE_SHEETS_BACKEND" default:"google"`
	SpreadsheetId   string `envconfig:"TIDEPOOL_INTAKE_SPREADSHEET_ID"`
	SheetName       string `envconfig:"TIDEPOOL_INTAKE_SHEET_NAME" default:"Sheet1"`
	CredentialsFile string `envconfig:"TIDEPOOL_INTAKE_CREDENTIALS_FILE" default:"service-account-file.json"`
	WorkbookPath    string `envconfig:"TIDEPOOL_INTAKE_WORKBOOK_PATH" default:"intake.xlsx"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendGoogle && cfg.SpreadsheetId == "" {
		return nil, fmt.Errorf("TIDEPOOL_INTAKE_SPREADSHEET_ID is required for the %s backend", BackendGoogle)
	}
	return cfg, nil
}

// Update describes the outcome of an append as reported by the backend
type Update struct {
	SpreadsheetId  string `json:"spreadsheetId"`
	TableRange     string `json:"tableRange,omitempty"`
	UpdatedRange   string `json:"updatedRange"`
	UpdatedRows    int64  `json:"updatedRows"`
	UpdatedColumns int64  `json:"updatedColumns"`
	UpdatedCells   int64  `json:"updatedCells"`
}

//go:generate mockgen --build_flags=--mod=mod -source=./gateway.go -destination=./test/mock_gateway.go -package test MockGateway

// Gateway is the remote spreadsheet holding the intake rows. The first row
// of the sheet is reserved for headers.
type Gateway interface {
	ReadHeader(ctx context.Context) ([]string, error)
	WriteHeader(ctx context.Context, headers []string) error
	AppendRow(ctx context.Context, row []interface{}) (*Update, error)
}

func NewGateway(ctx context.Context, config *Config, logger *zap.SugaredLogger) (Gateway, error) {
	switch config.Backend {
	case BackendGoogle:
		return NewGoogleGateway(ctx, config, logger)
	case BackendXlsx:
		return NewWorkbookGateway(config, logger)
	default:
		return nil, fmt.Errorf("unsupported sheets backend %q", config.Backend)
	}
}

// NewGatewayFromConfig is the constructor used by the dependency graph
func NewGatewayFromConfig(config *Config, logger *zap.SugaredLogger) (Gateway, error) {
	return NewGateway(context.Background(), config, logger)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
