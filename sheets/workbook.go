package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/tealeg/xlsx/v3"
	errs "github.com/tidepool-org/intake/errors"
	"go.uber.org/zap"
)

// workbookGateway stores the intake sheet in a local xlsx workbook. The
// workbook is opened for every operation so that changes made by other
// tools are picked up.
type workbookGateway struct {
	path      string
	sheetName string
	logger    *zap.SugaredLogger
	mu        *sync.Mutex
}

var _ Gateway = &workbookGateway{}

func NewWorkbookGateway(config *Config, logger *zap.SugaredLogger) (Gateway, error) {
	if config.WorkbookPath == "" {
		return nil, fmt.Errorf("workbook path is required")
	}
	return &workbookGateway{
		path:      config.WorkbookPath,
		sheetName: config.SheetName,
		logger:    logger,
		mu:        &sync.Mutex{},
	}, nil
}

func (w *workbookGateway) ReadHeader(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.open()
	if err != nil {
		return nil, err
	}
	sheet, ok := file.Sheet[w.sheetName]
	if !ok || sheet.MaxRow == 0 {
		return []string{}, nil
	}

	row, err := sheet.Row(0)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read header row: %w", errs.Upstream, err)
	}
	headers := make([]string, 0, sheet.MaxCol)
	for col := 0; col < sheet.MaxCol; col++ {
		headers = append(headers, row.GetCell(col).Value)
	}
	return headers, nil
}

func (w *workbookGateway) WriteHeader(ctx context.Context, headers []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, sheet, err := w.openSheet()
	if err != nil {
		return err
	}
	for col, header := range headers {
		cell, err := sheet.Cell(0, col)
		if err != nil {
			return fmt.Errorf("%w: unable to write header: %w", errs.Upstream, err)
		}
		cell.SetString(header)
	}
	if err := w.save(file); err != nil {
		return err
	}

	w.logger.Infow("updated header row", "workbook", w.path, "sheet", w.sheetName, "columns", len(headers))
	return nil
}

func (w *workbookGateway) AppendRow(ctx context.Context, values []interface{}) (*Update, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, sheet, err := w.openSheet()
	if err != nil {
		return nil, err
	}

	row := sheet.AddRow()
	for _, value := range values {
		setCellValue(row.AddCell(), value)
	}
	rowNumber := sheet.MaxRow
	if err := w.save(file); err != nil {
		return nil, err
	}

	return &Update{
		SpreadsheetId:  w.path,
		UpdatedRange:   fmt.Sprintf("%s!A%d:%s%d", w.sheetName, rowNumber, columnName(len(values)), rowNumber),
		UpdatedRows:    1,
		UpdatedColumns: int64(len(values)),
		UpdatedCells:   int64(len(values)),
	}, nil
}

func (w *workbookGateway) open() (*xlsx.File, error) {
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		return xlsx.NewFile(), nil
	}
	file, err := xlsx.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open workbook: %w", errs.Upstream, err)
	}
	return file, nil
}

func (w *workbookGateway) openSheet() (*xlsx.File, *xlsx.Sheet, error) {
	file, err := w.open()
	if err != nil {
		return nil, nil, err
	}
	if sheet, ok := file.Sheet[w.sheetName]; ok {
		return file, sheet, nil
	}
	sheet, err := file.AddSheet(w.sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unable to add sheet: %w", errs.Upstream, err)
	}
	return file, sheet, nil
}

func (w *workbookGateway) save(file *xlsx.File) error {
	tmp := w.path + ".tmp"
	if err := file.Save(tmp); err != nil {
		return fmt.Errorf("%w: unable to save workbook: %w", errs.Upstream, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("%w: unable to save workbook: %w", errs.Upstream, err)
	}
	return nil
}

func setCellValue(cell *xlsx.Cell, value interface{}) {
	switch v := value.(type) {
	case nil:
		cell.SetString("")
	case string:
		cell.SetString(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			cell.SetInt64(i)
		} else if f, err := v.Float64(); err == nil {
			cell.SetFloat(f)
		} else {
			cell.SetString(v.String())
		}
	case bool:
		cell.SetBool(v)
	default:
		cell.SetValue(v)
	}
}

// columnName converts a 1-based column index to its letter name, e.g. 28 is AB
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
