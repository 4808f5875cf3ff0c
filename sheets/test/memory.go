package test

import (
	"context"
	"fmt"
	"sync"

	errs "github.com/tidepool-org/intake/errors"
	"github.com/tidepool-org/intake/sheets"
)

// MemoryGateway keeps the sheet in memory. Errors can be injected per operation.
type MemoryGateway struct {
	mu sync.Mutex

	Header []string
	Rows   [][]interface{}

	ReadErr   error
	WriteErr  error
	AppendErr error

	HeaderWrites int
}

var _ sheets.Gateway = &MemoryGateway{}

func NewMemoryGateway(header ...string) *MemoryGateway {
	return &MemoryGateway{Header: header}
}

func (m *MemoryGateway) ReadHeader(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, fmt.Errorf("%w: %w", errs.Upstream, m.ReadErr)
	}
	return append([]string{}, m.Header...), nil
}

func (m *MemoryGateway) WriteHeader(ctx context.Context, headers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return fmt.Errorf("%w: %w", errs.Upstream, m.WriteErr)
	}
	m.Header = append([]string{}, headers...)
	m.HeaderWrites++
	return nil
}

func (m *MemoryGateway) AppendRow(ctx context.Context, row []interface{}) (*sheets.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return nil, fmt.Errorf("%w: %w", errs.Upstream, m.AppendErr)
	}
	m.Rows = append(m.Rows, append([]interface{}{}, row...))
	rowNumber := len(m.Rows) + 1
	return &sheets.Update{
		SpreadsheetId:  "memory",
		UpdatedRange:   fmt.Sprintf("Sheet1!A%d", rowNumber),
		UpdatedRows:    1,
		UpdatedColumns: int64(len(row)),
		UpdatedCells:   int64(len(row)),
	}, nil
}

// Cell returns the value of the last appended row in the column with the given header
func (m *MemoryGateway) Cell(header string) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Rows) == 0 {
		return nil
	}
	row := m.Rows[len(m.Rows)-1]
	for i, h := range m.Header {
		if h == header && i < len(row) {
			return row[i]
		}
	}
	return nil
}
