package delivery

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/query"
)

// csvHeader matches the column order expected by the office spreadsheet
// templates.
var csvHeader = []string{
	"id", "status", "fromSite", "toSite", "items",
	"receivedCheck", "receivedAt", "receiverName", "note", "createdAt",
}

// utf8BOM keeps Excel from misreading the Japanese item names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportCSV renders every record, newest first, as a UTF-8 CSV with BOM.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	records, err := s.store.List(ctx, query.Criteria{})
	if err != nil {
		return nil, fmt.Errorf("load records for export: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, d := range records {
		receivedCheck := "いいえ"
		receivedAt := ""
		if d.Status == models.StatusReceived {
			receivedCheck = "はい"
		}
		if d.ReceivedAt != nil {
			receivedAt = d.ReceivedAt.Format(time.RFC3339)
		}

		row := []string{
			d.ID,
			string(d.Status),
			d.FromBranch,
			d.ToBranch,
			d.ItemsSummary,
			receivedCheck,
			receivedAt,
			d.ReceivedBy,
			d.Note,
			d.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row for %s: %w", d.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
