// Package sheets mirrors delivery records into a shared Google Spreadsheet.
// The sync is one-way and best effort; the ledger never reads the sheet back.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/delivery-ledger/internal/config"
	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/query"
)

// GoogleSheetSink appends delivery rows using the official Google Sheets API.
type GoogleSheetSink struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetRange    string
	logger        *zap.Logger
}

// NewGoogleSheetSink builds a Google Sheets backed sink instance.
func NewGoogleSheetSink(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetSink{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetRange:    cfg.SheetRange,
		logger:        logger,
	}, nil
}

// SyncDelivery appends one row describing the record's current state.
func (s *GoogleSheetSink) SyncDelivery(ctx context.Context, d models.Delivery) error {
	receivedAt := ""
	if d.ReceivedAt != nil {
		receivedAt = d.ReceivedAt.Format(time.RFC3339)
	}

	row := []interface{}{
		d.ID,
		string(d.Status),
		d.FromBranch,
		d.ToBranch,
		query.ItemSummary(d.Items),
		receivedAt,
		d.ReceivedBy,
		d.Note,
		d.CreatedAt.Format(time.RFC3339),
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	call := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", s.sheetRange, err)
	}

	s.logger.Debug("delivery row appended to sheet",
		zap.String("id", d.ID), zap.String("range", s.sheetRange))
	return nil
}
