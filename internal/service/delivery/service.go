// Package delivery implements the record lifecycle: validated creation,
// the single sent→received transition, deletion, and best-effort fan-out of
// lifecycle events to the spreadsheet mirror and the webhook endpoint.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
	"github.com/mamadbah2/delivery-ledger/pkg/clients/webhook"
)

// ErrValidation indicates a create request that must be rejected before it
// reaches the store.
var ErrValidation = errors.New("invalid delivery request")

const syncTimeout = 30 * time.Second

// Ledger describes the operations the HTTP layer can perform.
type Ledger interface {
	CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (models.Delivery, error)
	GetDelivery(ctx context.Context, id string) (models.Delivery, error)
	ListDeliveries(ctx context.Context, c query.Criteria) ([]models.Delivery, error)
	ReceiveDelivery(ctx context.Context, id, receivedBy string) (models.Delivery, error)
	RemoveDelivery(ctx context.Context, id string) error
	ExportCSV(ctx context.Context) ([]byte, error)
}

// SheetSink mirrors a record's current state to the external spreadsheet.
type SheetSink interface {
	SyncDelivery(ctx context.Context, d models.Delivery) error
}

// Service is the production Ledger implementation. Both external
// collaborators are optional; a nil sink or notifier is simply skipped.
type Service struct {
	store    repository.Store
	sheet    SheetSink
	notifier webhook.Client
	logger   *zap.Logger

	// syncWG lets tests wait for the detached sync goroutines.
	syncWG sync.WaitGroup
}

// NewService wires a new lifecycle service instance.
func NewService(store repository.Store, sheet SheetSink, notifier webhook.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		sheet:    sheet,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateDelivery validates the request, persists the record and forwards it
// to the external sinks without awaiting them. A sink failure never fails or
// rolls back the create.
func (s *Service) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (models.Delivery, error) {
	if err := validateCreate(req); err != nil {
		return models.Delivery{}, err
	}

	items := make([]models.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.LineItem{Name: strings.TrimSpace(item.Name), Quantity: item.Quantity}
	}

	created, err := s.store.Create(ctx, models.Delivery{
		Date:       req.Date,
		FromBranch: strings.TrimSpace(req.FromBranch),
		ToBranch:   strings.TrimSpace(req.ToBranch),
		NoteType:   req.Type,
		Note:       req.Note,
		Items:      items,
	})
	if err != nil {
		return models.Delivery{}, err
	}

	s.logger.Info("delivery created",
		zap.String("id", created.ID),
		zap.String("from", created.FromBranch),
		zap.String("to", created.ToBranch),
		zap.Int("items", len(created.Items)))

	s.syncDetached(created, webhook.EventCreated)
	return created, nil
}

func (s *Service) GetDelivery(ctx context.Context, id string) (models.Delivery, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) ListDeliveries(ctx context.Context, c query.Criteria) ([]models.Delivery, error) {
	return s.store.List(ctx, c)
}

// ReceiveDelivery performs the sent→received transition. Receiving an
// already-received record fails with repository.ErrInvalidTransition and
// leaves the original reception untouched.
func (s *Service) ReceiveDelivery(ctx context.Context, id, receivedBy string) (models.Delivery, error) {
	updated, err := s.store.MarkReceived(ctx, id, strings.TrimSpace(receivedBy))
	if err != nil {
		return models.Delivery{}, err
	}

	s.logger.Info("delivery received",
		zap.String("id", updated.ID), zap.String("received_by", updated.ReceivedBy))

	s.syncDetached(updated, webhook.EventReceived)
	return updated, nil
}

// RemoveDelivery deletes the record and all its line items.
func (s *Service) RemoveDelivery(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("delivery deleted", zap.String("id", id))
	return nil
}

// syncDetached forwards the record to the external sinks on a fresh context.
// The request that triggered it has already been answered by the time these
// calls run, so failures are logged and dropped.
func (s *Service) syncDetached(d models.Delivery, event string) {
	if s.sheet == nil && s.notifier == nil {
		return
	}

	s.syncWG.Add(1)
	go func() {
		defer s.syncWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		if s.sheet != nil {
			if err := s.sheet.SyncDelivery(ctx, d); err != nil {
				s.logger.Error("sheet sync failed",
					zap.String("id", d.ID), zap.Error(err))
			}
		}
		if s.notifier != nil {
			if err := s.notifier.SendEvent(ctx, event, d); err != nil {
				s.logger.Error("webhook notification failed",
					zap.String("id", d.ID), zap.String("event", event), zap.Error(err))
			}
		}
	}()
}

func validateCreate(req models.CreateDeliveryRequest) error {
	if strings.TrimSpace(req.Date) == "" {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if strings.TrimSpace(req.FromBranch) == "" {
		return fmt.Errorf("%w: fromBranch is required", ErrValidation)
	}
	if strings.TrimSpace(req.ToBranch) == "" {
		return fmt.Errorf("%w: toBranch is required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrValidation, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity must be positive", ErrValidation, item.Name)
		}
	}
	return nil
}
