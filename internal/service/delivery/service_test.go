package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
	"github.com/mamadbah2/delivery-ledger/pkg/clients/webhook"
)

// MockStore is a testify mock of the repository.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, d models.Delivery) (models.Delivery, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(models.Delivery), args.Error(1)
}

func (m *MockStore) GetByID(ctx context.Context, id string) (models.Delivery, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Delivery), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, c query.Criteria) ([]models.Delivery, error) {
	args := m.Called(ctx, c)
	return args.Get(0).([]models.Delivery), args.Error(1)
}

func (m *MockStore) MarkReceived(ctx context.Context, id, receivedBy string) (models.Delivery, error) {
	args := m.Called(ctx, id, receivedBy)
	return args.Get(0).(models.Delivery), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingSink captures sheet syncs and can be told to fail.
type recordingSink struct {
	synced chan models.Delivery
	fail   bool
}

func (s *recordingSink) SyncDelivery(_ context.Context, d models.Delivery) error {
	if s.fail {
		return errors.New("sheet unavailable")
	}
	s.synced <- d
	return nil
}

// recordingNotifier captures webhook events.
type recordingNotifier struct {
	events chan string
}

func (n *recordingNotifier) SendEvent(_ context.Context, event string, _ models.Delivery) error {
	n.events <- event
	return nil
}

func validRequest() models.CreateDeliveryRequest {
	return models.CreateDeliveryRequest{
		Date:       "2025-06-01",
		FromBranch: "法人本部",
		ToBranch:   "Life Up 可児",
		Type:       "消耗品",
		Items:      []models.CreateItemRequest{{Name: "手袋", Quantity: 5}},
	}
}

func storedDelivery() models.Delivery {
	return models.Delivery{
		ID:         "20250601-001",
		Date:       "2025-06-01",
		FromBranch: "法人本部",
		ToBranch:   "Life Up 可児",
		Status:     models.StatusSent,
		CreatedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Items:      []models.LineItem{{ID: 1, DeliveryID: "20250601-001", Name: "手袋", Quantity: 5}},
	}
}

func TestCreateDelivery(t *testing.T) {
	store := new(MockStore)
	store.On("Create", mock.Anything, mock.AnythingOfType("models.Delivery")).
		Return(storedDelivery(), nil)

	svc := NewService(store, nil, nil, nil)

	created, err := svc.CreateDelivery(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "20250601-001", created.ID)

	store.AssertExpectations(t)
}

func TestCreateDeliveryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateDeliveryRequest)
	}{
		{"missing date", func(r *models.CreateDeliveryRequest) { r.Date = "" }},
		{"missing fromBranch", func(r *models.CreateDeliveryRequest) { r.FromBranch = "  " }},
		{"missing toBranch", func(r *models.CreateDeliveryRequest) { r.ToBranch = "" }},
		{"no items", func(r *models.CreateDeliveryRequest) { r.Items = nil }},
		{"blank item name", func(r *models.CreateDeliveryRequest) { r.Items[0].Name = " " }},
		{"zero quantity", func(r *models.CreateDeliveryRequest) { r.Items[0].Quantity = 0 }},
		{"negative quantity", func(r *models.CreateDeliveryRequest) { r.Items[0].Quantity = -3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			svc := NewService(store, nil, nil, nil)

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateDelivery(context.Background(), req)
			require.ErrorIs(t, err, ErrValidation)
			store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateDeliveryFansOutToSinks(t *testing.T) {
	store := new(MockStore)
	store.On("Create", mock.Anything, mock.Anything).Return(storedDelivery(), nil)

	sink := &recordingSink{synced: make(chan models.Delivery, 1)}
	notifier := &recordingNotifier{events: make(chan string, 1)}
	svc := NewService(store, sink, notifier, nil)

	_, err := svc.CreateDelivery(context.Background(), validRequest())
	require.NoError(t, err)
	svc.syncWG.Wait()

	require.Equal(t, "20250601-001", (<-sink.synced).ID)
	require.Equal(t, webhook.EventCreated, <-notifier.events)
}

func TestCreateDeliverySucceedsWhenSinkFails(t *testing.T) {
	store := new(MockStore)
	store.On("Create", mock.Anything, mock.Anything).Return(storedDelivery(), nil)

	notifier := &recordingNotifier{events: make(chan string, 1)}
	svc := NewService(store, &recordingSink{fail: true}, notifier, nil)

	created, err := svc.CreateDelivery(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "20250601-001", created.ID)
	svc.syncWG.Wait()

	// The notifier still runs after the sheet sync fails.
	require.Equal(t, webhook.EventCreated, <-notifier.events)
}

func TestReceiveDelivery(t *testing.T) {
	received := storedDelivery()
	received.Status = models.StatusReceived
	received.ReceivedBy = "田中"

	store := new(MockStore)
	store.On("MarkReceived", mock.Anything, "20250601-001", "田中").Return(received, nil)

	notifier := &recordingNotifier{events: make(chan string, 1)}
	svc := NewService(store, nil, notifier, nil)

	updated, err := svc.ReceiveDelivery(context.Background(), "20250601-001", "田中")
	require.NoError(t, err)
	require.Equal(t, models.StatusReceived, updated.Status)
	svc.syncWG.Wait()
	require.Equal(t, webhook.EventReceived, <-notifier.events)

	store.AssertExpectations(t)
}

func TestReceiveDeliveryPropagatesTransitionError(t *testing.T) {
	store := new(MockStore)
	store.On("MarkReceived", mock.Anything, "20250601-001", "佐藤").
		Return(models.Delivery{}, repository.ErrInvalidTransition)

	notifier := &recordingNotifier{events: make(chan string, 1)}
	svc := NewService(store, nil, notifier, nil)

	_, err := svc.ReceiveDelivery(context.Background(), "20250601-001", "佐藤")
	require.ErrorIs(t, err, repository.ErrInvalidTransition)
	svc.syncWG.Wait()
	require.Empty(t, notifier.events)
}

func TestRemoveDelivery(t *testing.T) {
	store := new(MockStore)
	store.On("Delete", mock.Anything, "20250601-001").Return(nil)

	svc := NewService(store, nil, nil, nil)
	require.NoError(t, svc.RemoveDelivery(context.Background(), "20250601-001"))
	store.AssertExpectations(t)
}

func TestRemoveDeliveryNotFound(t *testing.T) {
	store := new(MockStore)
	store.On("Delete", mock.Anything, "missing").Return(repository.ErrNotFound)

	svc := NewService(store, nil, nil, nil)
	require.ErrorIs(t, svc.RemoveDelivery(context.Background(), "missing"), repository.ErrNotFound)
}
