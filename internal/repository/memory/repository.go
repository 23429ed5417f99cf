// Package memory provides the flat-collection delivery store. All records
// live in process memory behind a RWMutex; when constructed with a path the
// store additionally snapshots the full state to a JSON file after every
// mutation, which is the persistence model of the original logbook tool.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/idgen"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// snapshot is the on-disk JSON layout. Deliveries and items are kept as two
// flat collections; nextItemID keeps item ids monotonic across deletions.
type snapshot struct {
	Deliveries []models.Delivery `json:"deliveries"`
	Items      []models.LineItem `json:"deliveryItems"`
	NextItemID int64             `json:"nextItemId"`
	// LastIssued remembers the highest id handed out per day prefix, so a
	// deleted record's id is never reissued on the same day.
	LastIssued map[string]string `json:"lastIssuedIds"`
}

// Store is an in-memory, optionally file-backed delivery store.
type Store struct {
	mu         sync.RWMutex
	deliveries []models.Delivery // insertion order, items stripped
	items      []models.LineItem
	nextItemID int64
	lastIssued map[string]string
	path       string
	logger     *zap.Logger
	now        func() time.Time
}

// NewStore builds a store. An empty path keeps everything in memory only;
// otherwise the file is loaded if present and rewritten after each mutation.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		nextItemID: 1,
		lastIssued: map[string]string{},
		path:       path,
		logger:     logger,
		now:        time.Now,
	}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		if err := s.persist(s.stageLocked()); err != nil {
			return nil, err
		}
		logger.Info("created new data file", zap.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	default:
		var snap snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("decode data file %s: %w", path, err)
		}
		s.deliveries = snap.Deliveries
		s.items = snap.Items
		s.nextItemID = snap.NextItemID
		if s.nextItemID < 1 {
			s.nextItemID = 1
		}
		if snap.LastIssued != nil {
			s.lastIssued = snap.LastIssued
		}
		logger.Info("loaded existing data file",
			zap.String("path", path), zap.Int("deliveries", len(snap.Deliveries)))
	}
	return s, nil
}

// Create assigns the next day-scoped slip id under the write lock, so two
// concurrent creates can never compute the same id.
func (s *Store) Create(_ context.Context, d models.Delivery) (models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	prefix := idgen.Prefix(now)
	id, err := idgen.Next(prefix, s.lastIDForLocked(prefix))
	if err != nil {
		return models.Delivery{}, err
	}

	d.ID = id
	d.Status = models.StatusSent
	d.CreatedAt = now
	d.ReceivedAt = nil
	d.ReceivedBy = ""

	items := d.Items
	d.Items = nil

	st := s.stageLocked()
	st.lastIssued[prefix] = id
	st.deliveries = append(st.deliveries, d)
	for i := range items {
		items[i].ID = st.nextItemID
		items[i].DeliveryID = id
		st.nextItemID++
		st.items = append(st.items, items[i])
	}

	if err := s.commitLocked(st); err != nil {
		return models.Delivery{}, err
	}
	d.Items = items
	d.ItemsSummary = query.ItemSummary(items)
	return d, nil
}

func (s *Store) GetByID(_ context.Context, id string) (models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.deliveries {
		if d.ID == id {
			d.Items = s.itemsForLocked(id)
			d.ItemsSummary = query.ItemSummary(d.Items)
			return d, nil
		}
	}
	return models.Delivery{}, repository.ErrNotFound
}

func (s *Store) List(_ context.Context, c query.Criteria) ([]models.Delivery, error) {
	s.mu.RLock()
	joined := make([]models.Delivery, len(s.deliveries))
	for i, d := range s.deliveries {
		d.Items = s.itemsForLocked(d.ID)
		joined[i] = d
	}
	s.mu.RUnlock()

	return query.Apply(joined, c), nil
}

func (s *Store) MarkReceived(_ context.Context, id, receivedBy string) (models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stageLocked()
	for i := range st.deliveries {
		if st.deliveries[i].ID != id {
			continue
		}
		if st.deliveries[i].Status == models.StatusReceived {
			return models.Delivery{}, repository.ErrInvalidTransition
		}
		now := s.now()
		st.deliveries[i].Status = models.StatusReceived
		st.deliveries[i].ReceivedAt = &now
		st.deliveries[i].ReceivedBy = receivedBy
		if err := s.commitLocked(st); err != nil {
			return models.Delivery{}, err
		}
		d := st.deliveries[i]
		d.Items = s.itemsForLocked(id)
		d.ItemsSummary = query.ItemSummary(d.Items)
		return d, nil
	}
	return models.Delivery{}, repository.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stageLocked()
	idx := -1
	for i := range st.deliveries {
		if st.deliveries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return repository.ErrNotFound
	}

	st.deliveries = append(st.deliveries[:idx], st.deliveries[idx+1:]...)
	kept := st.items[:0]
	for _, item := range st.items {
		if item.DeliveryID != id {
			kept = append(kept, item)
		}
	}
	st.items = kept

	return s.commitLocked(st)
}

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) lastIDForLocked(prefix string) string {
	last := s.lastIssued[prefix]
	for _, d := range s.deliveries {
		if idgen.HasPrefix(d.ID, prefix) && d.ID > last {
			last = d.ID
		}
	}
	return last
}

func (s *Store) itemsForLocked(deliveryID string) []models.LineItem {
	var out []models.LineItem
	for _, item := range s.items {
		if item.DeliveryID == deliveryID {
			out = append(out, item)
		}
	}
	return out
}

// staged is a candidate next state, copied from the live collections.
// Mutations are applied to it, persisted, and only then committed, so a
// failed snapshot write leaves the in-memory state exactly as it was.
type staged struct {
	deliveries []models.Delivery
	items      []models.LineItem
	nextItemID int64
	lastIssued map[string]string
}

func (s *Store) stageLocked() staged {
	st := staged{
		deliveries: append([]models.Delivery(nil), s.deliveries...),
		items:      append([]models.LineItem(nil), s.items...),
		nextItemID: s.nextItemID,
		lastIssued: make(map[string]string, len(s.lastIssued)),
	}
	for prefix, id := range s.lastIssued {
		st.lastIssued[prefix] = id
	}
	return st
}

func (s *Store) commitLocked(st staged) error {
	if err := s.persist(st); err != nil {
		return err
	}
	s.deliveries = st.deliveries
	s.items = st.items
	s.nextItemID = st.nextItemID
	s.lastIssued = st.lastIssued
	return nil
}

func (s *Store) persist(st staged) error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{
		Deliveries: st.deliveries,
		Items:      st.items,
		NextItemID: st.nextItemID,
		LastIssued: st.lastIssued,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o640); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}
