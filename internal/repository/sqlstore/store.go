// Package sqlstore persists deliveries in a relational database. Both SQLite
// (pure Go driver) and Postgres are supported behind the same store; the
// dialect owns placeholder rewriting and schema differences, callers never
// pick placeholder syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/idgen"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// createRetries bounds how often Create recomputes the slip id after losing
// a same-day insert race on the primary key.
const createRetries = 5

const timeLayout = time.RFC3339Nano

// Store is a database/sql backed delivery store.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	now     func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		path = "deliveries.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	s, err := open(ctx, sqliteDialect{}, path, logger)
	if err != nil {
		return nil, err
	}
	// modernc's :memory: and file handles are per-connection; a single
	// connection also gives SQLite its one-writer discipline.
	s.db.SetMaxOpenConns(1)
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return s, s.migrate(ctx)
}

// NewPostgresStore connects to Postgres using the provided DSN.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	s, err := open(ctx, postgresDialect{}, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, s.migrate(ctx)
}

func open(_ context.Context, d dialect, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	return &Store{db: db, dialect: d, logger: logger, now: time.Now}, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Create runs id selection and the inserts inside one transaction. If a
// concurrent create on the same day wins the race, the primary key conflict
// is detected and the whole attempt retried with the next candidate id.
func (s *Store) Create(ctx context.Context, d models.Delivery) (models.Delivery, error) {
	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		created, err := s.tryCreate(ctx, d)
		if err == nil {
			return created, nil
		}
		if !s.dialect.IsUniqueViolation(err) {
			return models.Delivery{}, err
		}
		s.logger.Warn("slip id race lost, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
		lastErr = err
	}
	return models.Delivery{}, fmt.Errorf("create delivery: %w", lastErr)
}

func (s *Store) tryCreate(ctx context.Context, d models.Delivery) (_ models.Delivery, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Delivery{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now()
	prefix := idgen.Prefix(now)

	var last sql.NullString
	row := tx.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT id FROM deliveries WHERE id LIKE ? ORDER BY id DESC LIMIT 1`),
		prefix+"-%")
	if err := row.Scan(&last); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Delivery{}, fmt.Errorf("select last id: %w", err)
	}

	// The counter row outlives deletions, so a deleted record's id is never
	// handed out again.
	var lastSeq sql.NullInt64
	row = tx.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT last_seq FROM day_counters WHERE day = ?`), prefix)
	if err := row.Scan(&lastSeq); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Delivery{}, fmt.Errorf("select day counter: %w", err)
	}

	lastID := last.String
	if counterID := fmt.Sprintf("%s-%03d", prefix, lastSeq.Int64); lastSeq.Int64 > 0 && counterID > lastID {
		lastID = counterID
	}

	id, err := idgen.Next(prefix, lastID)
	if err != nil {
		return models.Delivery{}, err
	}
	seq, err := idgen.Suffix(id)
	if err != nil {
		return models.Delivery{}, err
	}

	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO day_counters (day, last_seq) VALUES (?, ?)
		 ON CONFLICT(day) DO UPDATE SET last_seq = excluded.last_seq`),
		prefix, seq); err != nil {
		return models.Delivery{}, fmt.Errorf("advance day counter: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO deliveries (id, date, from_branch, to_branch, note_type, status, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, d.Date, d.FromBranch, d.ToBranch, d.NoteType, string(models.StatusSent), d.Note,
		now.Format(timeLayout)); err != nil {
		return models.Delivery{}, fmt.Errorf("insert delivery: %w", err)
	}

	items := make([]models.LineItem, len(d.Items))
	for i, item := range d.Items {
		var itemID int64
		if s.dialect.SupportsReturning() {
			err = tx.QueryRowContext(ctx, s.dialect.Rebind(
				`INSERT INTO delivery_items (delivery_id, item_name, quantity) VALUES (?, ?, ?) RETURNING id`),
				id, item.Name, item.Quantity).Scan(&itemID)
		} else {
			var res sql.Result
			res, err = tx.ExecContext(ctx, s.dialect.Rebind(
				`INSERT INTO delivery_items (delivery_id, item_name, quantity) VALUES (?, ?, ?)`),
				id, item.Name, item.Quantity)
			if err == nil {
				itemID, err = res.LastInsertId()
			}
		}
		if err != nil {
			return models.Delivery{}, fmt.Errorf("insert item %q: %w", item.Name, err)
		}
		items[i] = models.LineItem{ID: itemID, DeliveryID: id, Name: item.Name, Quantity: item.Quantity}
	}

	if err := tx.Commit(); err != nil {
		return models.Delivery{}, fmt.Errorf("commit: %w", err)
	}

	d.ID = id
	d.Status = models.StatusSent
	d.CreatedAt = now
	d.ReceivedAt = nil
	d.ReceivedBy = ""
	d.Items = items
	d.ItemsSummary = query.ItemSummary(items)
	return d, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Delivery, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, date, from_branch, to_branch, note_type, status, note, created_at, received_at, received_by
		 FROM deliveries WHERE id = ?`), id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Delivery{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Delivery{}, err
	}

	d.Items, err = s.itemsFor(ctx, id)
	if err != nil {
		return models.Delivery{}, err
	}
	d.ItemsSummary = query.ItemSummary(d.Items)
	return d, nil
}

// List loads everything and hands filtering to the shared query engine, so
// list semantics match the other backends exactly. The dataset is a small
// internal logbook; there is no need to push criteria into SQL.
func (s *Store) List(ctx context.Context, c query.Criteria) ([]models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, from_branch, to_branch, note_type, status, note, created_at, received_at, received_by
		 FROM deliveries`)
	if err != nil {
		return nil, fmt.Errorf("select deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deliveries []models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	for i := range deliveries {
		deliveries[i].Items = items[deliveries[i].ID]
	}

	return query.Apply(deliveries, c), nil
}

func (s *Store) MarkReceived(ctx context.Context, id, receivedBy string) (models.Delivery, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`UPDATE deliveries SET status = ?, received_at = ?, received_by = ? WHERE id = ? AND status = ?`),
		string(models.StatusReceived), now.Format(timeLayout), receivedBy, id, string(models.StatusSent))
	if err != nil {
		return models.Delivery{}, fmt.Errorf("mark received: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return models.Delivery{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing record from one that was already received.
		if _, err := s.GetByID(ctx, id); err != nil {
			return models.Delivery{}, err
		}
		return models.Delivery{}, repository.ErrInvalidTransition
	}

	return s.GetByID(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		s.dialect.Rebind(`DELETE FROM delivery_items WHERE delivery_id = ?`), id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		s.dialect.Rebind(`DELETE FROM deliveries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) Close(context.Context) error { return s.db.Close() }

// DB exposes the handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) itemsFor(ctx context.Context, deliveryID string) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, delivery_id, item_name, quantity FROM delivery_items WHERE delivery_id = ? ORDER BY id`),
		deliveryID)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (s *Store) allItems(ctx context.Context) (map[string][]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, delivery_id, item_name, quantity FROM delivery_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	byDelivery := make(map[string][]models.LineItem)
	for _, item := range items {
		byDelivery[item.DeliveryID] = append(byDelivery[item.DeliveryID], item)
	}
	return byDelivery, nil
}

func collectItems(rows *sql.Rows) ([]models.LineItem, error) {
	var out []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.DeliveryID, &item.Name, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDelivery(row scannable) (models.Delivery, error) {
	var (
		d          models.Delivery
		status     string
		createdAt  string
		receivedAt sql.NullString
		receivedBy sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Date, &d.FromBranch, &d.ToBranch, &d.NoteType,
		&status, &d.Note, &createdAt, &receivedAt, &receivedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Delivery{}, err
		}
		return models.Delivery{}, fmt.Errorf("scan delivery: %w", err)
	}
	d.Status = models.Status(status)

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return models.Delivery{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	d.CreatedAt = created

	if receivedAt.Valid {
		received, err := time.Parse(timeLayout, receivedAt.String)
		if err != nil {
			return models.Delivery{}, fmt.Errorf("parse received_at %q: %w", receivedAt.String, err)
		}
		d.ReceivedAt = &received
	}
	d.ReceivedBy = receivedBy.String
	return d, nil
}
