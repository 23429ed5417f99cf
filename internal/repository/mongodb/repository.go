// Package mongodb provides the MongoDB delivery store. Line items are
// embedded in the delivery document, so cascade semantics come for free; slip
// ids are drawn from an atomically incremented per-day counter document.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/idgen"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store implements the delivery store on MongoDB.
type Store struct {
	client *mongo.Client
	dbName string
	now    func() time.Time
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, dbName: dbName, now: time.Now}, nil
}

func (s *Store) deliveries() *mongo.Collection {
	return s.client.Database(s.dbName).Collection("deliveries")
}

func (s *Store) counters() *mongo.Collection {
	return s.client.Database(s.dbName).Collection("counters")
}

// nextSeq atomically advances the named counter by delta and returns the new
// value. Counters are never decremented, so ids are never reused.
func (s *Store) nextSeq(ctx context.Context, name string, delta int64) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters().FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": delta}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, err)
	}
	return doc.Seq, nil
}

func (s *Store) Create(ctx context.Context, d models.Delivery) (models.Delivery, error) {
	now := s.now()
	prefix := idgen.Prefix(now)

	seq, err := s.nextSeq(ctx, "day:"+prefix, 1)
	if err != nil {
		return models.Delivery{}, err
	}
	if seq > 999 {
		return models.Delivery{}, idgen.ErrIDSpaceExhausted
	}
	id := fmt.Sprintf("%s-%03d", prefix, seq)

	itemSeq, err := s.nextSeq(ctx, "line_items", int64(len(d.Items)))
	if err != nil {
		return models.Delivery{}, err
	}
	firstItemID := itemSeq - int64(len(d.Items)) + 1
	for i := range d.Items {
		d.Items[i].ID = firstItemID + int64(i)
		d.Items[i].DeliveryID = id
	}

	d.ID = id
	d.Status = models.StatusSent
	d.CreatedAt = now
	d.ReceivedAt = nil
	d.ReceivedBy = ""

	if _, err := s.deliveries().InsertOne(ctx, d); err != nil {
		return models.Delivery{}, fmt.Errorf("insert delivery: %w", err)
	}
	d.ItemsSummary = query.ItemSummary(d.Items)
	return d, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Delivery, error) {
	var d models.Delivery
	err := s.deliveries().FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Delivery{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Delivery{}, fmt.Errorf("find delivery: %w", err)
	}
	s.rehydrate(&d)
	return d, nil
}

func (s *Store) List(ctx context.Context, c query.Criteria) ([]models.Delivery, error) {
	cur, err := s.deliveries().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find deliveries: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var deliveries []models.Delivery
	if err := cur.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("decode deliveries: %w", err)
	}
	for i := range deliveries {
		s.rehydrate(&deliveries[i])
	}

	return query.Apply(deliveries, c), nil
}

func (s *Store) MarkReceived(ctx context.Context, id, receivedBy string) (models.Delivery, error) {
	now := s.now()
	res, err := s.deliveries().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusSent},
		bson.M{"$set": bson.M{
			"status":      models.StatusReceived,
			"received_at": now,
			"received_by": receivedBy,
		}})
	if err != nil {
		return models.Delivery{}, fmt.Errorf("mark received: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either missing or already received; a lookup tells them apart.
		if _, err := s.GetByID(ctx, id); err != nil {
			return models.Delivery{}, err
		}
		return models.Delivery{}, repository.ErrInvalidTransition
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.deliveries().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete delivery: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// rehydrate restores fields that are derived or not stored per item.
func (s *Store) rehydrate(d *models.Delivery) {
	for i := range d.Items {
		d.Items[i].DeliveryID = d.ID
	}
	d.ItemsSummary = query.ItemSummary(d.Items)
}
