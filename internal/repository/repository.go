// Package repository defines the persistence contract shared by the memory,
// SQL and MongoDB delivery store backends.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/query"
)

// ErrNotFound indicates the requested delivery id does not exist.
var ErrNotFound = errors.New("delivery not found")

// ErrInvalidTransition indicates a receive attempt on a record that is
// already received. A duplicate receive never overwrites the first one.
var ErrInvalidTransition = errors.New("delivery already received")

// Store persists delivery records and their line items.
//
// Create assigns the slip id and createdAt and persists the record together
// with its items atomically; id assignment is serialized by each backend so
// concurrent creates on the same day never collide. MarkReceived performs the
// single sent→received transition. Delete cascades to line items.
type Store interface {
	Create(ctx context.Context, d models.Delivery) (models.Delivery, error)
	GetByID(ctx context.Context, id string) (models.Delivery, error)
	List(ctx context.Context, c query.Criteria) ([]models.Delivery, error)
	MarkReceived(ctx context.Context, id, receivedBy string) (models.Delivery, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}
