package models

import "time"

// Status enumerates the delivery record lifecycle states.
type Status string

const (
	// StatusSent is the initial state of every delivery record.
	StatusSent Status = "sent"
	// StatusReceived is the terminal state reached exactly once.
	StatusReceived Status = "received"
)

// Delivery represents one inter-branch delivery slip and its line items.
type Delivery struct {
	ID         string     `bson:"_id" json:"id"`
	Date       string     `bson:"date" json:"date"` // ISO YYYY-MM-DD
	FromBranch string     `bson:"from_branch" json:"fromBranch"`
	ToBranch   string     `bson:"to_branch" json:"toBranch"`
	NoteType   string     `bson:"note_type" json:"type"`
	Status     Status     `bson:"status" json:"status"`
	Note       string     `bson:"note" json:"note,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	ReceivedAt *time.Time `bson:"received_at,omitempty" json:"receivedAt,omitempty"`
	ReceivedBy string     `bson:"received_by,omitempty" json:"receivedBy,omitempty"`
	Items      []LineItem `bson:"items" json:"items"`

	// ItemsSummary is the rendered "name (xqty)" listing used by list
	// responses, search and the CSV export. Derived, never stored.
	ItemsSummary string `bson:"-" json:"itemsSummary"`
}

// LineItem is one named, quantified good within a delivery.
type LineItem struct {
	ID         int64  `bson:"id" json:"id"`
	DeliveryID string `bson:"-" json:"deliveryId"`
	Name       string `bson:"name" json:"name"`
	Quantity   int    `bson:"quantity" json:"quantity"`
}
