// Package query implements the in-memory filter engine shared by every store
// backend, so listing behaves identically no matter which engine persisted
// the records.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
)

// Criteria are the optional list filters. Empty fields match everything;
// populated fields are combined with AND semantics.
type Criteria struct {
	Branch   string // equals fromBranch or toBranch
	Status   string // exact status match
	DateFrom string // inclusive, ISO YYYY-MM-DD
	DateTo   string // inclusive, ISO YYYY-MM-DD
	Search   string // case-insensitive substring of the item summary
}

// ItemSummary renders line items as "name (xqty)" joined by ", " in
// insertion order. Search only ever matches this rendered form.
func ItemSummary(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (x%d)", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// Apply filters records by c and orders the result by createdAt descending,
// keeping insertion order for ties. Records must carry their items; the
// summary is (re)derived here before the search filter runs.
func Apply(records []models.Delivery, c Criteria) []models.Delivery {
	out := make([]models.Delivery, 0, len(records))
	search := strings.ToLower(c.Search)

	for _, d := range records {
		if c.Branch != "" && d.FromBranch != c.Branch && d.ToBranch != c.Branch {
			continue
		}
		if c.Status != "" && string(d.Status) != c.Status {
			continue
		}
		if c.DateFrom != "" && d.Date < c.DateFrom {
			continue
		}
		if c.DateTo != "" && d.Date > c.DateTo {
			continue
		}
		d.ItemsSummary = ItemSummary(d.Items)
		if search != "" && !strings.Contains(strings.ToLower(d.ItemsSummary), search) {
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
