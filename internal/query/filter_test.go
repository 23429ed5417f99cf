package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
)

func delivery(id, date, from, to string, createdAt time.Time, items ...models.LineItem) models.Delivery {
	return models.Delivery{
		ID:         id,
		Date:       date,
		FromBranch: from,
		ToBranch:   to,
		Status:     models.StatusSent,
		CreatedAt:  createdAt,
		Items:      items,
	}
}

func TestItemSummary(t *testing.T) {
	items := []models.LineItem{
		{Name: "手袋", Quantity: 5},
		{Name: "Adult pad", Quantity: 10},
	}
	require.Equal(t, "手袋 (x5), Adult pad (x10)", ItemSummary(items))
	require.Equal(t, "", ItemSummary(nil))
}

func TestApplyBranchMatchesEitherSide(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	records := []models.Delivery{
		delivery("20250601-001", "2025-06-01", "法人本部", "Life Up 可児", base),
		delivery("20250601-002", "2025-06-01", "Think Life旭", "法人本部", base.Add(time.Minute)),
		delivery("20250601-003", "2025-06-01", "Think Life旭", "Think Life守山", base.Add(2*time.Minute)),
	}

	got := Apply(records, Criteria{Branch: "法人本部"})
	require.Len(t, got, 2)
	require.Equal(t, "20250601-002", got[0].ID)
	require.Equal(t, "20250601-001", got[1].ID)
}

func TestApplyStatus(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sent := delivery("20250601-001", "2025-06-01", "a", "b", base)
	received := delivery("20250601-002", "2025-06-01", "a", "b", base.Add(time.Minute))
	received.Status = models.StatusReceived

	got := Apply([]models.Delivery{sent, received}, Criteria{Status: "received"})
	require.Len(t, got, 1)
	require.Equal(t, "20250601-002", got[0].ID)
}

func TestApplyDateRangeInclusive(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	records := []models.Delivery{
		delivery("a", "2025-01-09", "x", "y", base),
		delivery("b", "2025-01-10", "x", "y", base),
		delivery("c", "2025-01-20", "x", "y", base),
		delivery("d", "2025-01-21", "x", "y", base),
	}

	got := Apply(records, Criteria{DateFrom: "2025-01-10", DateTo: "2025-01-20"})
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	require.ElementsMatch(t, []string{"b", "c"}, ids)
}

func TestApplySearchMatchesRenderedSummaryOnly(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	records := []models.Delivery{
		delivery("a", "2025-01-10", "x", "y", base, models.LineItem{Name: "Adult pad", Quantity: 10}),
	}

	require.Len(t, Apply(records, Criteria{Search: "pad"}), 1)
	require.Len(t, Apply(records, Criteria{Search: "PAD"}), 1)
	require.Len(t, Apply(records, Criteria{Search: "(x10)"}), 1)
	require.Empty(t, Apply(records, Criteria{Search: "diaper"}))
}

func TestApplyCombinesCriteriaWithAnd(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	records := []models.Delivery{
		delivery("a", "2025-01-10", "法人本部", "Think Life旭", base, models.LineItem{Name: "手袋", Quantity: 5}),
		delivery("b", "2025-01-10", "法人本部", "Think Life旭", base, models.LineItem{Name: "マスク", Quantity: 3}),
	}

	got := Apply(records, Criteria{Branch: "Think Life旭", Search: "手袋"})
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "手袋 (x5)", got[0].ItemsSummary)
}

func TestApplyOrdersByCreatedAtDescendingStable(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	records := []models.Delivery{
		delivery("first", "2025-06-01", "a", "b", base),
		delivery("tie-1", "2025-06-01", "a", "b", base.Add(time.Hour)),
		delivery("tie-2", "2025-06-01", "a", "b", base.Add(time.Hour)),
	}

	got := Apply(records, Criteria{})
	require.Equal(t, []string{"tie-1", "tie-2", "first"},
		[]string{got[0].ID, got[1].ID, got[2].ID})
}

func TestApplyEmptyCriteriaReturnsEverything(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	records := []models.Delivery{
		delivery("a", "2025-06-01", "x", "y", base, models.LineItem{Name: "item", Quantity: 1}),
	}

	got := Apply(records, Criteria{})
	require.Len(t, got, 1)
	require.Equal(t, "item (x1)", got[0].ItemsSummary)
}
