package models

// branches is the fixed set of organizational sites deliveries travel between.
// The data layer does not validate against this list; it only feeds the UI.
var branches = []string{
	"法人本部",
	"リハビリフィットネス大永寺",
	"リハビリフィットネス守山",
	"リハビリフィットネス旭",
	"リハビリフィットネス長久手",
	"Co.メディカルフィットネス旭",
	"Life Up 可児",
	"Think Life守山",
	"Think Life大曽根",
	"Think Life旭",
	"Life Up 訪問看護ステーション可児",
	"訪問看護ステーション守山",
	"訪問看護ステーション旭",
}

// Branches returns the branch names in display order.
func Branches() []string {
	out := make([]string, len(branches))
	copy(out, branches)
	return out
}
