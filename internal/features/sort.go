package features

import (
	"sort"

	"trendchop/internal/domain"
)

// SortRows orders rows by (WriteTS, Symbol) in place.
// Rows of one symbol keep their index order when timestamps repeat.
func SortRows(rows []*domain.FeatureRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WriteTS != rows[j].WriteTS {
			return rows[i].WriteTS < rows[j].WriteTS
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}
