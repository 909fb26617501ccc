package billlist

import (
	"slices"
	"strings"

	"github.com/zombor/billed/internal/bill"
)

// SortByDateDesc returns the bills ordered most recent first. Dates are
// compared as YYYY-MM-DD strings; a missing date compares as the empty
// string and therefore sorts after every dated bill. Ties keep their input
// order. The input slice is not modified.
func SortByDateDesc(bills []*bill.Bill) []*bill.Bill {
	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b *bill.Bill) int {
		return strings.Compare(b.SortKey(), a.SortKey())
	})
	return sorted
}
