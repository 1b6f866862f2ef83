package merge

import (
	"cmp"
	"slices"
)

// Association is one row of the user to transaction association
type Association struct {
	ID                  uint64
	FID                 int64
	TransactionUniqueID string
}

// DuplicateAssociations returns the ids of association rows to delete so that exactly one row
// remains per (fid, transaction unique id) pair. Rows are ordered by fid, then unique id, then id,
// and the first row of each group is kept.
func DuplicateAssociations(rows []Association) []uint64 {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b Association) int {
		return cmp.Or(
			cmp.Compare(a.FID, b.FID),
			cmp.Compare(a.TransactionUniqueID, b.TransactionUniqueID),
			cmp.Compare(a.ID, b.ID),
		)
	})

	var toDelete []uint64
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.FID == cur.FID && prev.TransactionUniqueID == cur.TransactionUniqueID {
			toDelete = append(toDelete, cur.ID)
		}
	}
	return toDelete
}
