package merge

import "github.com/feral-file/castindex/internal/domain"

// EnsResult is the outcome of the replace-on-resolve policy
type EnsResult struct {
	// Insert holds records for addresses with no stored row
	Insert []domain.EnsRecord
	// Replace holds records whose stored row is deleted and written again
	Replace []domain.EnsRecord
	// Skip holds empty resolutions, which never touch the stored row
	Skip []domain.EnsRecord
}

// ReplaceEns applies replace-on-conflict: a non-empty resolution replaces the stored row as a whole.
// When the same address appears more than once the last resolution wins.
func ReplaceEns(existing KeySet[string], incoming []domain.EnsRecord) EnsResult {
	var result EnsResult

	latest := make(map[string]domain.EnsRecord, len(incoming))
	order := make([]string, 0, len(incoming))
	for _, rec := range incoming {
		if rec.IsEmpty() {
			result.Skip = append(result.Skip, rec)
			continue
		}
		if _, ok := latest[rec.Address]; !ok {
			order = append(order, rec.Address)
		}
		latest[rec.Address] = rec
	}

	for _, address := range order {
		rec := latest[address]
		if existing.Has(address) {
			result.Replace = append(result.Replace, rec)
		} else {
			result.Insert = append(result.Insert, rec)
		}
	}

	return result
}
