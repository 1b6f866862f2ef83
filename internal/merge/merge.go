// Package merge decides which freshly extracted records are written to the store and how.
//
// Every function here is pure: the caller looks up the existing keys (or rows) once per
// batch and hands them in, so the cost of a merge is linear in the batch size.
package merge

// KeySet is a set of primary keys already present in the store
type KeySet[K comparable] map[K]struct{}

// NewKeySet builds a KeySet from keys
func NewKeySet[K comparable](keys ...K) KeySet[K] {
	s := make(KeySet[K], len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is in the set
func (s KeySet[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k into the set
func (s KeySet[K]) Add(k K) {
	s[k] = struct{}{}
}

// Merge applies the insert-only, first-write-wins policy.
// A record is skipped when its key is already stored or appeared earlier in records.
// The order of records is preserved in both outputs.
func Merge[K comparable, R any](existing KeySet[K], records []R, key func(R) K) (toInsert []R, toSkip []R) {
	seen := make(KeySet[K], len(records))
	for _, r := range records {
		k := key(r)
		if existing.Has(k) || seen.Has(k) {
			toSkip = append(toSkip, r)
			continue
		}
		seen.Add(k)
		toInsert = append(toInsert, r)
	}
	return toInsert, toSkip
}

// Keys extracts the key of every record, used for the batched existence lookup
func Keys[K comparable, R any](records []R, key func(R) K) []K {
	keys := make([]K, 0, len(records))
	seen := make(KeySet[K], len(records))
	for _, r := range records {
		k := key(r)
		if seen.Has(k) {
			continue
		}
		seen.Add(k)
		keys = append(keys, k)
	}
	return keys
}
