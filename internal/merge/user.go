package merge

import "github.com/feral-file/castindex/internal/domain"

// UserResult is the outcome of merging incoming users against stored ones
type UserResult struct {
	Insert []domain.User
	// Update holds the merged rows for users whose stored row changes
	Update []domain.User
	// Skip holds incoming users that would not change anything
	Skip []domain.User
}

// MergeUsers merges incoming users field by field into the stored rows.
//
// The enrichment fields Address and RegisteredAt are protected: once populated on the stored
// row they are kept no matter what the incoming record carries. When the stored row has no
// value yet the incoming value fills the gap. Later duplicates of the same fid within
// incoming are merged on top of the earlier ones.
func MergeUsers(existing map[int64]domain.User, incoming []domain.User) UserResult {
	var result UserResult

	pending := make(map[int64]int, len(incoming)) // fid -> index into Insert
	updated := make(map[int64]int, len(incoming)) // fid -> index into Update

	for _, in := range incoming {
		if idx, ok := pending[in.FID]; ok {
			result.Insert[idx] = mergeUser(result.Insert[idx], in)
			continue
		}
		if idx, ok := updated[in.FID]; ok {
			result.Update[idx] = mergeUser(result.Update[idx], in)
			continue
		}

		stored, ok := existing[in.FID]
		if !ok {
			pending[in.FID] = len(result.Insert)
			result.Insert = append(result.Insert, in)
			continue
		}

		merged := mergeUser(stored, in)
		if usersEqual(stored, merged) {
			result.Skip = append(result.Skip, in)
			continue
		}
		updated[in.FID] = len(result.Update)
		result.Update = append(result.Update, merged)
	}

	return result
}

func mergeUser(stored, in domain.User) domain.User {
	merged := in

	if stored.Address != nil && *stored.Address != "" {
		merged.Address = stored.Address
	} else if in.Address != nil && *in.Address == "" {
		merged.Address = nil
	}

	if stored.IsRegistrationResolved() {
		merged.RegisteredAt = stored.RegisteredAt
	}

	// Optional profile fields absent from the incoming record keep their stored value
	if merged.Username == nil {
		merged.Username = stored.Username
	}
	if merged.LocationID == nil {
		merged.LocationID = stored.LocationID
	}

	return merged
}

func usersEqual(a, b domain.User) bool {
	return a.FID == b.FID &&
		ptrEqual(a.Username, b.Username) &&
		a.DisplayName == b.DisplayName &&
		a.Bio == b.Bio &&
		a.PfpURL == b.PfpURL &&
		a.FollowerCount == b.FollowerCount &&
		a.FollowingCount == b.FollowingCount &&
		a.Verified == b.Verified &&
		ptrEqual(a.Address, b.Address) &&
		ptrEqual(a.LocationID, b.LocationID) &&
		a.RegisteredAt == b.RegisteredAt
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
