package merge

import "github.com/feral-file/castindex/internal/domain"

// CastKey is the primary key of a cast
func CastKey(c domain.Cast) string { return c.Hash }

// ReactionKey is the primary key of a reaction
func ReactionKey(r domain.Reaction) string { return r.Hash }

// LocationKey is the primary key of a location
func LocationKey(l domain.Location) string { return l.PlaceID }

// UserKey is the primary key of a user
func UserKey(u domain.User) int64 { return u.FID }

// TransactionKey is the primary key of a transaction bundle
func TransactionKey(b domain.TransactionBundle) string { return b.Transaction.UniqueID }

// EnsKey is the primary key of an ENS record
func EnsKey(e domain.EnsRecord) string { return e.Address }
