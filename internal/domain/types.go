package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ReactionType is the kind of reaction a user left on a cast
type ReactionType string

const (
	ReactionTypeLike   ReactionType = "like"
	ReactionTypeRecast ReactionType = "recast"
)

// IsValid reports whether the reaction type is one the indexer knows about
func (r ReactionType) IsValid() bool {
	return r == ReactionTypeLike || r == ReactionTypeRecast
}

// Location is a place referenced by a user profile
type Location struct {
	PlaceID     string
	Description string
}

// User is a network account identified by its fid
type User struct {
	FID            int64
	Username       *string
	DisplayName    string
	Bio            string
	PfpURL         string
	FollowerCount  int64
	FollowingCount int64
	Verified       bool
	// Address is the on-chain custody address filled in by the enrichment pass
	Address *string
	// LocationID references Location.PlaceID
	LocationID *string
	// RegisteredAt is the registration time in milliseconds, UNRESOLVED_REGISTRATION until enriched
	RegisteredAt int64
}

// IsRegistrationResolved reports whether the enrichment pass filled in the registration time
func (u *User) IsRegistrationResolved() bool {
	return u.RegisteredAt != UNRESOLVED_REGISTRATION
}

// Cast is a post identified by its content hash
type Cast struct {
	Hash       string
	ThreadHash string
	ParentHash *string
	Text       string
	// Timestamp is milliseconds since epoch
	Timestamp int64
	AuthorFID int64
}

// Reaction is a like or recast on a cast
type Reaction struct {
	Hash         string
	ReactionType ReactionType
	Timestamp    int64
	ReactorFID   int64
	TargetHash   string
}

// EnsRecord is the resolution data for an address
type EnsRecord struct {
	Address  string
	Ens      *string
	URL      *string
	Github   *string
	Twitter  *string
	Telegram *string
	Email    *string
	Discord  *string
	Raw      []byte
}

// IsEmpty reports whether the resolution carries no data at all
func (e *EnsRecord) IsEmpty() bool {
	return e.Ens == nil && e.URL == nil && e.Github == nil && e.Twitter == nil &&
		e.Telegram == nil && e.Email == nil && e.Discord == nil
}

// EthTransaction is an asset transfer touching a tracked address
type EthTransaction struct {
	// UniqueID is the provider assigned id or an EmptyTransactionID placeholder
	UniqueID        string
	Hash            string
	Timestamp       int64
	BlockNum        int64
	FromAddress     string
	ToAddress       *string
	Value           *float64
	Asset           *string
	Category        string
	ERC721TokenID   *string
	TokenID         *string
	ContractAddress *string
}

// IsEmpty reports whether the transaction is the placeholder recorded for an address without transfers
func (t *EthTransaction) IsEmpty() bool {
	return strings.HasPrefix(t.UniqueID, EMPTY_TRANSACTION_PREFIX)
}

// TokenTransferMetadata is one token of a batch (erc1155) transfer
type TokenTransferMetadata struct {
	// TransactionHash references EthTransaction.Hash, not its unique id
	TransactionHash string
	TokenID         string
	Value           string
}

// TransactionBundle is a transaction together with its batch transfer metadata
type TransactionBundle struct {
	Transaction EthTransaction
	Metadata    []TokenTransferMetadata
}

// UserTransaction links a user to a transaction
type UserTransaction struct {
	FID                 int64
	TransactionUniqueID string
}

// EmptyTransactionID returns the placeholder unique id for an address with no transfers
func EmptyTransactionID(address string) string {
	return EMPTY_TRANSACTION_PREFIX + NormalizeAddress(address)
}

// NormalizeAddress returns the checksummed form of a hex address, other strings are returned as-is
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}

// NormalizeAddresses normalizes every address in place
func NormalizeAddresses(addresses []string) []string {
	for i, address := range addresses {
		addresses[i] = NormalizeAddress(address)
	}
	return addresses
}

// UserRegistration is the enrichment result for a single user
type UserRegistration struct {
	FID int64
	// Address is the custody address, nil when the lookup returned none
	Address *string
	// RegisteredAt is the registration time in milliseconds
	RegisteredAt int64
}
