package store

import (
	"gorm.io/datatypes"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/store/schema"
)

// UserFromRow converts a users row to a domain user
func UserFromRow(row schema.User) domain.User {
	return domain.User{
		FID:            row.FID,
		Username:       row.Username,
		DisplayName:    row.DisplayName,
		Bio:            row.Bio,
		PfpURL:         row.PfpURL,
		FollowerCount:  row.FollowerCount,
		FollowingCount: row.FollowingCount,
		Verified:       row.Verified,
		Address:        row.Address,
		LocationID:     row.LocationID,
		RegisteredAt:   row.RegisteredAt,
	}
}

func userToRow(u domain.User, indexedAt int64) schema.User {
	return schema.User{
		FID:            u.FID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		PfpURL:         u.PfpURL,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		Verified:       u.Verified,
		Address:        u.Address,
		LocationID:     u.LocationID,
		RegisteredAt:   u.RegisteredAt,
		IndexedAt:      indexedAt,
	}
}

// userUpdates lists the columns a merge may change. indexed_at is never part of it.
func userUpdates(u domain.User) map[string]any {
	return map[string]any{
		"username":        u.Username,
		"display_name":    u.DisplayName,
		"bio":             u.Bio,
		"pfp_url":         u.PfpURL,
		"follower_count":  u.FollowerCount,
		"following_count": u.FollowingCount,
		"verified":        u.Verified,
		"address":         u.Address,
		"location_id":     u.LocationID,
		"registered_at":   u.RegisteredAt,
	}
}

// LocationFromRow converts a locations row to a domain location
func LocationFromRow(row schema.Location) domain.Location {
	return domain.Location{PlaceID: row.PlaceID, Description: row.Description}
}

func locationToRow(l domain.Location) schema.Location {
	return schema.Location{PlaceID: l.PlaceID, Description: l.Description}
}

// CastFromRow converts a casts row to a domain cast
func CastFromRow(row schema.Cast) domain.Cast {
	return domain.Cast{
		Hash:       row.Hash,
		ThreadHash: row.ThreadHash,
		ParentHash: row.ParentHash,
		Text:       row.Text,
		Timestamp:  row.Timestamp,
		AuthorFID:  row.AuthorFID,
	}
}

func castToRow(c domain.Cast) schema.Cast {
	return schema.Cast{
		Hash:       c.Hash,
		ThreadHash: c.ThreadHash,
		ParentHash: c.ParentHash,
		Text:       c.Text,
		Timestamp:  c.Timestamp,
		AuthorFID:  c.AuthorFID,
	}
}

// ReactionFromRow converts a reactions row to a domain reaction
func ReactionFromRow(row schema.Reaction) domain.Reaction {
	return domain.Reaction{
		Hash:         row.Hash,
		ReactionType: domain.ReactionType(row.ReactionType),
		Timestamp:    row.Timestamp,
		ReactorFID:   row.ReactorFID,
		TargetHash:   row.TargetHash,
	}
}

func reactionToRow(r domain.Reaction) schema.Reaction {
	return schema.Reaction{
		Hash:         r.Hash,
		ReactionType: string(r.ReactionType),
		Timestamp:    r.Timestamp,
		ReactorFID:   r.ReactorFID,
		TargetHash:   r.TargetHash,
	}
}

// EnsFromRow converts an ens_data row to a domain record
func EnsFromRow(row schema.EnsData) domain.EnsRecord {
	return domain.EnsRecord{
		Address:  row.Address,
		Ens:      row.Ens,
		URL:      row.URL,
		Github:   row.Github,
		Twitter:  row.Twitter,
		Telegram: row.Telegram,
		Email:    row.Email,
		Discord:  row.Discord,
		Raw:      []byte(row.Raw),
	}
}

func ensToRow(e domain.EnsRecord) schema.EnsData {
	row := schema.EnsData{
		Address:  e.Address,
		Ens:      e.Ens,
		URL:      e.URL,
		Github:   e.Github,
		Twitter:  e.Twitter,
		Telegram: e.Telegram,
		Email:    e.Email,
		Discord:  e.Discord,
	}
	if len(e.Raw) > 0 {
		row.Raw = datatypes.JSON(e.Raw)
	}
	return row
}

// TransactionFromRow converts an eth_transactions row to a domain transaction
func TransactionFromRow(row schema.EthTransaction) domain.EthTransaction {
	return domain.EthTransaction{
		UniqueID:        row.UniqueID,
		Hash:            row.Hash,
		Timestamp:       row.Timestamp,
		BlockNum:        row.BlockNum,
		FromAddress:     row.FromAddress,
		ToAddress:       row.ToAddress,
		Value:           row.Value,
		Asset:           row.Asset,
		Category:        row.Category,
		ERC721TokenID:   row.ERC721TokenID,
		TokenID:         row.TokenID,
		ContractAddress: row.ContractAddress,
	}
}

func transactionToRow(t domain.EthTransaction) schema.EthTransaction {
	return schema.EthTransaction{
		UniqueID:        t.UniqueID,
		Hash:            t.Hash,
		Timestamp:       t.Timestamp,
		BlockNum:        t.BlockNum,
		FromAddress:     t.FromAddress,
		ToAddress:       t.ToAddress,
		Value:           t.Value,
		Asset:           t.Asset,
		Category:        t.Category,
		ERC721TokenID:   t.ERC721TokenID,
		TokenID:         t.TokenID,
		ContractAddress: t.ContractAddress,
	}
}

// MetadataFromRow converts an erc1155_metadata row to domain metadata
func MetadataFromRow(row schema.ERC1155Metadata) domain.TokenTransferMetadata {
	return domain.TokenTransferMetadata{
		TransactionHash: row.TransactionHash,
		TokenID:         row.TokenID,
		Value:           row.Value,
	}
}

func metadataToRow(m domain.TokenTransferMetadata) schema.ERC1155Metadata {
	return schema.ERC1155Metadata{
		TransactionHash: m.TransactionHash,
		TokenID:         m.TokenID,
		Value:           m.Value,
	}
}

// UserTransactionFromRow converts a user_eth_transactions row to a domain link
func UserTransactionFromRow(row schema.UserEthTransaction) domain.UserTransaction {
	return domain.UserTransaction{FID: row.FID, TransactionUniqueID: row.TransactionUniqueID}
}
