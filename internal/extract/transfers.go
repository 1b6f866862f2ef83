package extract

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/providers/alchemy"
)

// Transfers maps asset transfers to transactions. Each erc1155 metadata entry becomes one metadata
// row that references the transaction hash.
func Transfers(ctx context.Context, dtos []alchemy.Transfer) (bundles []domain.TransactionBundle, dropped int) {
	for i, dto := range dtos {
		uniqueID := deref(dto.UniqueID)
		hash := deref(dto.Hash)
		switch {
		case uniqueID == "":
			logDrop(ctx, "transaction", "missing unique id", zap.String("hash", hash), zap.Int("index", i))
			dropped++
			continue
		case hash == "":
			logDrop(ctx, "transaction", "missing hash", zap.String("unique_id", uniqueID))
			dropped++
			continue
		}

		tx := domain.EthTransaction{
			UniqueID:      uniqueID,
			Hash:          hash,
			FromAddress:   domain.NormalizeAddress(deref(dto.From)),
			Value:         dto.Value,
			Asset:         nonEmpty(dto.Asset),
			Category:      deref(dto.Category),
			ERC721TokenID: nonEmpty(dto.ERC721TokenID),
			TokenID:       nonEmpty(dto.TokenID),
		}
		if tx.FromAddress == "" {
			tx.FromAddress = domain.ETHEREUM_ZERO_ADDRESS
		}
		if to := deref(dto.To); to != "" {
			normalized := domain.NormalizeAddress(to)
			tx.ToAddress = &normalized
		}
		if dto.BlockNum != nil {
			block, err := hexutil.DecodeUint64(*dto.BlockNum)
			if err != nil {
				logger.WarnCtx(ctx, "Invalid block number, defaulting to 0", zap.String("unique_id", uniqueID), zap.Error(err))
			}
			tx.BlockNum = int64(block)
		}
		if dto.Metadata != nil && dto.Metadata.BlockTimestamp != nil {
			ts, err := time.Parse(time.RFC3339, *dto.Metadata.BlockTimestamp)
			if err != nil {
				logger.WarnCtx(ctx, "Invalid block timestamp, defaulting to 0", zap.String("unique_id", uniqueID), zap.Error(err))
			} else {
				tx.Timestamp = ts.UnixMilli()
			}
		}
		if dto.RawContract != nil && deref(dto.RawContract.Address) != "" {
			contract := domain.NormalizeAddress(*dto.RawContract.Address)
			tx.ContractAddress = &contract
		}

		bundle := domain.TransactionBundle{Transaction: tx}
		for _, m := range dto.ERC1155Metadata {
			bundle.Metadata = append(bundle.Metadata, domain.TokenTransferMetadata{
				TransactionHash: hash,
				TokenID:         deref(m.TokenID),
				Value:           deref(m.Value),
			})
		}

		bundles = append(bundles, bundle)
	}

	return bundles, dropped
}

// EmptyTransaction is the placeholder stored for an address without transfers, so the next run
// starts from block.
func EmptyTransaction(address string, block uint64) domain.TransactionBundle {
	return domain.TransactionBundle{
		Transaction: domain.EthTransaction{
			UniqueID:    domain.EmptyTransactionID(address),
			Hash:        domain.EmptyTransactionID(address),
			BlockNum:    int64(block),
			FromAddress: domain.ETHEREUM_ZERO_ADDRESS,
			Category:    "empty",
		},
	}
}
