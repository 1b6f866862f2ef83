package alchemy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
)

const PROVIDER_NAME = "alchemy"

// DefaultCategories are the transfer categories requested for every address
var DefaultCategories = []string{"external", "internal", "erc20", "erc721", "erc1155"}

// Transfer is one asset transfer as returned by alchemy_getAssetTransfers
type Transfer struct {
	BlockNum        *string           `json:"blockNum"`
	UniqueID        *string           `json:"uniqueId"`
	Hash            *string           `json:"hash"`
	From            *string           `json:"from"`
	To              *string           `json:"to"`
	Value           *float64          `json:"value"`
	ERC721TokenID   *string           `json:"erc721TokenId"`
	ERC1155Metadata []ERC1155Metadata `json:"erc1155Metadata"`
	TokenID         *string           `json:"tokenId"`
	Asset           *string           `json:"asset"`
	Category        *string           `json:"category"`
	RawContract     *RawContract      `json:"rawContract"`
	Metadata        *TransferMetadata `json:"metadata"`
}

// ERC1155Metadata is one token of a batch transfer
type ERC1155Metadata struct {
	TokenID *string `json:"tokenId"`
	Value   *string `json:"value"`
}

// RawContract describes the token contract of a transfer
type RawContract struct {
	Value   *string `json:"value"`
	Address *string `json:"address"`
	Decimal *string `json:"decimal"`
}

// TransferMetadata carries the block timestamp when withMetadata is requested
type TransferMetadata struct {
	// BlockTimestamp is RFC 3339
	BlockTimestamp *string `json:"blockTimestamp"`
}

// TransferParams selects the transfers of one address in one direction
type TransferParams struct {
	FromBlock uint64
	ToBlock   uint64
	// Exactly one of FromAddress and ToAddress is set
	FromAddress string
	ToAddress   string
	Categories  []string
	PageKey     string
}

// TransfersPage is one page of transfers
type TransfersPage struct {
	Transfers []Transfer
	// PageKey continues the listing, empty on the last page
	PageKey string
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type transferRequestParams struct {
	FromBlock        string   `json:"fromBlock"`
	ToBlock          string   `json:"toBlock"`
	FromAddress      string   `json:"fromAddress,omitempty"`
	ToAddress        string   `json:"toAddress,omitempty"`
	Category         []string `json:"category"`
	WithMetadata     bool     `json:"withMetadata"`
	ExcludeZeroValue bool     `json:"excludeZeroValue"`
	PageKey          string   `json:"pageKey,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type transfersResponse struct {
	Result *struct {
		Transfers []Transfer `json:"transfers"`
		PageKey   *string    `json:"pageKey"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// Client defines the interface for the asset transfer client to enable mocking
//
//go:generate mockgen -source=client.go -destination=../../mocks/alchemy_client.go -package=mocks -mock_names=Client=MockAlchemyClient
type Client interface {
	// GetLatestBlock returns the current chain head
	GetLatestBlock(ctx context.Context) (uint64, error)
	// GetAssetTransfers fetches one page of transfers
	GetAssetTransfers(ctx context.Context, params TransferParams) (*TransfersPage, error)
}

// AlchemyClient implements Client with the JSON-RPC transfers API and an Ethereum node for the chain head
type AlchemyClient struct {
	httpClient adapter.HTTPClient
	ethClient  adapter.EthClient
	endpoint   string
	apiKey     string
	json       adapter.JSON
}

// NewClient creates a new asset transfer client. endpoint already includes the api key.
func NewClient(httpClient adapter.HTTPClient, ethClient adapter.EthClient, endpoint string, apiKey string, json adapter.JSON) Client {
	return &AlchemyClient{
		httpClient: httpClient,
		ethClient:  ethClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		json:       json,
	}
}

// GetLatestBlock returns the current chain head
func (c *AlchemyClient) GetLatestBlock(ctx context.Context) (uint64, error) {
	block, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return block, nil
}

// GetAssetTransfers fetches one page of transfers
func (c *AlchemyClient) GetAssetTransfers(ctx context.Context, params TransferParams) (*TransfersPage, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s api key: %w", PROVIDER_NAME, domain.ErrMissingCredential)
	}

	categories := params.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "alchemy_getAssetTransfers",
		Params: []any{transferRequestParams{
			FromBlock:    hexutil.EncodeUint64(params.FromBlock),
			ToBlock:      hexutil.EncodeUint64(params.ToBlock),
			FromAddress:  params.FromAddress,
			ToAddress:    params.ToAddress,
			Category:     categories,
			WithMetadata: true,
			PageKey:      params.PageKey,
		}},
	}
	body, err := c.json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", PROVIDER_NAME, err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	respBody, err := c.httpClient.PostBytes(ctx, c.endpoint, headers, body)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", PROVIDER_NAME, err)
	}

	var resp transfersResponse
	if err := c.json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", PROVIDER_NAME, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s rpc error %d: %s", PROVIDER_NAME, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return &TransfersPage{}, nil
	}

	page := &TransfersPage{Transfers: resp.Result.Transfers}
	if resp.Result.PageKey != nil {
		page.PageKey = *resp.Result.PageKey
	}
	return page, nil
}
