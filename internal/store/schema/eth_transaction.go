package schema

// EthTransaction represents the eth_transactions table - asset transfers touching tracked addresses
type EthTransaction struct {
	// UniqueID is the provider-assigned id, or "empty:<address>" for an address without transfers
	UniqueID string `gorm:"column:unique_id;primaryKey;type:text" parquet:"unique_id"`
	// Hash is the transaction hash
	Hash string `gorm:"column:hash;type:text;not null;index" parquet:"hash"`
	// Timestamp is the block time in milliseconds
	Timestamp int64 `gorm:"column:timestamp;not null;default:0" parquet:"timestamp"`
	// BlockNum is the block number the transfer was included in
	BlockNum        int64    `gorm:"column:block_num;not null;index" parquet:"block_num"`
	FromAddress     string   `gorm:"column:from_address;type:text;not null;index" parquet:"from_address"`
	ToAddress       *string  `gorm:"column:to_address;type:text;index" parquet:"to_address"`
	Value           *float64 `gorm:"column:value" parquet:"value"`
	Asset           *string  `gorm:"column:asset;type:text" parquet:"asset"`
	Category        string   `gorm:"column:category;type:text;not null" parquet:"category"`
	ERC721TokenID   *string  `gorm:"column:erc721_token_id;type:text" parquet:"erc721_token_id"`
	TokenID         *string  `gorm:"column:token_id;type:text" parquet:"token_id"`
	ContractAddress *string  `gorm:"column:contract_address;type:text" parquet:"contract_address"`
}

// TableName specifies the table name for the EthTransaction model
func (EthTransaction) TableName() string {
	return "eth_transactions"
}

// ERC1155Metadata represents the erc1155_metadata table - one row per token of a batch transfer
type ERC1155Metadata struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" parquet:"id"`
	// TransactionHash references eth_transactions.hash
	TransactionHash string `gorm:"column:transaction_hash;type:text;not null;index" parquet:"transaction_hash"`
	TokenID         string `gorm:"column:token_id;type:text;not null" parquet:"token_id"`
	Value           string `gorm:"column:value;type:text;not null" parquet:"value"`
}

// TableName specifies the table name for the ERC1155Metadata model
func (ERC1155Metadata) TableName() string {
	return "erc1155_metadata"
}

// UserEthTransaction represents the user_eth_transactions association table.
// The pair (fid, transaction_unique_id) is not constrained; duplicates are removed by the maintenance sweep.
type UserEthTransaction struct {
	ID                  uint64 `gorm:"column:id;primaryKey;autoIncrement" parquet:"id"`
	FID                 int64  `gorm:"column:fid;not null;index:idx_user_eth_transactions_pair,priority:1" parquet:"fid"`
	TransactionUniqueID string `gorm:"column:transaction_unique_id;type:text;not null;index:idx_user_eth_transactions_pair,priority:2" parquet:"transaction_unique_id"`
}

// TableName specifies the table name for the UserEthTransaction model
func (UserEthTransaction) TableName() string {
	return "user_eth_transactions"
}
