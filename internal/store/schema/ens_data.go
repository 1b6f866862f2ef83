package schema

import "gorm.io/datatypes"

// EnsData represents the ens_data table - resolution records keyed by address.
// Rows are replaced as a whole whenever a fresh resolution succeeds.
type EnsData struct {
	Address  string  `gorm:"column:address;primaryKey;type:text" parquet:"address"`
	Ens      *string `gorm:"column:ens;type:text;index" parquet:"ens"`
	URL      *string `gorm:"column:url;type:text" parquet:"url"`
	Github   *string `gorm:"column:github;type:text" parquet:"github"`
	Twitter  *string `gorm:"column:twitter;type:text" parquet:"twitter"`
	Telegram *string `gorm:"column:telegram;type:text" parquet:"telegram"`
	Email    *string `gorm:"column:email;type:text" parquet:"email"`
	Discord  *string `gorm:"column:discord;type:text" parquet:"discord"`
	// Raw keeps the full response for fields the indexer does not model
	Raw datatypes.JSON `gorm:"column:raw" parquet:"raw"`
}

// TableName specifies the table name for the EnsData model
func (EnsData) TableName() string {
	return "ens_data"
}
