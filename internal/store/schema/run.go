package schema

import "time"

// FetchRun represents the fetch_runs table - a journal of pipeline runs
type FetchRun struct {
	// ID is the ULID of the run
	ID       string `gorm:"column:id;primaryKey;type:text"`
	Pipeline string `gorm:"column:pipeline;type:text;not null;index"`
	// Status is "running", "succeeded" or "failed"
	Status    string     `gorm:"column:status;type:text;not null"`
	Fetched   int        `gorm:"column:fetched;not null;default:0"`
	Inserted  int        `gorm:"column:inserted;not null;default:0"`
	Merged    int        `gorm:"column:merged;not null;default:0"`
	Skipped   int        `gorm:"column:skipped;not null;default:0"`
	Dropped   int        `gorm:"column:dropped;not null;default:0"`
	Error     *string    `gorm:"column:error;type:text"`
	StartedAt time.Time  `gorm:"column:started_at;not null"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
}

// TableName specifies the table name for the FetchRun model
func (FetchRun) TableName() string {
	return "fetch_runs"
}

// All returns every model managed by the indexer, in dependency order
func All() []interface{} {
	return []interface{}{
		&Location{},
		&User{},
		&Cast{},
		&Reaction{},
		&EnsData{},
		&EthTransaction{},
		&ERC1155Metadata{},
		&UserEthTransaction{},
		&FetchRun{},
	}
}
