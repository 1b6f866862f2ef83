package schema

// Cast represents the casts table - posts keyed by their content hash
type Cast struct {
	// Hash is the content hash assigned by the network
	Hash string `gorm:"column:hash;primaryKey;type:text" parquet:"hash"`
	// ThreadHash is the hash of the root cast of the thread
	ThreadHash string `gorm:"column:thread_hash;type:text;not null;index" parquet:"thread_hash"`
	// ParentHash is the hash of the cast being replied to, nil for root casts
	ParentHash *string `gorm:"column:parent_hash;type:text" parquet:"parent_hash"`
	// Text is the cast body
	Text string `gorm:"column:text;type:text;not null;default:''" parquet:"text"`
	// Timestamp is milliseconds since epoch
	Timestamp int64 `gorm:"column:timestamp;not null;index" parquet:"timestamp"`
	// AuthorFID references users.fid
	AuthorFID int64 `gorm:"column:author_fid;not null;index" parquet:"author_fid"`
}

// TableName specifies the table name for the Cast model
func (Cast) TableName() string {
	return "casts"
}

// Reaction represents the reactions table - likes and recasts keyed by their content hash
type Reaction struct {
	// Hash is the content hash assigned by the network
	Hash string `gorm:"column:hash;primaryKey;type:text" parquet:"hash"`
	// ReactionType is either "like" or "recast"
	ReactionType string `gorm:"column:reaction_type;type:text;not null" parquet:"reaction_type"`
	// Timestamp is milliseconds since epoch
	Timestamp int64 `gorm:"column:timestamp;not null" parquet:"timestamp"`
	// ReactorFID references users.fid
	ReactorFID int64 `gorm:"column:reactor_fid;not null;index" parquet:"reactor_fid"`
	// TargetHash references casts.hash
	TargetHash string `gorm:"column:target_hash;type:text;not null;index" parquet:"target_hash"`
}

// TableName specifies the table name for the Reaction model
func (Reaction) TableName() string {
	return "reactions"
}
