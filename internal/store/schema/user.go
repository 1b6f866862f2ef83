package schema

// User represents the users table - one row per network account keyed by fid
type User struct {
	// FID is the network-assigned account id
	FID int64 `gorm:"column:fid;primaryKey;autoIncrement:false" parquet:"fid"`
	// Username is the handle, nil when the account never claimed one
	Username *string `gorm:"column:username;type:text;index" parquet:"username"`
	// DisplayName is the profile display name
	DisplayName string `gorm:"column:display_name;type:text;not null;default:''" parquet:"display_name"`
	// Bio is the profile bio text
	Bio string `gorm:"column:bio;type:text;not null;default:''" parquet:"bio"`
	// PfpURL is the profile picture url
	PfpURL string `gorm:"column:pfp_url;type:text;not null;default:''" parquet:"pfp_url"`
	// FollowerCount and FollowingCount are copied from the profile at fetch time
	FollowerCount  int64 `gorm:"column:follower_count;not null;default:0" parquet:"follower_count"`
	FollowingCount int64 `gorm:"column:following_count;not null;default:0" parquet:"following_count"`
	// Verified indicates the profile carries the network's verification badge
	Verified bool `gorm:"column:verified;not null;default:false" parquet:"verified"`
	// Address is the custody address written by the enrichment pass
	Address *string `gorm:"column:address;type:text;index" parquet:"address"`
	// LocationID references locations.place_id
	LocationID *string `gorm:"column:location_id;type:text" parquet:"location_id"`
	// RegisteredAt is the registration time in milliseconds, -1 until the enrichment pass resolved it
	RegisteredAt int64 `gorm:"column:registered_at;not null;default:-1;index" parquet:"registered_at"`
	// IndexedAt is when the indexer first stored the row, in milliseconds. Never changed by merges.
	IndexedAt int64 `gorm:"column:indexed_at;not null;default:0" parquet:"indexed_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Location represents the locations table - places referenced by user profiles
type Location struct {
	// PlaceID is the opaque place identifier from the social API
	PlaceID string `gorm:"column:place_id;primaryKey;type:text" parquet:"place_id"`
	// Description is the human-readable place name
	Description string `gorm:"column:description;type:text;not null;default:''" parquet:"description"`
}

// TableName specifies the table name for the Location model
func (Location) TableName() string {
	return "locations"
}
