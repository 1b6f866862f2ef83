package domain

import "time"

const (
	// UNRESOLVED_REGISTRATION marks a user whose registration time was not resolved yet
	UNRESOLVED_REGISTRATION int64 = -1

	// EMPTY_TRANSACTION_PREFIX prefixes the unique id of the placeholder transaction
	EMPTY_TRANSACTION_PREFIX = "empty:"

	// REACTION_MIN_CAST_AGE is how old a cast must be before its reactions are indexed
	REACTION_MIN_CAST_AGE = 7 * 24 * time.Hour

	// ETHEREUM_ZERO_ADDRESS is used as the sender of placeholder transactions
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"
)
