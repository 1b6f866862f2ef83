package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReactionTypeIsValid(t *testing.T) {
	tests := []struct {
		name     string
		input    ReactionType
		expected bool
	}{
		{name: "like", input: ReactionTypeLike, expected: true},
		{name: "recast", input: ReactionTypeRecast, expected: true},
		{name: "empty", input: ReactionType(""), expected: false},
		{name: "unknown", input: ReactionType("follow"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.IsValid())
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase hex is checksummed",
			input:    "0xd8da6bf26964af9d7eed9e03e53415d37aa96045",
			expected: "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
		},
		{
			name:     "surrounding whitespace is trimmed",
			input:    "  0xd8da6bf26964af9d7eed9e03e53415d37aa96045 ",
			expected: "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
		},
		{
			name:     "non hex value is kept",
			input:    "vitalik.eth",
			expected: "vitalik.eth",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestEmptyTransactionID(t *testing.T) {
	id := EmptyTransactionID("0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	assert.Equal(t, "empty:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", id)

	tx := EthTransaction{UniqueID: id}
	assert.True(t, tx.IsEmpty())

	tx = EthTransaction{UniqueID: "0xabc:log:1"}
	assert.False(t, tx.IsEmpty())
}

func TestUserIsRegistrationResolved(t *testing.T) {
	u := User{FID: 1, RegisteredAt: UNRESOLVED_REGISTRATION}
	assert.False(t, u.IsRegistrationResolved())

	u.RegisteredAt = 0
	assert.True(t, u.IsRegistrationResolved())
}

func TestEnsRecordIsEmpty(t *testing.T) {
	r := EnsRecord{Address: "0x1"}
	assert.True(t, r.IsEmpty())

	name := "vitalik.eth"
	r.Ens = &name
	assert.False(t, r.IsEmpty())
}
