package adapter

import (
	"encoding/json"
)

// JSON decodes provider payloads and encodes provider requests
//
//go:generate mockgen -source=json.go -destination=../mocks/json.go -package=mocks -mock_names=JSON=MockJSON
type JSON interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// RealJSON implements JSON using the standard encoding/json package
type RealJSON struct{}

// NewJSON creates a new real JSON implementation
func NewJSON() JSON {
	return &RealJSON{}
}

func (j *RealJSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j *RealJSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
