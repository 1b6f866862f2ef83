package ensdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
)

const PROVIDER_NAME = "ensdata"

// Record is the resolution data returned for an address
type Record struct {
	Address  *string `json:"address"`
	Ens      *string `json:"ens"`
	URL      *string `json:"url"`
	Github   *string `json:"github"`
	Twitter  *string `json:"twitter"`
	Telegram *string `json:"telegram"`
	Email    *string `json:"email"`
	Discord  *string `json:"discord"`
	// Raw is the response body as received
	Raw json.RawMessage `json:"-"`
}

// Client defines the interface for the ENS lookup client to enable mocking
//
//go:generate mockgen -source=client.go -destination=../../mocks/ensdata_client.go -package=mocks -mock_names=Client=MockEnsdataClient
type Client interface {
	// Resolve looks up the records of address. An unknown address resolves to nil without error.
	Resolve(ctx context.Context, address string) (*Record, error)
}

// EnsdataClient implements Client
type EnsdataClient struct {
	httpClient adapter.HTTPClient
	apiURL     string
	json       adapter.JSON
}

// NewClient creates a new ENS lookup client
func NewClient(httpClient adapter.HTTPClient, apiURL string, json adapter.JSON) Client {
	return &EnsdataClient{
		httpClient: httpClient,
		apiURL:     apiURL,
		json:       json,
	}
}

// Resolve looks up the records of address
func (c *EnsdataClient) Resolve(ctx context.Context, address string) (*Record, error) {
	endpoint := fmt.Sprintf("%s/%s", c.apiURL, address)

	body, err := c.httpClient.GetBytes(ctx, endpoint, nil)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to call %s: %w", PROVIDER_NAME, err)
	}

	var record Record
	if err := c.json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", PROVIDER_NAME, err)
	}
	record.Raw = json.RawMessage(body)

	return &record, nil
}
