package searchcaster

import (
	"context"
	"fmt"
	"net/url"

	"github.com/feral-file/castindex/internal/adapter"
)

const PROVIDER_NAME = "searchcaster"

// Profile is one entry of the profiles lookup
type Profile struct {
	Body             ProfileBody `json:"body"`
	ConnectedAddress *string     `json:"connectedAddress"`
}

// ProfileBody holds the registration data of a profile
type ProfileBody struct {
	ID       *int64  `json:"id"`
	Username *string `json:"username"`
	// Address is the custody address
	Address *string `json:"address"`
	// RegisteredAt is milliseconds since epoch
	RegisteredAt *int64 `json:"registeredAt"`
}

// Client defines the interface for the address resolution client to enable mocking
//
//go:generate mockgen -source=client.go -destination=../../mocks/searchcaster_client.go -package=mocks -mock_names=Client=MockSearchcasterClient
type Client interface {
	// GetProfiles looks up the profiles registered under username
	GetProfiles(ctx context.Context, username string) ([]Profile, error)
}

// SearchcasterClient implements Client
type SearchcasterClient struct {
	httpClient adapter.HTTPClient
	apiURL     string
	json       adapter.JSON
}

// NewClient creates a new address resolution client
func NewClient(httpClient adapter.HTTPClient, apiURL string, json adapter.JSON) Client {
	return &SearchcasterClient{
		httpClient: httpClient,
		apiURL:     apiURL,
		json:       json,
	}
}

// GetProfiles looks up the profiles registered under username
func (c *SearchcasterClient) GetProfiles(ctx context.Context, username string) ([]Profile, error) {
	endpoint := fmt.Sprintf("%s/api/profiles?username=%s", c.apiURL, url.QueryEscape(username))

	body, err := c.httpClient.GetBytes(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", PROVIDER_NAME, err)
	}

	var profiles []Profile
	if err := c.json.Unmarshal(body, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", PROVIDER_NAME, err)
	}

	return profiles, nil
}
