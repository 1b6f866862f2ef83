package warpcast

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
)

const PROVIDER_NAME = "warpcast"

// User is a profile from the recent-users feed
type User struct {
	FID            *int64   `json:"fid"`
	Username       *string  `json:"username"`
	DisplayName    *string  `json:"displayName"`
	Pfp            *Pfp     `json:"pfp"`
	Profile        *Profile `json:"profile"`
	FollowerCount  *int64   `json:"followerCount"`
	FollowingCount *int64   `json:"followingCount"`
}

// Pfp is the profile picture block
type Pfp struct {
	URL      *string `json:"url"`
	Verified *bool   `json:"verified"`
}

// Profile holds the free-form profile fields
type Profile struct {
	Bio      *Bio      `json:"bio"`
	Location *Location `json:"location"`
}

// Bio is the profile bio
type Bio struct {
	Text *string `json:"text"`
}

// Location is the place attached to a profile
type Location struct {
	PlaceID     *string `json:"placeId"`
	Description *string `json:"description"`
}

// Author identifies the account behind a cast or reaction
type Author struct {
	FID *int64 `json:"fid"`
}

// Cast is a post from the recent-casts feed
type Cast struct {
	Hash       *string `json:"hash"`
	ThreadHash *string `json:"threadHash"`
	ParentHash *string `json:"parentHash"`
	Author     *Author `json:"author"`
	Text       *string `json:"text"`
	Timestamp  *int64  `json:"timestamp"`
}

// Reaction is a like or recast on a cast
type Reaction struct {
	Type      *string `json:"type"`
	Hash      *string `json:"hash"`
	Timestamp *int64  `json:"timestamp"`
	CastHash  *string `json:"castHash"`
	Reactor   *Author `json:"reactor"`
}

// Next carries the cursor of the following page
type Next struct {
	Cursor string `json:"cursor"`
}

type usersResponse struct {
	Result struct {
		Users []User `json:"users"`
	} `json:"result"`
	Next *Next `json:"next"`
}

type castsResponse struct {
	Result struct {
		Casts []Cast `json:"casts"`
	} `json:"result"`
	Next *Next `json:"next"`
}

type reactionsResponse struct {
	Result struct {
		Reactions []Reaction `json:"reactions"`
	} `json:"result"`
	Next *Next `json:"next"`
}

// UsersPage is one page of the recent-users feed
type UsersPage struct {
	Users  []User
	Cursor string
}

// CastsPage is one page of the recent-casts feed, newest first
type CastsPage struct {
	Casts  []Cast
	Cursor string
}

// ReactionsPage is one page of reactions on a cast
type ReactionsPage struct {
	Reactions []Reaction
	Cursor    string
}

// Client defines the interface for the social API client to enable mocking
//
//go:generate mockgen -source=client.go -destination=../../mocks/warpcast_client.go -package=mocks -mock_names=Client=MockWarpcastClient
type Client interface {
	// GetRecentUsers fetches a page of recently joined users
	GetRecentUsers(ctx context.Context, cursor string, limit int) (*UsersPage, error)
	// GetRecentCasts fetches a page of casts, newest first
	GetRecentCasts(ctx context.Context, cursor string, limit int) (*CastsPage, error)
	// GetCastReactions fetches a page of reactions on a cast
	GetCastReactions(ctx context.Context, castHash string, cursor string, limit int) (*ReactionsPage, error)
}

// WarpcastClient implements Client over the Warpcast v2 API
type WarpcastClient struct {
	httpClient adapter.HTTPClient
	apiURL     string
	apiKey     string
	json       adapter.JSON
}

// NewClient creates a new social API client
func NewClient(httpClient adapter.HTTPClient, apiURL string, apiKey string, json adapter.JSON) Client {
	return &WarpcastClient{
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
		json:       json,
	}
}

func (c *WarpcastClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%s api key: %w", PROVIDER_NAME, domain.ErrMissingCredential)
	}

	endpoint := fmt.Sprintf("%s%s?%s", c.apiURL, path, query.Encode())
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Accept":        "application/json",
	}

	body, err := c.httpClient.GetBytes(ctx, endpoint, headers)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", PROVIDER_NAME, path, err)
	}

	if err := c.json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s %s response: %w", PROVIDER_NAME, path, err)
	}
	return nil
}

func pageQuery(cursor string, limit int) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return q
}

func nextCursor(n *Next) string {
	if n == nil {
		return ""
	}
	return n.Cursor
}

// GetRecentUsers fetches a page of recently joined users
func (c *WarpcastClient) GetRecentUsers(ctx context.Context, cursor string, limit int) (*UsersPage, error) {
	var resp usersResponse
	if err := c.get(ctx, "/v2/recent-users", pageQuery(cursor, limit), &resp); err != nil {
		return nil, err
	}
	return &UsersPage{Users: resp.Result.Users, Cursor: nextCursor(resp.Next)}, nil
}

// GetRecentCasts fetches a page of casts, newest first
func (c *WarpcastClient) GetRecentCasts(ctx context.Context, cursor string, limit int) (*CastsPage, error) {
	var resp castsResponse
	if err := c.get(ctx, "/v2/recent-casts", pageQuery(cursor, limit), &resp); err != nil {
		return nil, err
	}
	return &CastsPage{Casts: resp.Result.Casts, Cursor: nextCursor(resp.Next)}, nil
}

// GetCastReactions fetches a page of reactions on a cast
func (c *WarpcastClient) GetCastReactions(ctx context.Context, castHash string, cursor string, limit int) (*ReactionsPage, error) {
	q := pageQuery(cursor, limit)
	q.Set("castHash", castHash)

	var resp reactionsResponse
	if err := c.get(ctx, "/v2/cast-reactions", q, &resp); err != nil {
		return nil, err
	}
	return &ReactionsPage{Reactions: resp.Result.Reactions, Cursor: nextCursor(resp.Next)}, nil
}
