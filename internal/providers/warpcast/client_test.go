package warpcast_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/mocks"
	"github.com/feral-file/castindex/internal/providers/warpcast"
)

var expectedHeaders = map[string]string{
	"Authorization": "Bearer test-key",
	"Accept":        "application/json",
}

func TestWarpcastClient_GetRecentUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTPClient := mocks.NewMockHTTPClient(ctrl)
	client := warpcast.NewClient(mockHTTPClient, "https://api.warpcast.com", "test-key", adapter.NewJSON())
	ctx := context.Background()

	responseJSON := []byte(`{
		"result": {
			"users": [
				{
					"fid": 3,
					"username": "dwr",
					"displayName": "Dan Romero",
					"pfp": {"url": "https://i.imgur.com/dwr.png", "verified": true},
					"profile": {
						"bio": {"text": "Working on Farcaster"},
						"location": {"placeId": "ChIJ", "description": "Los Angeles, CA"}
					},
					"followerCount": 100,
					"followingCount": 20
				},
				{"fid": 4}
			]
		},
		"next": {"cursor": "abc"}
	}`)

	mockHTTPClient.EXPECT().
		GetBytes(ctx, "https://api.warpcast.com/v2/recent-users?limit=1000", expectedHeaders).
		Return(responseJSON, nil)

	page, err := client.GetRecentUsers(ctx, "", 1000)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "abc", page.Cursor)

	u := page.Users[0]
	require.NotNil(t, u.FID)
	assert.Equal(t, int64(3), *u.FID)
	assert.Equal(t, "dwr", *u.Username)
	assert.True(t, *u.Pfp.Verified)
	assert.Equal(t, "Los Angeles, CA", *u.Profile.Location.Description)

	assert.Nil(t, page.Users[1].Username)
	assert.Nil(t, page.Users[1].Profile)
}

func TestWarpcastClient_GetRecentCasts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTPClient := mocks.NewMockHTTPClient(ctrl)
	client := warpcast.NewClient(mockHTTPClient, "https://api.warpcast.com", "test-key", adapter.NewJSON())
	ctx := context.Background()

	mockHTTPClient.EXPECT().
		GetBytes(ctx, "https://api.warpcast.com/v2/recent-casts?cursor=c1&limit=2", expectedHeaders).
		Return([]byte(`{"result":{"casts":[
			{"hash":"0x1","threadHash":"0x1","author":{"fid":3},"text":"gm","timestamp":1700000000000},
			{"hash":"0x2","threadHash":"0x1","parentHash":"0x1","author":{"fid":4},"text":"gm!","timestamp":1699999999000}
		]}}`), nil)

	page, err := client.GetRecentCasts(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, page.Casts, 2)
	assert.Empty(t, page.Cursor)
	assert.Nil(t, page.Casts[0].ParentHash)
	assert.Equal(t, "0x1", *page.Casts[1].ParentHash)
	assert.Equal(t, int64(1699999999000), *page.Casts[1].Timestamp)
}

func TestWarpcastClient_GetCastReactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTPClient := mocks.NewMockHTTPClient(ctrl)
	client := warpcast.NewClient(mockHTTPClient, "https://api.warpcast.com", "test-key", adapter.NewJSON())
	ctx := context.Background()

	mockHTTPClient.EXPECT().
		GetBytes(ctx, "https://api.warpcast.com/v2/cast-reactions?castHash=0xabc&limit=100", expectedHeaders).
		Return([]byte(`{"result":{"reactions":[
			{"type":"like","hash":"0xr1","timestamp":1,"castHash":"0xabc","reactor":{"fid":9}}
		]},"next":{"cursor":"n"}}`), nil)

	page, err := client.GetCastReactions(ctx, "0xabc", "", 100)
	require.NoError(t, err)
	require.Len(t, page.Reactions, 1)
	assert.Equal(t, "like", *page.Reactions[0].Type)
	assert.Equal(t, int64(9), *page.Reactions[0].Reactor.FID)
	assert.Equal(t, "n", page.Cursor)
}

func TestWarpcastClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing api key fails before any request", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := warpcast.NewClient(mocks.NewMockHTTPClient(ctrl), "https://api.warpcast.com", "", adapter.NewJSON())
		_, err := client.GetRecentUsers(ctx, "", 10)
		assert.ErrorIs(t, err, domain.ErrMissingCredential)
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockHTTPClient := mocks.NewMockHTTPClient(ctrl)
		mockHTTPClient.EXPECT().
			GetBytes(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrRetriesExhausted)

		client := warpcast.NewClient(mockHTTPClient, "https://api.warpcast.com", "test-key", adapter.NewJSON())
		_, err := client.GetRecentCasts(ctx, "", 10)
		assert.True(t, errors.Is(err, domain.ErrRetriesExhausted))
	})

	t.Run("invalid json", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockHTTPClient := mocks.NewMockHTTPClient(ctrl)
		mockHTTPClient.EXPECT().
			GetBytes(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]byte(`not json`), nil)

		client := warpcast.NewClient(mockHTTPClient, "https://api.warpcast.com", "test-key", adapter.NewJSON())
		_, err := client.GetRecentCasts(ctx, "", 10)
		assert.Error(t, err)
	})
}
