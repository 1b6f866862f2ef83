package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
)

func newTestApp(t *testing.T, name string, upstream string) *app {
	t.Helper()
	cfg := &config.IndexerConfig{
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   "file:castindex_" + name + "?mode=memory&cache=shared",
		},
		Warpcast:     config.WarpcastConfig{URL: upstream, APIKey: "warpcast-key"},
		Searchcaster: config.SearchcasterConfig{URL: upstream},
		Ensdata:      config.EnsdataConfig{URL: upstream},
		Fetch: config.FetchConfig{
			UsersPageSize:     10,
			CastsPageSize:     10,
			ReactionsPageSize: 10,
			AddressBatchSize:  1,
			RequestTimeout:    time.Second,
			RetryAttempts:     1,
		},
	}
	a, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func TestRunRefresh_MissingCredentialFailsBeforeFetching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	a := newTestApp(t, "missing_alchemy", srv.URL)

	err := runRefresh(ctx, a, []string{"all"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Contains(t, err.Error(), "alchemy.api_key")
	assert.Equal(t, int32(0), calls.Load())

	runs, err := a.store.GetRecentFetchRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRefresh_UnknownTarget(t *testing.T) {
	a := newTestApp(t, "unknown_target", "http://127.0.0.1:0")

	err := runRefresh(context.Background(), a, []string{"followers"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown refresh target")

	err = runRefresh(context.Background(), a, nil)
	require.Error(t, err)
}
