package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/indexer"
	"github.com/feral-file/castindex/internal/mocks"
	"github.com/feral-file/castindex/internal/providers/alchemy"
	"github.com/feral-file/castindex/internal/providers/ensdata"
	"github.com/feral-file/castindex/internal/providers/searchcaster"
	"github.com/feral-file/castindex/internal/providers/warpcast"
	"github.com/feral-file/castindex/internal/store"
)

var dbCounter atomic.Int64

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   fmt.Sprintf("file:indexer_test_%d?mode=memory&cache=shared", dbCounter.Add(1)),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewStore(db)
}

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		UsersPageSize:        100,
		CastsPageSize:        100,
		ReactionsPageSize:    100,
		AddressBatchSize:     50,
		ReactionBatchSize:    10,
		TransactionBatchSize: 5,
		ReactionMinCastAge:   domain.REACTION_MIN_CAST_AGE,
	}
}

func noDelayPaginator() *fetcher.Paginator {
	return fetcher.NewPaginator(adapter.NewClock(), 0)
}

func castDTO(hash string, ts int64) warpcast.Cast {
	return warpcast.Cast{
		Hash:      ptr(hash),
		Author:    &warpcast.Author{FID: ptr(int64(1))},
		Text:      ptr("gm"),
		Timestamp: ptr(ts),
	}
}

func TestCastCheckpoint(t *testing.T) {
	cp := indexer.CastCheckpoint{Since: 1000}

	assert.True(t, cp.Stop([]warpcast.Cast{castDTO("a", 1200), castDTO("b", 900), castDTO("c", 1100)}))
	assert.False(t, cp.Stop([]warpcast.Cast{castDTO("a", 1200), castDTO("c", 1000)}))
	assert.False(t, indexer.CastCheckpoint{}.Stop([]warpcast.Cast{castDTO("a", 1)}))

	kept := cp.Filter([]domain.Cast{{Hash: "a", Timestamp: 1200}, {Hash: "b", Timestamp: 900}, {Hash: "c", Timestamp: 1100}})
	require.Len(t, kept, 2)
	assert.Equal(t, int64(1200), kept[0].Timestamp)
	assert.Equal(t, int64(1100), kept[1].Timestamp)
}

func TestNewBlockRange(t *testing.T) {
	r, ok := indexer.NewBlockRange(0, 100)
	assert.True(t, ok)
	assert.Equal(t, indexer.BlockRange{From: 0, To: 100}, r)

	r, ok = indexer.NewBlockRange(80, 100)
	assert.True(t, ok)
	assert.Equal(t, uint64(80), r.From)

	_, ok = indexer.NewBlockRange(120, 100)
	assert.False(t, ok)
}

func TestReactionCutoff(t *testing.T) {
	now := time.UnixMilli(10 * 24 * 3600 * 1000)
	assert.Equal(t, int64(3*24*3600*1000), indexer.ReactionCutoff(now, 7*24*time.Hour))
}

func TestCastsPipeline_IncrementalCheckpoint(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := newTestStore(t)
	_, err := st.SaveCasts(ctx, []domain.Cast{{Hash: "0xseed", ThreadHash: "0xseed", Timestamp: 1000, AuthorFID: 1}})
	require.NoError(t, err)

	client := mocks.NewMockWarpcastClient(ctrl)
	// the second page must never be requested: the first one already reaches below the checkpoint
	client.EXPECT().GetRecentCasts(gomock.Any(), "", 100).Return(&warpcast.CastsPage{
		Casts:  []warpcast.Cast{castDTO("0xa", 1200), castDTO("0xb", 900), castDTO("0xc", 1100)},
		Cursor: "next",
	}, nil).Times(2)

	p := indexer.NewCastsPipeline(client, st, noDelayPaginator(), testFetchConfig())

	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)

	latest, err := st.GetLatestCastTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), latest)

	// re-fetching the same feed changes nothing and the checkpoint never moves backwards
	stats, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)

	again, err := st.GetLatestCastTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest, again)

	counts, err := st.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["casts"])
}

func TestCastsPipeline_FetchFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := newTestStore(t)
	client := mocks.NewMockWarpcastClient(ctrl)
	client.EXPECT().GetRecentCasts(gomock.Any(), "", 100).Return(&warpcast.CastsPage{
		Casts:  []warpcast.Cast{castDTO("0xa", 1200)},
		Cursor: "c1",
	}, nil)
	client.EXPECT().GetRecentCasts(gomock.Any(), "c1", 100).Return(nil, domain.ErrRetriesExhausted)

	_, err := indexer.NewCastsPipeline(client, st, noDelayPaginator(), testFetchConfig()).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRetriesExhausted))

	counts, err := st.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts["casts"])
}

func TestUsersPipeline(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := newTestStore(t)
	client := mocks.NewMockWarpcastClient(ctrl)
	client.EXPECT().GetRecentUsers(gomock.Any(), "", 100).Return(&warpcast.UsersPage{
		Users: []warpcast.User{
			{
				FID:      ptr(int64(1)),
				Username: ptr("alice"),
				Profile:  &warpcast.Profile{Location: &warpcast.Location{PlaceID: ptr("p1"), Description: ptr("Berlin")}},
			},
			{Username: ptr("nofid")},
		},
		Cursor: "c1",
	}, nil)
	client.EXPECT().GetRecentUsers(gomock.Any(), "c1", 100).Return(&warpcast.UsersPage{
		Users: []warpcast.User{{FID: ptr(int64(2)), Username: ptr("bob")}},
	}, nil)

	stats, err := indexer.NewUsersPipeline(client, st, noDelayPaginator(), testFetchConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Dropped)

	users, err := st.GetUsersByFIDs(ctx, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NotNil(t, users[1].LocationID)
	assert.Equal(t, "p1", *users[1].LocationID)
	assert.Equal(t, domain.UNRESOLVED_REGISTRATION, users[2].RegisteredAt)
}

func TestReactionsPipeline(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.UnixMilli(30 * 24 * 3600 * 1000)
	old := now.Add(-10 * 24 * time.Hour).UnixMilli()

	st := newTestStore(t)
	_, err := st.SaveCasts(ctx, []domain.Cast{
		{Hash: "0xold", ThreadHash: "0xold", Timestamp: old, AuthorFID: 1},
		{Hash: "0xbroken", ThreadHash: "0xbroken", Timestamp: old + 1, AuthorFID: 1},
		{Hash: "0xfresh", ThreadHash: "0xfresh", Timestamp: now.UnixMilli(), AuthorFID: 1},
	})
	require.NoError(t, err)

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	client := mocks.NewMockWarpcastClient(ctrl)
	client.EXPECT().GetCastReactions(gomock.Any(), "0xold", "", 100).Return(&warpcast.ReactionsPage{
		Reactions: []warpcast.Reaction{
			{Type: ptr("like"), Hash: ptr("0xr1"), Timestamp: ptr(old + 5), CastHash: ptr("0xold"), Reactor: &warpcast.Author{FID: ptr(int64(2))}},
			{Type: ptr("recast"), Hash: ptr("0xr2"), Timestamp: ptr(old + 6), CastHash: ptr("0xold"), Reactor: &warpcast.Author{FID: ptr(int64(3))}},
		},
	}, nil)
	client.EXPECT().GetCastReactions(gomock.Any(), "0xbroken", "", 100).Return(nil, domain.ErrRetriesExhausted)

	p := indexer.NewReactionsPipeline(client, st, noDelayPaginator(), clock, testFetchConfig())
	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Failed)

	// the failed cast stays eligible, the indexed one does not
	eligible, err := st.GetReactionEligibleCasts(ctx, indexer.ReactionCutoff(now, domain.REACTION_MIN_CAST_AGE))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xbroken"}, eligible)
}

func TestEnrichPipeline(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := newTestStore(t)
	_, err := st.SaveUsers(ctx, []domain.User{
		{FID: 1, Username: ptr("alice"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
		{FID: 2, RegisteredAt: domain.UNRESOLVED_REGISTRATION},
		{FID: 3, Username: ptr("carol"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
		{FID: 7, Username: ptr("ghost"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
	}, nil)
	require.NoError(t, err)

	client := mocks.NewMockSearchcasterClient(ctrl)
	client.EXPECT().GetProfiles(gomock.Any(), "alice").Return([]searchcaster.Profile{
		{Body: searchcaster.ProfileBody{ID: ptr(int64(99)), Address: ptr("0x1111111111111111111111111111111111111111")}},
		{Body: searchcaster.ProfileBody{
			ID:           ptr(int64(1)),
			Address:      ptr("0xab5801a7d398351b8be11c439e05c5b3259aec9b"),
			RegisteredAt: ptr(int64(1650000000000)),
		}},
	}, nil)
	client.EXPECT().GetProfiles(gomock.Any(), "carol").Return(nil, domain.ErrRetriesExhausted)
	client.EXPECT().GetProfiles(gomock.Any(), "ghost").Return(nil, nil)

	stats, err := indexer.NewEnrichPipeline(client, st, testFetchConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Dropped)

	// the user without a registration is gone, the failed lookup waits for the next run
	ghost, err := st.GetUsersByFIDs(ctx, []int64{7})
	require.NoError(t, err)
	assert.Empty(t, ghost)

	users, err := st.GetUsersByFIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.NotNil(t, users[1].Address)
	assert.Equal(t, common.HexToAddress("0xab5801a7d398351b8be11c439e05c5b3259aec9b").Hex(), *users[1].Address)
	assert.Equal(t, int64(1650000000000), users[1].RegisteredAt)

	unresolved, err := st.GetUnresolvedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 2)
	assert.Equal(t, int64(2), unresolved[0].FID)
	assert.Equal(t, int64(3), unresolved[1].FID)
}

func TestEnsPipeline(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := newTestStore(t)
	_, err := st.SaveUsers(ctx, []domain.User{
		{FID: 1, Username: ptr("alice"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
		{FID: 2, Username: ptr("bob"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
	}, nil)
	require.NoError(t, err)
	addrA := "0x1111111111111111111111111111111111111111"
	addrB := "0x2222222222222222222222222222222222222222"
	_, err = st.ApplyRegistrations(ctx, []domain.UserRegistration{
		{FID: 1, Address: ptr(addrA), RegisteredAt: 1},
		{FID: 2, Address: ptr(addrB), RegisteredAt: 2},
	})
	require.NoError(t, err)

	client := mocks.NewMockEnsdataClient(ctrl)
	client.EXPECT().Resolve(gomock.Any(), addrA).Return(&ensdata.Record{Ens: ptr("alice.eth")}, nil).Times(2)
	client.EXPECT().Resolve(gomock.Any(), addrB).Return(nil, nil).Times(2)

	p := indexer.NewEnsPipeline(client, st, testFetchConfig())
	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	// a second resolution replaces the stored record
	stats, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 1, stats.Merged)

	result, err := st.RawQuery(ctx, "SELECT address, ens FROM ens_data")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, addrA, fmt.Sprint(result.Rows[0][0]))
	assert.Equal(t, "alice.eth", fmt.Sprint(result.Rows[0][1]))
}

func TestTransactionsPipeline(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	addrA := "0x1111111111111111111111111111111111111111"
	addrB := "0x2222222222222222222222222222222222222222"

	st := newTestStore(t)
	_, err := st.SaveUsers(ctx, []domain.User{
		{FID: 1, Username: ptr("alice"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
		{FID: 2, Username: ptr("bob"), RegisteredAt: domain.UNRESOLVED_REGISTRATION},
	}, nil)
	require.NoError(t, err)
	_, err = st.ApplyRegistrations(ctx, []domain.UserRegistration{
		{FID: 1, Address: ptr(addrA), RegisteredAt: 1},
		{FID: 2, Address: ptr(addrB), RegisteredAt: 2},
	})
	require.NoError(t, err)

	client := mocks.NewMockAlchemyClient(ctrl)
	client.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(100), nil).Times(2)
	client.EXPECT().GetAssetTransfers(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params alchemy.TransferParams) (*alchemy.TransfersPage, error) {
			if params.ToAddress != addrA {
				return &alchemy.TransfersPage{}, nil
			}
			if params.PageKey == "" {
				return &alchemy.TransfersPage{
					Transfers: []alchemy.Transfer{{
						BlockNum: ptr("0x40"),
						UniqueID: ptr("0xt1:log:0"),
						Hash:     ptr("0xt1"),
						From:     ptr(addrB),
						To:       ptr(addrA),
						Category: ptr("erc1155"),
						ERC1155Metadata: []alchemy.ERC1155Metadata{
							{TokenID: ptr("0x1"), Value: ptr("0x1")},
							{TokenID: ptr("0x2"), Value: ptr("0x3")},
						},
					}},
					PageKey: "k1",
				}, nil
			}
			return &alchemy.TransfersPage{
				Transfers: []alchemy.Transfer{{BlockNum: ptr("0x50"), UniqueID: ptr("0xt2:external"), Hash: ptr("0xt2"), From: ptr(addrB), To: ptr(addrA)}},
			}, nil
		}).AnyTimes()

	p := indexer.NewTransactionsPipeline(client, st, noDelayPaginator(), testFetchConfig())

	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 3, stats.Inserted) // two transfers and the placeholder of bob

	blockA, err := st.GetLatestBlockForFID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0x50), blockA)

	blockB, err := st.GetLatestBlockForFID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), blockB)

	counts, err := st.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["eth_transactions"])
	assert.Equal(t, int64(2), counts["erc1155_metadata"])
	assert.Equal(t, int64(3), counts["user_eth_transactions"])

	// a second run re-fetches from the checkpoints and stores nothing new
	stats, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)

	counts, err = st.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["eth_transactions"])
	assert.Equal(t, int64(3), counts["user_eth_transactions"])
}

type stubPipeline struct {
	stats indexer.Stats
	err   error
}

func (s stubPipeline) Name() string                               { return "stub" }
func (s stubPipeline) Run(context.Context) (indexer.Stats, error) { return s.stats, s.err }

func TestRunner_JournalsRuns(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	runner := indexer.NewRunner(st, adapter.NewClock())

	_, err := runner.Run(ctx, stubPipeline{stats: indexer.Stats{Fetched: 4, Inserted: 3}})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = runner.Run(ctx, stubPipeline{err: boom})
	require.ErrorIs(t, err, boom)

	runs, err := st.GetRecentFetchRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	statuses := map[string]int{}
	for _, run := range runs {
		statuses[run.Status]++
		assert.NotNil(t, run.EndedAt)
		assert.Len(t, run.ID, 26)
	}
	assert.Equal(t, 1, statuses[indexer.RunStatusSucceeded])
	assert.Equal(t, 1, statuses[indexer.RunStatusFailed])
}
