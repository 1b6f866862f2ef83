package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func stringPtr(s string) *string {
	return &s
}

func buildTestUser(fid int64, username string) domain.User {
	return domain.User{
		FID:           fid,
		Username:      stringPtr(username),
		DisplayName:   username,
		FollowerCount: fid * 10,
		RegisteredAt:  domain.UNRESOLVED_REGISTRATION,
	}
}

func buildTestCast(hash string, ts int64, author int64) domain.Cast {
	return domain.Cast{
		Hash:       hash,
		ThreadHash: hash,
		Text:       "gm " + hash,
		Timestamp:  ts,
		AuthorFID:  author,
	}
}

func buildTestTransaction(uniqueID, hash string, block int64) domain.TransactionBundle {
	value := 1.5
	return domain.TransactionBundle{
		Transaction: domain.EthTransaction{
			UniqueID:    uniqueID,
			Hash:        hash,
			BlockNum:    block,
			Timestamp:   block * 1000,
			FromAddress: domain.ETHEREUM_ZERO_ADDRESS,
			ToAddress:   stringPtr("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"),
			Value:       &value,
			Category:    "external",
		},
	}
}

// =============================================================================
// Tests
// =============================================================================

func testSaveCasts(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("insert then re-fetch is idempotent", func(t *testing.T) {
		casts := []domain.Cast{
			buildTestCast("0xc1", 1000, 1),
			buildTestCast("0xc2", 2000, 1),
			buildTestCast("0xc3", 3000, 2),
		}

		result, err := store.SaveCasts(ctx, casts)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Inserted)
		assert.Equal(t, 0, result.Skipped)

		before, err := store.CountRows(ctx)
		require.NoError(t, err)

		result, err = store.SaveCasts(ctx, casts)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Inserted)
		assert.Equal(t, 3, result.Skipped)

		after, err := store.CountRows(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("duplicates within a batch keep the first", func(t *testing.T) {
		first := buildTestCast("0xd1", 5000, 1)
		second := first
		second.Text = "changed"

		result, err := store.SaveCasts(ctx, []domain.Cast{first, second})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Inserted)
		assert.Equal(t, 1, result.Skipped)

		res, err := store.RawQuery(ctx, "SELECT text FROM casts WHERE hash = '0xd1'")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "gm 0xd1", res.Rows[0][0])
	})

	t.Run("empty input", func(t *testing.T) {
		result, err := store.SaveCasts(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, WriteResult{}, result)
	})
}

func testLatestCastTimestamp(t *testing.T, store Store) {
	ctx := context.Background()

	ts, err := store.GetLatestCastTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	_, err = store.SaveCasts(ctx, []domain.Cast{
		buildTestCast("0xa", 1200, 1),
		buildTestCast("0xb", 1100, 1),
	})
	require.NoError(t, err)

	ts, err = store.GetLatestCastTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), ts)
}

func testSaveReactions(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.SaveCasts(ctx, []domain.Cast{buildTestCast("0xcast", 1000, 1)})
	require.NoError(t, err)

	reactions := []domain.Reaction{
		{Hash: "0xr1", ReactionType: domain.ReactionTypeLike, Timestamp: 2000, ReactorFID: 2, TargetHash: "0xcast"},
		{Hash: "0xr2", ReactionType: domain.ReactionTypeRecast, Timestamp: 2001, ReactorFID: 3, TargetHash: "0xcast"},
		{Hash: "0xr3", ReactionType: domain.ReactionTypeLike, Timestamp: 2002, ReactorFID: 3, TargetHash: "0xmissing"},
	}

	result, err := store.SaveReactions(ctx, reactions)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Dropped)

	result, err = store.SaveReactions(ctx, reactions[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Skipped)
}

func testReactionEligibleCasts(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.SaveCasts(ctx, []domain.Cast{
		buildTestCast("0xold-no-reaction", 1000, 1),
		buildTestCast("0xold-with-reaction", 1500, 1),
		buildTestCast("0xrecent", 9000, 1),
	})
	require.NoError(t, err)
	_, err = store.SaveReactions(ctx, []domain.Reaction{
		{Hash: "0xr", ReactionType: domain.ReactionTypeLike, Timestamp: 2000, ReactorFID: 2, TargetHash: "0xold-with-reaction"},
	})
	require.NoError(t, err)

	hashes, err := store.GetReactionEligibleCasts(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xold-no-reaction"}, hashes)
}

func testSaveUsers(t *testing.T, store Store) {
	ctx := context.Background()

	alice := buildTestUser(1, "alice")
	alice.LocationID = stringPtr("place-1")
	bob := buildTestUser(2, "bob")

	result, err := store.SaveUsers(ctx, []domain.User{alice, bob}, []domain.Location{
		{PlaceID: "place-1", Description: "Lisbon"},
		{PlaceID: "place-1", Description: "Lisbon"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	counts, err := store.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["locations"])
	assert.Equal(t, int64(2), counts["users"])

	t.Run("enrichment fields survive a feed refresh", func(t *testing.T) {
		reg, err := store.ApplyRegistrations(ctx, []domain.UserRegistration{
			{FID: 1, Address: stringPtr("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"), RegisteredAt: 1234},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, reg.Updated)

		refreshed := buildTestUser(1, "alice")
		refreshed.DisplayName = "Alice"
		refreshed.FollowerCount = 99

		result, err := store.SaveUsers(ctx, []domain.User{refreshed}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)

		users, err := store.GetUsersByFIDs(ctx, []int64{1})
		require.NoError(t, err)
		require.Contains(t, users, int64(1))
		got := users[1]
		assert.Equal(t, "Alice", got.DisplayName)
		assert.Equal(t, int64(99), got.FollowerCount)
		assert.Equal(t, int64(1234), got.RegisteredAt)
		require.NotNil(t, got.Address)
		assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", *got.Address)
		require.NotNil(t, got.LocationID)
		assert.Equal(t, "place-1", *got.LocationID)
	})

	t.Run("unchanged users are skipped", func(t *testing.T) {
		result, err := store.SaveUsers(ctx, []domain.User{bob}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 0, result.Updated)
	})
}

func testApplyRegistrations(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.SaveUsers(ctx, []domain.User{buildTestUser(1, "alice"), buildTestUser(2, "bob")}, nil)
	require.NoError(t, err)

	unresolved, err := store.GetUnresolvedUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, unresolved, 2)

	result, err := store.ApplyRegistrations(ctx, []domain.UserRegistration{
		{FID: 1, Address: stringPtr("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"), RegisteredAt: 1000},
		{FID: 2, RegisteredAt: domain.UNRESOLVED_REGISTRATION},
		{FID: 99, RegisteredAt: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Dropped)

	unresolved, err = store.GetUnresolvedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, int64(2), unresolved[0].FID)

	addresses, err := store.GetUserAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"}, addresses)

	fids, err := store.GetAddressFIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045": 1}, fids)

	// a second resolution never overwrites the first
	_, err = store.ApplyRegistrations(ctx, []domain.UserRegistration{
		{FID: 1, Address: stringPtr("0x0000000000000000000000000000000000000001"), RegisteredAt: 2000},
	})
	require.NoError(t, err)
	users, err := store.GetUsersByFIDs(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), users[1].RegisteredAt)

	// resolved users survive a targeted delete
	deleted, err := store.DeleteUnresolvedUsersByFIDs(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = store.DeleteUnresolvedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	users, err = store.GetUsersByFIDs(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Contains(t, users, int64(1))

	unresolved, err = store.GetUnresolvedUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func testSaveEnsRecords(t *testing.T, store Store) {
	ctx := context.Background()
	address := "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

	result, err := store.SaveEnsRecords(ctx, []domain.EnsRecord{
		{Address: address, Ens: stringPtr("vitalik.eth"), Twitter: stringPtr("VitalikButerin"), Raw: []byte(`{"ens":"vitalik.eth"}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	result, err = store.SaveEnsRecords(ctx, []domain.EnsRecord{
		{Address: address, Ens: stringPtr("vitalik.eth"), Github: stringPtr("vbuterin")},
		{Address: "0x0000000000000000000000000000000000000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	res, err := store.RawQuery(ctx, "SELECT github, twitter FROM ens_data")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "vbuterin", res.Rows[0][0])
	assert.Nil(t, res.Rows[0][1])
}

func testSaveTransactions(t *testing.T, store Store) {
	ctx := context.Background()

	batch := buildTestTransaction("0xt1:log:0", "0xt1", 100)
	batch.Transaction.Category = "erc1155"
	batch.Metadata = []domain.TokenTransferMetadata{
		{TransactionHash: "0xt1", TokenID: "0x1", Value: "0x2"},
		{TransactionHash: "0xt1", TokenID: "0x2", Value: "0x1"},
	}
	plain := buildTestTransaction("0xt2:log:0", "0xt2", 200)

	links := []domain.UserTransaction{
		{FID: 1, TransactionUniqueID: "0xt1:log:0"},
		{FID: 1, TransactionUniqueID: "0xt2:log:0"},
		{FID: 1, TransactionUniqueID: "0xt2:log:0"},
		{FID: 1, TransactionUniqueID: "0xunknown"},
	}

	result, err := store.SaveTransactions(ctx, []domain.TransactionBundle{batch, plain}, links)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Dropped)

	counts, err := store.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["eth_transactions"])
	assert.Equal(t, int64(2), counts["erc1155_metadata"])
	assert.Equal(t, int64(2), counts["user_eth_transactions"])

	res, err := store.RawQuery(ctx, "SELECT DISTINCT transaction_hash FROM erc1155_metadata")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "0xt1", res.Rows[0][0])

	block, err := store.GetLatestBlockForFID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), block)

	block, err = store.GetLatestBlockForFID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block)

	// re-fetching the same range adds nothing
	result, err = store.SaveTransactions(ctx, []domain.TransactionBundle{batch, plain}, links[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Skipped)

	counts, err = store.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["erc1155_metadata"])
	assert.Equal(t, int64(2), counts["user_eth_transactions"])
}

func testDeleteDuplicateAssociations(t *testing.T, store Store, seed func(rows []schema.UserEthTransaction)) {
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []domain.TransactionBundle{
		buildTestTransaction("tx-a", "0xa", 1),
		buildTestTransaction("tx-b", "0xb", 2),
	}, nil)
	require.NoError(t, err)

	seed([]schema.UserEthTransaction{
		{FID: 1, TransactionUniqueID: "tx-a"},
		{FID: 1, TransactionUniqueID: "tx-a"},
		{FID: 1, TransactionUniqueID: "tx-a"},
		{FID: 1, TransactionUniqueID: "tx-b"},
		{FID: 2, TransactionUniqueID: "tx-a"},
		{FID: 2, TransactionUniqueID: "tx-a"},
	})

	deleted, err := store.DeleteDuplicateAssociations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	res, err := store.RawQuery(ctx,
		"SELECT fid, transaction_unique_id, COUNT(*) AS n FROM user_eth_transactions GROUP BY fid, transaction_unique_id HAVING COUNT(*) > 1")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	counts, err := store.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["user_eth_transactions"])

	deleted, err = store.DeleteDuplicateAssociations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func testWatermarks(t *testing.T, store Store) {
	ctx := context.Background()

	w, err := store.GetWatermarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, Watermarks{}, w)

	_, err = store.SaveUsers(ctx, []domain.User{buildTestUser(7, "g"), buildTestUser(42, "h")}, nil)
	require.NoError(t, err)
	_, err = store.SaveCasts(ctx, []domain.Cast{buildTestCast("0x1", 111, 7), buildTestCast("0x2", 333, 42)})
	require.NoError(t, err)

	w, err = store.GetWatermarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, Watermarks{MaxCastTimestamp: 333, MaxFID: 42}, w)
}

func testRawQueryIsReadOnly(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.SaveCasts(ctx, []domain.Cast{buildTestCast("0x1", 111, 7)})
	require.NoError(t, err)

	_, err = store.RawQuery(ctx, "DELETE FROM casts")
	assert.Error(t, err)

	res, err := store.RawQuery(ctx, "SELECT COUNT(*) AS n FROM casts")
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 1, res.Rows[0][0])
}

func testExportRows(t *testing.T, store Store) {
	ctx := context.Background()

	var casts []domain.Cast
	for i := range 5 {
		casts = append(casts, buildTestCast(string(rune('a'+i)), int64(i), 1))
	}
	_, err := store.SaveCasts(ctx, casts)
	require.NoError(t, err)

	var rows []schema.Cast
	var seen []string
	batches := 0
	err = store.ExportRows(ctx, &rows, 2, func() error {
		batches++
		for _, r := range rows {
			seen = append(seen, r.Hash)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func testFetchRuns(t *testing.T, store Store) {
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	first := &schema.FetchRun{ID: "01J0000000000000000000000A", Pipeline: "casts", Status: "running", StartedAt: started}
	second := &schema.FetchRun{ID: "01J0000000000000000000000B", Pipeline: "users", Status: "running", StartedAt: started.Add(time.Minute)}
	require.NoError(t, store.CreateFetchRun(ctx, first))
	require.NoError(t, store.CreateFetchRun(ctx, second))

	ended := started.Add(2 * time.Minute)
	first.Status = "succeeded"
	first.Inserted = 10
	first.EndedAt = &ended
	require.NoError(t, store.UpdateFetchRun(ctx, first))

	runs, err := store.GetRecentFetchRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "users", runs[0].Pipeline)
	assert.Equal(t, "succeeded", runs[1].Status)
	assert.Equal(t, 10, runs[1].Inserted)
	require.NotNil(t, runs[1].EndedAt)
}

// =============================================================================
// Test Runner
// =============================================================================

// RunStoreTests runs every store test against the implementation returned by initDB.
// seed inserts raw association rows, bypassing the merge path.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) (Store, func(rows []schema.UserEthTransaction))) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store Store)
	}{
		{"SaveCasts", testSaveCasts},
		{"LatestCastTimestamp", testLatestCastTimestamp},
		{"SaveReactions", testSaveReactions},
		{"ReactionEligibleCasts", testReactionEligibleCasts},
		{"SaveUsers", testSaveUsers},
		{"ApplyRegistrations", testApplyRegistrations},
		{"SaveEnsRecords", testSaveEnsRecords},
		{"SaveTransactions", testSaveTransactions},
		{"Watermarks", testWatermarks},
		{"RawQueryIsReadOnly", testRawQueryIsReadOnly},
		{"ExportRows", testExportRows},
		{"FetchRuns", testFetchRuns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := initDB(t)
			tt.fn(t, store)
		})
	}

	t.Run("DeleteDuplicateAssociations", func(t *testing.T) {
		store, seed := initDB(t)
		testDeleteDuplicateAssociations(t, store, seed)
	})
}
