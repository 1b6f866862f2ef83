package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/merge"
	"github.com/feral-file/castindex/internal/store/schema"
)

// Fields per record, used to size insert batches
const (
	userFields        = 12
	locationFields    = 2
	castFields        = 6
	reactionFields    = 5
	ensFields         = 9
	transactionFields = 12
	metadataFields    = 3
	linkFields        = 2
)

var errRollbackReadOnly = errors.New("read-only query rollback")

type gormStore struct {
	db        *gorm.DB
	maxParams int
	now       func() time.Time
}

// NewStore creates a store on top of an open gorm connection (PostgreSQL or SQLite)
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, maxParams: maxParamsFor(db), now: time.Now}
}

// lookupChunk is the number of keys per IN lookup
func (s *gormStore) lookupChunk() int {
	return s.maxParams - 1000
}

// existingKeys returns the subset of keys already present in column of model
func existingKeys[K string | int64](tx *gorm.DB, model any, column string, keys []K, chunk int) (merge.KeySet[K], error) {
	set := merge.NewKeySet[K]()
	for part := range slices.Chunk(keys, chunk) {
		var found []K
		if err := tx.Model(model).Where(column+" IN ?", part).Pluck(column, &found).Error; err != nil {
			return nil, fmt.Errorf("failed to look up existing %s: %w", column, err)
		}
		for _, k := range found {
			set.Add(k)
		}
	}
	return set, nil
}

// insertRows bulk inserts rows, ignoring rows whose primary key already exists
func insertRows[T any](tx *gorm.DB, rows []T, fieldsPerRecord, maxParams int) error {
	if len(rows) == 0 {
		return nil
	}
	batchSize := calculateSafeBatchSize(len(rows), fieldsPerRecord, maxParams)
	return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, batchSize).Error
}

func mapRows[R, T any](records []R, fn func(R) T) []T {
	rows := make([]T, 0, len(records))
	for _, r := range records {
		rows = append(rows, fn(r))
	}
	return rows
}

// SaveUsers writes locations then users in one transaction.
// The result counts users only; locations are insert-only and never updated.
func (s *gormStore) SaveUsers(ctx context.Context, users []domain.User, locations []domain.Location) (WriteResult, error) {
	var result WriteResult
	if len(users) == 0 && len(locations) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(locations) > 0 {
			existing, err := existingKeys(tx, &schema.Location{}, "place_id", merge.Keys(locations, merge.LocationKey), s.lookupChunk())
			if err != nil {
				return err
			}
			toInsert, _ := merge.Merge(existing, locations, merge.LocationKey)
			if err := insertRows(tx, mapRows(toInsert, locationToRow), locationFields, s.maxParams); err != nil {
				return fmt.Errorf("failed to insert locations: %w", err)
			}
		}

		if len(users) == 0 {
			return nil
		}

		stored, err := s.getUsersByFIDs(tx, merge.Keys(users, merge.UserKey))
		if err != nil {
			return err
		}
		merged := merge.MergeUsers(stored, users)

		indexedAt := s.now().UnixMilli()
		rows := make([]schema.User, 0, len(merged.Insert))
		for _, u := range merged.Insert {
			rows = append(rows, userToRow(u, indexedAt))
		}
		if err := insertRows(tx, rows, userFields, s.maxParams); err != nil {
			return fmt.Errorf("failed to insert users: %w", err)
		}

		for _, u := range merged.Update {
			if err := tx.Model(&schema.User{}).Where("fid = ?", u.FID).Updates(userUpdates(u)).Error; err != nil {
				return fmt.Errorf("failed to update user %d: %w", u.FID, err)
			}
		}

		result.Inserted = len(merged.Insert)
		result.Updated = len(merged.Update)
		result.Skipped = len(merged.Skip)
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to save users: %w", err)
	}

	return result, nil
}

// SaveCasts inserts casts that are not stored yet
func (s *gormStore) SaveCasts(ctx context.Context, casts []domain.Cast) (WriteResult, error) {
	var result WriteResult
	if len(casts) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := existingKeys(tx, &schema.Cast{}, "hash", merge.Keys(casts, merge.CastKey), s.lookupChunk())
		if err != nil {
			return err
		}

		toInsert, toSkip := merge.Merge(existing, casts, merge.CastKey)
		if err := insertRows(tx, mapRows(toInsert, castToRow), castFields, s.maxParams); err != nil {
			return fmt.Errorf("failed to insert casts: %w", err)
		}

		result.Inserted = len(toInsert)
		result.Skipped = len(toSkip)
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to save casts: %w", err)
	}

	return result, nil
}

// SaveReactions inserts reactions that are not stored yet, dropping reactions on unknown casts
func (s *gormStore) SaveReactions(ctx context.Context, reactions []domain.Reaction) (WriteResult, error) {
	var result WriteResult
	if len(reactions) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		targets := merge.Keys(reactions, func(r domain.Reaction) string { return r.TargetHash })
		knownCasts, err := existingKeys(tx, &schema.Cast{}, "hash", targets, s.lookupChunk())
		if err != nil {
			return err
		}

		valid := make([]domain.Reaction, 0, len(reactions))
		for _, r := range reactions {
			if !knownCasts.Has(r.TargetHash) {
				result.Dropped++
				continue
			}
			valid = append(valid, r)
		}

		existing, err := existingKeys(tx, &schema.Reaction{}, "hash", merge.Keys(valid, merge.ReactionKey), s.lookupChunk())
		if err != nil {
			return err
		}

		toInsert, toSkip := merge.Merge(existing, valid, merge.ReactionKey)
		if err := insertRows(tx, mapRows(toInsert, reactionToRow), reactionFields, s.maxParams); err != nil {
			return fmt.Errorf("failed to insert reactions: %w", err)
		}

		result.Inserted = len(toInsert)
		result.Skipped = len(toSkip)
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to save reactions: %w", err)
	}

	return result, nil
}

// SaveEnsRecords replaces the stored record of every address with a non-empty resolution
func (s *gormStore) SaveEnsRecords(ctx context.Context, records []domain.EnsRecord) (WriteResult, error) {
	var result WriteResult
	if len(records) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := existingKeys(tx, &schema.EnsData{}, "address", merge.Keys(records, merge.EnsKey), s.lookupChunk())
		if err != nil {
			return err
		}

		replaced := merge.ReplaceEns(existing, records)

		if len(replaced.Replace) > 0 {
			addresses := merge.Keys(replaced.Replace, merge.EnsKey)
			for part := range slices.Chunk(addresses, s.lookupChunk()) {
				if err := tx.Where("address IN ?", part).Delete(&schema.EnsData{}).Error; err != nil {
					return fmt.Errorf("failed to delete replaced ens records: %w", err)
				}
			}
		}

		rows := mapRows(append(slices.Clone(replaced.Insert), replaced.Replace...), ensToRow)
		if err := insertRows(tx, rows, ensFields, s.maxParams); err != nil {
			return fmt.Errorf("failed to insert ens records: %w", err)
		}

		result.Inserted = len(replaced.Insert)
		result.Updated = len(replaced.Replace)
		result.Skipped = len(replaced.Skip)
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to save ens records: %w", err)
	}

	return result, nil
}

// SaveTransactions inserts new transactions with their metadata, then links them to users
func (s *gormStore) SaveTransactions(ctx context.Context, bundles []domain.TransactionBundle, links []domain.UserTransaction) (WriteResult, error) {
	var result WriteResult
	if len(bundles) == 0 && len(links) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := merge.Keys(bundles, merge.TransactionKey)
		linked := merge.Keys(links, func(l domain.UserTransaction) string { return l.TransactionUniqueID })

		existing, err := existingKeys(tx, &schema.EthTransaction{}, "unique_id", append(slices.Clone(ids), linked...), s.lookupChunk())
		if err != nil {
			return err
		}

		toInsert, toSkip := merge.Merge(existing, bundles, merge.TransactionKey)

		txRows := make([]schema.EthTransaction, 0, len(toInsert))
		var metaRows []schema.ERC1155Metadata
		for _, b := range toInsert {
			txRows = append(txRows, transactionToRow(b.Transaction))
			for _, m := range b.Metadata {
				metaRows = append(metaRows, metadataToRow(m))
			}
		}
		if err := insertRows(tx, txRows, transactionFields, s.maxParams); err != nil {
			return fmt.Errorf("failed to insert transactions: %w", err)
		}
		if len(metaRows) > 0 {
			batchSize := calculateSafeBatchSize(len(metaRows), metadataFields, s.maxParams)
			if err := tx.CreateInBatches(metaRows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert transaction metadata: %w", err)
			}
		}

		// Links may only point at transactions that exist after this batch
		known := merge.NewKeySet(ids...)
		for k := range existing {
			known.Add(k)
		}
		valid := make([]domain.UserTransaction, 0, len(links))
		for _, l := range links {
			if !known.Has(l.TransactionUniqueID) {
				result.Dropped++
				continue
			}
			valid = append(valid, l)
		}

		storedLinks, err := s.existingLinks(tx, merge.Keys(valid, func(l domain.UserTransaction) string { return l.TransactionUniqueID }))
		if err != nil {
			return err
		}
		newLinks, _ := merge.Merge(storedLinks, valid, func(l domain.UserTransaction) domain.UserTransaction { return l })
		if len(newLinks) > 0 {
			rows := make([]schema.UserEthTransaction, 0, len(newLinks))
			for _, l := range newLinks {
				rows = append(rows, schema.UserEthTransaction{FID: l.FID, TransactionUniqueID: l.TransactionUniqueID})
			}
			batchSize := calculateSafeBatchSize(len(rows), linkFields, s.maxParams)
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert user transactions: %w", err)
			}
		}

		result.Inserted = len(toInsert)
		result.Skipped = len(toSkip)
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to save transactions: %w", err)
	}

	return result, nil
}

// existingLinks returns the stored (fid, transaction) pairs for the given transaction ids
func (s *gormStore) existingLinks(tx *gorm.DB, uniqueIDs []string) (merge.KeySet[domain.UserTransaction], error) {
	set := merge.NewKeySet[domain.UserTransaction]()
	for part := range slices.Chunk(uniqueIDs, s.lookupChunk()) {
		var rows []schema.UserEthTransaction
		if err := tx.Where("transaction_unique_id IN ?", part).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to look up user transactions: %w", err)
		}
		for _, row := range rows {
			set.Add(UserTransactionFromRow(row))
		}
	}
	return set, nil
}

// ApplyRegistrations writes enrichment results to stored users, only touching address and registered_at
func (s *gormStore) ApplyRegistrations(ctx context.Context, registrations []domain.UserRegistration) (WriteResult, error) {
	var result WriteResult
	if len(registrations) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fids := make([]int64, 0, len(registrations))
		for _, r := range registrations {
			fids = append(fids, r.FID)
		}
		stored, err := s.getUsersByFIDs(tx, fids)
		if err != nil {
			return err
		}

		incoming := make([]domain.User, 0, len(registrations))
		for _, r := range registrations {
			u, ok := stored[r.FID]
			if !ok {
				result.Dropped++
				continue
			}
			u.Address = r.Address
			u.RegisteredAt = r.RegisteredAt
			incoming = append(incoming, u)
		}

		merged := merge.MergeUsers(stored, incoming)
		for _, u := range merged.Update {
			err := tx.Model(&schema.User{}).
				Where("fid = ?", u.FID).
				Updates(map[string]any{
					"address":       u.Address,
					"registered_at": u.RegisteredAt,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update registration of user %d: %w", u.FID, err)
			}
		}

		result.Updated = len(merged.Update)
		result.Skipped = len(merged.Skip)
		return nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to apply registrations: %w", err)
	}

	return result, nil
}

// GetUsersByFIDs retrieves stored users keyed by fid
func (s *gormStore) GetUsersByFIDs(ctx context.Context, fids []int64) (map[int64]domain.User, error) {
	return s.getUsersByFIDs(s.db.WithContext(ctx), fids)
}

func (s *gormStore) getUsersByFIDs(tx *gorm.DB, fids []int64) (map[int64]domain.User, error) {
	users := make(map[int64]domain.User, len(fids))
	for part := range slices.Chunk(fids, s.lookupChunk()) {
		var rows []schema.User
		if err := tx.Where("fid IN ?", part).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get users by fids: %w", err)
		}
		for _, row := range rows {
			users[row.FID] = UserFromRow(row)
		}
	}
	return users, nil
}

// GetAddressFIDs returns the fid of every user with a resolved address.
// When several users share an address the lowest fid wins.
func (s *gormStore) GetAddressFIDs(ctx context.Context) (map[string]int64, error) {
	var rows []schema.User
	err := s.db.WithContext(ctx).
		Select("fid", "address").
		Where("address IS NOT NULL AND address <> ''").
		Order("fid").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get address fids: %w", err)
	}

	fids := make(map[string]int64, len(rows))
	for _, row := range rows {
		if _, ok := fids[*row.Address]; !ok {
			fids[*row.Address] = row.FID
		}
	}
	return fids, nil
}

// GetUserAddresses returns every distinct resolved user address
func (s *gormStore) GetUserAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	err := s.db.WithContext(ctx).
		Model(&schema.User{}).
		Where("address IS NOT NULL AND address <> ''").
		Distinct().
		Order("address").
		Pluck("address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user addresses: %w", err)
	}
	return addresses, nil
}

// DeleteDuplicateAssociations keeps one association row per (fid, transaction) pair
func (s *gormStore) DeleteDuplicateAssociations(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []schema.UserEthTransaction
		if err := tx.Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to list user transactions: %w", err)
		}

		associations := make([]merge.Association, 0, len(rows))
		for _, row := range rows {
			associations = append(associations, merge.Association{
				ID:                  row.ID,
				FID:                 row.FID,
				TransactionUniqueID: row.TransactionUniqueID,
			})
		}

		for part := range slices.Chunk(merge.DuplicateAssociations(associations), s.lookupChunk()) {
			res := tx.Where("id IN ?", part).Delete(&schema.UserEthTransaction{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete duplicate user transactions: %w", res.Error)
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteUnresolvedUsers removes users whose registration was never resolved
func (s *gormStore) DeleteUnresolvedUsers(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("registered_at = ?", domain.UNRESOLVED_REGISTRATION).
		Delete(&schema.User{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete unresolved users: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteUnresolvedUsersByFIDs removes the given users if they are still unresolved
func (s *gormStore) DeleteUnresolvedUsersByFIDs(ctx context.Context, fids []int64) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for part := range slices.Chunk(fids, s.lookupChunk()) {
			res := tx.Where("fid IN ? AND registered_at = ?", part, domain.UNRESOLVED_REGISTRATION).
				Delete(&schema.User{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete unresolved users: %w", res.Error)
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// GetWatermarks returns the newest cast timestamp and the highest fid
func (s *gormStore) GetWatermarks(ctx context.Context) (Watermarks, error) {
	var w Watermarks

	ts, err := s.GetLatestCastTimestamp(ctx)
	if err != nil {
		return w, err
	}
	w.MaxCastTimestamp = ts

	err = s.db.WithContext(ctx).
		Model(&schema.User{}).
		Select("COALESCE(MAX(fid), 0)").
		Scan(&w.MaxFID).Error
	if err != nil {
		return w, fmt.Errorf("failed to get max fid: %w", err)
	}

	return w, nil
}

// CountRows returns the number of rows of every table
func (s *gormStore) CountRows(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, model := range schema.All() {
		named, ok := model.(interface{ TableName() string })
		if !ok {
			continue
		}
		var n int64
		if err := s.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", named.TableName(), err)
		}
		counts[named.TableName()] = n
	}
	return counts, nil
}

// RawQuery runs sql inside a transaction that is always rolled back.
// PostgreSQL additionally marks the transaction read-only and SQLite switches to query_only.
func (s *gormStore) RawQuery(ctx context.Context, sql string) (*QueryResult, error) {
	result := &QueryResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch tx.Dialector.Name() {
		case "postgres":
			if err := tx.Exec("SET TRANSACTION READ ONLY").Error; err != nil {
				return fmt.Errorf("failed to set read-only transaction: %w", err)
			}
		case "sqlite":
			if err := tx.Exec("PRAGMA query_only = ON").Error; err != nil {
				return fmt.Errorf("failed to enable query_only: %w", err)
			}
			defer tx.Exec("PRAGMA query_only = OFF")
		}

		rows, err := tx.Raw(sql).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		result.Columns = columns

		for rows.Next() {
			values := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			for i, v := range values {
				if b, ok := v.([]byte); ok {
					values[i] = string(b)
				}
			}
			result.Rows = append(result.Rows, values)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return errRollbackReadOnly
	})
	if err != nil && !errors.Is(err, errRollbackReadOnly) {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	return result, nil
}

// ExportRows streams a table in primary key order
func (s *gormStore) ExportRows(ctx context.Context, dest any, batchSize int, fn func() error) error {
	err := s.db.WithContext(ctx).FindInBatches(dest, batchSize, func(_ *gorm.DB, _ int) error {
		return fn()
	}).Error
	if err != nil {
		return fmt.Errorf("failed to export rows: %w", err)
	}
	return nil
}

// CreateFetchRun records the start of a pipeline run
func (s *gormStore) CreateFetchRun(ctx context.Context, run *schema.FetchRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create fetch run: %w", err)
	}
	return nil
}

// UpdateFetchRun records the outcome of a pipeline run
func (s *gormStore) UpdateFetchRun(ctx context.Context, run *schema.FetchRun) error {
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to update fetch run: %w", err)
	}
	return nil
}

// GetRecentFetchRuns retrieves the latest runs, newest first
func (s *gormStore) GetRecentFetchRuns(ctx context.Context, limit int) ([]schema.FetchRun, error) {
	var runs []schema.FetchRun
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent fetch runs: %w", err)
	}
	return runs, nil
}
