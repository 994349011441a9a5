// Package store is the device's source of truth for records. Every write
// lands in SQLite first; a push to the cloud follows in the background and
// never rolls the local write back.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/deletes"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/google/uuid"
)

// Pusher sends single records to the cloud. *gateway.Gateway implements it.
type Pusher interface {
	Session() (client.Session, bool)
	Upsert(ctx context.Context, c schema.Collection, rec *models.Record) (*models.Record, error)
	Delete(ctx context.Context, c schema.Collection, id string) error
}

type Store struct {
	mu     sync.Mutex
	rm     repomanager.RepositoryManager
	tagger *PlatformTagger
	pusher Pusher
	tier   func() tier.Tier
	logger logging.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// New wires a store. tierFn reports the current account tier and is read on
// every list query.
func New(rm repomanager.RepositoryManager, tagger *PlatformTagger, p Pusher, tierFn func() tier.Tier, l logging.Logger) *Store {
	return &Store{
		rm:     rm,
		tagger: tagger,
		pusher: p,
		tier:   tierFn,
		logger: l.With("module", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Platform() schema.Platform {
	return s.tagger.Platform()
}

// reserved keys are owned by the record envelope, not by callers.
var reserved = []string{
	schema.KeyID, schema.KeyOwnerID, schema.KeyPlatform,
	schema.KeyUpdatedAt, schema.KeyLastSyncedAt,
}

func payload(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range reserved {
		delete(out, k)
	}
	return out
}

// touch returns a timestamp strictly after prev so a quick second edit still
// wins a last-write-wins comparison.
func (s *Store) touch(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

// Create stores a new record tagged with this device's platform and starts
// a background push.
func (s *Store) Create(ctx context.Context, c schema.Collection, fields map[string]any) (*models.Record, error) {
	now := s.now()
	rec := &models.Record{
		ID:        uuid.NewString(),
		Fields:    payload(fields),
		UpdatedAt: now,
	}
	if _, ok := rec.Fields[schema.KeyCreatedAt]; !ok {
		rec.Fields[schema.KeyCreatedAt] = models.FormatTime(now)
	}
	if sess, ok := s.pusher.Session(); ok {
		rec.OwnerID = sess.UserID
	}
	s.tagger.Tag(rec)

	s.mu.Lock()
	err := s.rm.Records(s.rm.Conn()).Put(ctx, c, rec, true)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.pushAsync(ctx, c, rec.Clone())
	return rec, nil
}

// Update merges fields into the record. A nil value removes the field.
func (s *Store) Update(ctx context.Context, c schema.Collection, id string, fields map[string]any) (*models.Record, error) {
	s.mu.Lock()
	repo := s.rm.Records(s.rm.Conn())
	rec, err := repo.Get(ctx, c, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	for k, v := range payload(fields) {
		if v == nil {
			delete(rec.Fields, k)
			continue
		}
		rec.Fields[k] = v
	}
	rec.UpdatedAt = s.touch(rec.UpdatedAt)

	err = repo.Put(ctx, c, rec, true)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.pushAsync(ctx, c, rec.Clone())
	return rec, nil
}

func (s *Store) Get(ctx context.Context, c schema.Collection, id string) (*models.Record, error) {
	return s.rm.Records(s.rm.Conn()).Get(ctx, c, id)
}

// List returns the records of c the current tier may see from this device.
func (s *Store) List(ctx context.Context, c schema.Collection) ([]*models.Record, error) {
	platforms := tier.AccessiblePlatforms(s.tier(), s.Platform())
	return s.rm.Records(s.rm.Conn()).List(ctx, c, platforms)
}

// All returns every record of c regardless of tier.
func (s *Store) All(ctx context.Context, c schema.Collection) ([]*models.Record, error) {
	return s.rm.Records(s.rm.Conn()).List(ctx, c, nil)
}

// Delete removes the record locally and remembers the id until the cloud
// confirms the delete.
func (s *Store) Delete(ctx context.Context, c schema.Collection, id string) error {
	s.mu.Lock()
	err := s.rm.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.rm.Records(tx).Delete(ctx, c, id)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}
		return s.rm.PendingDeletes(tx).Add(ctx, c, id, s.now())
	})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.deleteAsync(ctx, c, id)
	return nil
}

// MarkSynced records a successful push. It is a no-op when the record was
// edited again after updatedAt.
func (s *Store) MarkSynced(ctx context.Context, c schema.Collection, id string, updatedAt, syncedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rm.Records(s.rm.Conn()).MarkSynced(ctx, c, id, updatedAt, syncedAt)
}

// MarkPushed marks every stored record returned by a bulk push as synced,
// comparing against the updatedAt that was sent.
func (s *Store) MarkPushed(ctx context.Context, c schema.Collection, sent, stored []*models.Record) error {
	at := make(map[string]time.Time, len(sent))
	for _, r := range sent {
		at[r.ID] = r.UpdatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	repo := s.rm.Records(s.rm.Conn())
	for _, r := range stored {
		updatedAt, ok := at[r.ID]
		if !ok || r.LastSyncedAt == nil {
			continue
		}
		if _, err := repo.MarkSynced(ctx, c, r.ID, updatedAt, *r.LastSyncedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Pending(ctx context.Context, c schema.Collection) ([]*models.Record, error) {
	return s.rm.Records(s.rm.Conn()).ListPending(ctx, c)
}

func (s *Store) PendingDeletes(ctx context.Context) ([]deletes.PendingDelete, error) {
	return s.rm.PendingDeletes(s.rm.Conn()).List(ctx)
}

// ConfirmDelete forgets a tombstone once the cloud row is gone.
func (s *Store) ConfirmDelete(ctx context.Context, c schema.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rm.PendingDeletes(s.rm.Conn()).Remove(ctx, c, id)
}

// Counts reports total and pending records of c.
func (s *Store) Counts(ctx context.Context, c schema.Collection) (total, pending int64, err error) {
	return s.rm.Records(s.rm.Conn()).Count(ctx, c)
}

// ReconcileStats summarises one Reconcile call.
type ReconcileStats struct {
	Added   int
	Updated int
	Kept    int
	Skipped int
}

// Reconcile folds pulled records into the store by id. The newer updatedAt
// wins; on a tie the cloud copy is taken. Local records absent from the
// bundle are left alone, ids with a pending delete are skipped, and a
// record's platform is never changed.
func (s *Store) Reconcile(ctx context.Context, bundle models.Bundle) (ReconcileStats, error) {
	var stats ReconcileStats

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.rm.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Records(tx)
		for c, recs := range bundle {
			tombstones, err := s.rm.PendingDeletes(tx).IDs(ctx, c)
			if err != nil {
				return err
			}

			for _, cloud := range recs {
				if tombstones[cloud.ID] {
					stats.Skipped++
					continue
				}

				local, err := repo.Get(ctx, c, cloud.ID)
				switch {
				case errors.Is(err, common.ErrorNotFound):
					if err := repo.Put(ctx, c, cloud, false); err != nil {
						return err
					}
					stats.Added++
				case err != nil:
					return err
				case local.UpdatedAt.After(cloud.UpdatedAt):
					stats.Kept++
				default:
					merged := cloud.Clone()
					merged.Platform = local.Platform
					if err := repo.Put(ctx, c, merged, false); err != nil {
						return err
					}
					stats.Updated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return ReconcileStats{}, fmt.Errorf("reconcile: %w", err)
	}
	return stats, nil
}

// Wait blocks until background pushes have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) pushAsync(ctx context.Context, c schema.Collection, rec *models.Record) {
	if _, ok := s.pusher.Session(); !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		stored, err := s.pusher.Upsert(ctx, c, rec)
		if err != nil {
			s.logger.Warn(ctx, "Push failed, record stays pending", "collection", c, "id", rec.ID, "error", err)
			return
		}
		if stored == nil || stored.LastSyncedAt == nil {
			return
		}
		if _, err := s.MarkSynced(ctx, c, rec.ID, rec.UpdatedAt, *stored.LastSyncedAt); err != nil {
			s.logger.Error(ctx, "Mark synced failed", "collection", c, "id", rec.ID, "error", err)
		}
	}()
}

func (s *Store) deleteAsync(ctx context.Context, c schema.Collection, id string) {
	if _, ok := s.pusher.Session(); !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.pusher.Delete(ctx, c, id); err != nil {
			s.logger.Warn(ctx, "Cloud delete failed, will retry on sync", "collection", c, "id", id, "error", err)
			return
		}
		if err := s.ConfirmDelete(ctx, c, id); err != nil {
			s.logger.Error(ctx, "Confirm delete failed", "collection", c, "id", id, "error", err)
		}
	}()
}
