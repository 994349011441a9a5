package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gigbook/internal/client/status"
	"github.com/dmitrijs2005/gigbook/internal/client/store"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/tier"
)

// Metadata keys describing the last finished sync.
const (
	KeyLastSyncState = "sync.last_state"
	KeyLastSyncAt    = "sync.last_at"
	KeyLastSyncError = "sync.last_error"
)

// Remote is the cloud side of a full sync. *gateway.Gateway implements it.
type Remote interface {
	Session() (client.Session, bool)
	Ping(ctx context.Context) error
	Delete(ctx context.Context, c schema.Collection, id string) error
	PushAll(ctx context.Context, c schema.Collection, recs []*models.Record) ([]*models.Record, error)
	PullAll(ctx context.Context, platforms []schema.Platform) (models.Bundle, error)
}

type SyncOptions struct {
	// FullPush sends every local record instead of only pending ones. Used
	// for the first sync after login.
	FullPush bool
}

type SyncReport struct {
	Deleted    int
	Pushed     int
	Pulled     int
	Reconciled store.ReconcileStats
	State      status.State
}

type SyncService interface {
	FullSync(ctx context.Context, opts SyncOptions) (SyncReport, error)
	Status() *status.Machine
}

type syncService struct {
	remote  Remote
	store   *store.Store
	tier    func() tier.Tier
	machine *status.Machine
	timeout time.Duration
	logger  logging.Logger
}

// NewSyncService wires the full sync workflow. Every finished sync is
// recorded in meta so a later process can report it.
func NewSyncService(r Remote, s *store.Store, tierFn func() tier.Tier, meta metadata.Repository, timeout time.Duration, l logging.Logger) SyncService {
	svc := &syncService{
		remote:  r,
		store:   s,
		tier:    tierFn,
		machine: status.NewMachine(),
		timeout: timeout,
		logger:  l.With("module", "sync"),
	}
	svc.machine.Subscribe(func(tr status.Transition) {
		if tr.To == status.Syncing {
			return
		}
		ctx := context.Background()
		errText := ""
		if tr.Err != nil {
			errText = tr.Err.Error()
		}
		err := meta.SetMany(ctx, map[string]string{
			KeyLastSyncState: string(tr.To),
			KeyLastSyncAt:    models.FormatTime(time.Now()),
			KeyLastSyncError: errText,
		})
		if err != nil {
			svc.logger.Error(ctx, "Recording sync state failed", "error", err)
		}
	})
	return svc
}

func (s *syncService) Status() *status.Machine {
	return s.machine
}

// FullSync pushes local changes and pulls everything the tier allows.
//
// Collections are handled independently: a failing collection does not
// stop the others and nothing already written is rolled back. The joined
// error is returned and the machine ends in idle. A missing session or an
// unreachable server ends in offline before any data moves.
func (s *syncService) FullSync(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	var rep SyncReport
	if err := s.machine.Begin(); err != nil {
		return rep, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, ok := s.remote.Session(); !ok {
		return s.offline(ctx, rep, client.ErrUnauthenticated)
	}
	if err := s.remote.Ping(ctx); err != nil {
		return s.offline(ctx, rep, err)
	}

	var errs []error

	n, err := s.retryDeletes(ctx)
	rep.Deleted = n
	if err != nil {
		errs = append(errs, err)
	}

	for _, c := range schema.Collections() {
		n, err := s.push(ctx, c, opts.FullPush)
		rep.Pushed += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	platforms := tier.AccessiblePlatforms(s.tier(), s.store.Platform())
	bundle, err := s.remote.PullAll(ctx, platforms)
	if err != nil {
		errs = append(errs, err)
	} else {
		rep.Pulled = bundle.Len()
		if rep.Reconciled, err = s.store.Reconcile(ctx, bundle); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		_ = s.machine.Fail(err)
		rep.State = s.machine.State()
		s.logger.Warn(ctx, "Sync finished with errors", "error", err)
		return rep, err
	}

	_ = s.machine.Succeed()
	rep.State = s.machine.State()
	s.logger.Info(ctx, "Sync finished",
		"deleted", rep.Deleted, "pushed", rep.Pushed, "pulled", rep.Pulled,
		"added", rep.Reconciled.Added, "updated", rep.Reconciled.Updated)
	return rep, nil
}

func (s *syncService) offline(ctx context.Context, rep SyncReport, err error) (SyncReport, error) {
	_ = s.machine.Offline(err)
	rep.State = s.machine.State()
	s.logger.Info(ctx, "Sync skipped, offline", "error", err)
	return rep, err
}

func (s *syncService) retryDeletes(ctx context.Context) (int, error) {
	pending, err := s.store.PendingDeletes(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	done := 0
	for _, d := range pending {
		if err := s.remote.Delete(ctx, d.Collection, d.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.store.ConfirmDelete(ctx, d.Collection, d.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func (s *syncService) push(ctx context.Context, c schema.Collection, all bool) (int, error) {
	var (
		recs []*models.Record
		err  error
	)
	if all {
		recs, err = s.store.All(ctx, c)
	} else {
		recs, err = s.store.Pending(ctx, c)
	}
	if err != nil {
		return 0, fmt.Errorf("push %s: %w", c, err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	stored, err := s.remote.PushAll(ctx, c, recs)
	if err != nil {
		return 0, err
	}
	if err := s.store.MarkPushed(ctx, c, recs, stored); err != nil {
		return len(stored), fmt.Errorf("push %s: %w", c, err)
	}
	return len(stored), nil
}
