// Package merge handles records that live on the other platform island.
//
// A paid account that signs in on a second platform may already have data
// there. Check looks for it, and the user then either merges both islands
// into one view or keeps them separate. Whatever they choose is final for
// the life of the process.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/store"
	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"golang.org/x/sync/errgroup"
)

var (
	ErrCrossPlatformLocked = common.ErrTierLocked
	ErrNotDetected         = errors.New("no cross-platform data pending a decision")
)

type State string

const (
	Unchecked State = "unchecked"
	Detected  State = "detected"
	Resolved  State = "resolved"
)

type Resolution string

const (
	None         Resolution = "none"
	Merged       Resolution = "merged"
	KeptSeparate Resolution = "kept-separate"
)

type Remote interface {
	Count(ctx context.Context, c schema.Collection, p schema.Platform) (int64, error)
	PullAll(ctx context.Context, platforms []schema.Platform) (models.Bundle, error)
	PushAll(ctx context.Context, c schema.Collection, recs []*models.Record) ([]*models.Record, error)
}

type Local interface {
	All(ctx context.Context, c schema.Collection) ([]*models.Record, error)
	Reconcile(ctx context.Context, bundle models.Bundle) (store.ReconcileStats, error)
	MarkPushed(ctx context.Context, c schema.Collection, sent, stored []*models.Record) error
}

// Counts maps each collection to its number of rows on the other platform.
type Counts map[schema.Collection]int64

func (c Counts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Report describes a completed merge.
type Report struct {
	Pulled     int
	Reconciled store.ReconcileStats
	Pushed     int
}

type Coordinator struct {
	mu         sync.Mutex
	remote     Remote
	local      Local
	platform   schema.Platform
	tier       func() tier.Tier
	logger     logging.Logger
	state      State
	counts     Counts
	resolution Resolution
}

func NewCoordinator(r Remote, l Local, platform schema.Platform, tierFn func() tier.Tier, logger logging.Logger) *Coordinator {
	return &Coordinator{
		remote:   r,
		local:    l,
		platform: platform,
		tier:     tierFn,
		logger:   logger.With("module", "merge"),
		state:    Unchecked,
	}
}

// State returns the current state, the counts found by Check and, once
// resolved, how.
func (m *Coordinator) State() (State, Counts, Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.counts, m.resolution
}

func (m *Coordinator) unlocked() bool {
	return tier.CanAccessPlatform(m.tier(), m.platform.Other(), m.platform)
}

// Check counts the account's rows on the other platform, one call per
// collection. Nothing there resolves the coordinator with None.
func (m *Coordinator) Check(ctx context.Context) (State, Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Unchecked {
		return m.state, m.counts, nil
	}
	if !m.unlocked() {
		return m.state, nil, ErrCrossPlatformLocked
	}

	collections := schema.Collections()
	results := make([]int64, len(collections))
	other := m.platform.Other()

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range collections {
		g.Go(func() error {
			n, err := m.remote.Count(gctx, c, other)
			if err != nil {
				return err
			}
			results[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return m.state, nil, fmt.Errorf("check %s data: %w", other, err)
	}

	counts := make(Counts, len(collections))
	for i, c := range collections {
		if results[i] > 0 {
			counts[c] = results[i]
		}
	}

	m.counts = counts
	if counts.Total() == 0 {
		m.state, m.resolution = Resolved, None
	} else {
		m.state = Detected
	}
	m.logger.Info(ctx, "Cross-platform check", "other", other, "rows", counts.Total(), "state", m.state)
	return m.state, counts, nil
}

// KeepSeparate records the decision to leave the other island alone.
func (m *Coordinator) KeepSeparate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Detected {
		return ErrNotDetected
	}
	m.state, m.resolution = Resolved, KeptSeparate
	return nil
}

// Merge pulls both platforms into the store and pushes the combined set
// back. On any error the coordinator stays Detected so the user can retry.
func (m *Coordinator) Merge(ctx context.Context) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Detected {
		return Report{}, ErrNotDetected
	}
	if !m.unlocked() {
		return Report{}, ErrCrossPlatformLocked
	}

	var rep Report
	bundle, err := m.remote.PullAll(ctx, []schema.Platform{m.platform, m.platform.Other()})
	if err != nil {
		return rep, err
	}
	rep.Pulled = bundle.Len()

	if rep.Reconciled, err = m.local.Reconcile(ctx, bundle); err != nil {
		return rep, err
	}

	var errs []error
	for _, c := range schema.Collections() {
		n, err := m.push(ctx, c)
		rep.Pushed += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return rep, err
	}

	m.state, m.resolution = Resolved, Merged
	m.logger.Info(ctx, "Merged platforms", "pulled", rep.Pulled, "pushed", rep.Pushed)
	return rep, nil
}

func (m *Coordinator) push(ctx context.Context, c schema.Collection) (int, error) {
	recs, err := m.local.All(ctx, c)
	if err != nil || len(recs) == 0 {
		return 0, err
	}

	stored, err := m.remote.PushAll(ctx, c, recs)
	if err != nil {
		return 0, err
	}
	return len(stored), m.local.MarkPushed(ctx, c, recs, stored)
}
