// Package idempotency records which processor events have already been
// handled. The existence of a record is the only signal consulted; business
// state is never used to infer it.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
)

type Store interface {
	TestAndSet(ctx context.Context, eventID string, at time.Time) (bool, error)
	Get(ctx context.Context, eventID string) (*domain.ProcessedEvent, error)
	Delete(ctx context.Context, eventID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type Guard struct {
	store Store
	now   func() time.Time
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// MarkIfNew atomically claims eventID. Exactly one of any number of
// concurrent callers with the same id gets true.
func (g *Guard) MarkIfNew(ctx context.Context, eventID string) (bool, error) {
	isNew, err := g.store.TestAndSet(ctx, eventID, g.now())
	if err != nil {
		return false, fmt.Errorf("MarkIfNew: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return isNew, nil
}

// FirstSeen returns the record behind a claim, or nil if eventID was never
// claimed or has since been released or pruned.
func (g *Guard) FirstSeen(ctx context.Context, eventID string) (*domain.ProcessedEvent, error) {
	rec, err := g.store.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("FirstSeen: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return rec, nil
}

// Release drops a claim so the next delivery of eventID is treated as new.
// Used when the event could not be published after being claimed.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	if err := g.store.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("Release: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (g *Guard) Ping(ctx context.Context) error {
	if err := g.store.Ping(ctx); err != nil {
		return fmt.Errorf("Ping: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Janitor periodically forgets records older than the retention window.
// Processors stop retrying long before that, so old ids can never recur.
type Janitor struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewJanitor(store Store, retention, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{store: store, retention: retention, interval: interval, logger: logger}
}

func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 || j.retention <= 0 {
		j.logger.Info("idempotency janitor disabled")
		return
	}
	j.logger.Info("idempotency janitor started", "interval", j.interval, "retention", j.retention)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("idempotency janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	n, err := j.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("failed to prune processed events", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("pruned processed events", "count", n, "cutoff", cutoff)
	}
}
