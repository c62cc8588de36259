package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/repository"
)

type failingStore struct {
	err error
}

func (f *failingStore) TestAndSet(context.Context, string, time.Time) (bool, error) {
	return false, f.err
}
func (f *failingStore) Get(context.Context, string) (*domain.ProcessedEvent, error) {
	return nil, f.err
}
func (f *failingStore) Delete(context.Context, string) error { return f.err }
func (f *failingStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, f.err
}
func (f *failingStore) Ping(context.Context) error { return f.err }

func TestMarkIfNew(t *testing.T) {
	g := NewGuard(repository.NewMemoryProcessedEventStore())
	ctx := context.Background()

	isNew, err := g.MarkIfNew(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = g.MarkIfNew(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, isNew)

	isNew, err = g.MarkIfNew(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestMarkIfNew_ConcurrentDuplicates(t *testing.T) {
	g := NewGuard(repository.NewMemoryProcessedEventStore())
	ctx := context.Background()

	var fresh atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			isNew, err := g.MarkIfNew(ctx, "evt_same")
			assert.NoError(t, err)
			if isNew {
				fresh.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load())
}

func TestRelease(t *testing.T) {
	g := NewGuard(repository.NewMemoryProcessedEventStore())
	ctx := context.Background()

	_, err := g.MarkIfNew(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, g.Release(ctx, "evt_1"))

	isNew, err := g.MarkIfNew(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestStoreFailuresAreUnavailable(t *testing.T) {
	g := NewGuard(&failingStore{err: errors.New("connection refused")})
	ctx := context.Background()

	isNew, err := g.MarkIfNew(ctx, "evt_1")
	assert.False(t, isNew)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	assert.ErrorIs(t, g.Release(ctx, "evt_1"), domain.ErrStoreUnavailable)
	_, err = g.FirstSeen(ctx, "evt_1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, g.Ping(ctx), domain.ErrStoreUnavailable)
}

func TestJanitor_Sweep(t *testing.T) {
	store := repository.NewMemoryProcessedEventStore()
	ctx := context.Background()

	_, err := store.TestAndSet(ctx, "evt_old", time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = store.TestAndSet(ctx, "evt_new", time.Now().UTC())
	require.NoError(t, err)

	j := NewJanitor(store, time.Hour, time.Minute, slog.Default())
	j.sweep(ctx)

	old, err := store.Get(ctx, "evt_old")
	require.NoError(t, err)
	assert.Nil(t, old)

	kept, err := store.Get(ctx, "evt_new")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestJanitor_StopsOnCancel(t *testing.T) {
	j := NewJanitor(repository.NewMemoryProcessedEventStore(), time.Hour, time.Millisecond, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestFirstSeen(t *testing.T) {
	g := NewGuard(repository.NewMemoryProcessedEventStore())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return at }
	ctx := context.Background()

	rec, err := g.FirstSeen(ctx, "evt_1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = g.MarkIfNew(ctx, "evt_1")
	require.NoError(t, err)

	rec, err = g.FirstSeen(ctx, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "evt_1", rec.EventID)
	assert.True(t, at.Equal(rec.ProcessedAt))

	require.NoError(t, g.Release(ctx, "evt_1"))
	rec, err = g.FirstSeen(ctx, "evt_1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
