package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
)

type ProcessedEventRepository struct {
	db *sql.DB
}

func NewProcessedEventRepository(db *sql.DB) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: db}
}

// TestAndSet inserts the record unless one already exists for the id and
// reports whether this call created it.
func (r *ProcessedEventRepository) TestAndSet(ctx context.Context, eventID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO processed_events (event_id, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, at,
	)
	if err != nil {
		return false, fmt.Errorf("TestAndSet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("TestAndSet: rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *ProcessedEventRepository) Get(ctx context.Context, eventID string) (*domain.ProcessedEvent, error) {
	var e domain.ProcessedEvent
	err := r.db.QueryRowContext(ctx,
		`SELECT event_id, processed_at FROM processed_events WHERE event_id = $1`,
		eventID,
	).Scan(&e.EventID, &e.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &e, nil
}

func (r *ProcessedEventRepository) Delete(ctx context.Context, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM processed_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (r *ProcessedEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM processed_events WHERE processed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: rows affected: %w", err)
	}
	return n, nil
}

func (r *ProcessedEventRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}
