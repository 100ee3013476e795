package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sifan077/ShortcutURL/internal/app/model"
)

// BillingEventRepository records which provider events were already applied.
type BillingEventRepository interface {
	// Claim records id and reports whether this call was the first to do so.
	Claim(ctx context.Context, id string, eventType model.BillingEventType) (bool, error)
	// Release forgets id so a redelivery is applied again.
	Release(ctx context.Context, id string) error
}

// Executor is the subset of *pgxpool.Pool used by the billing event repository.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type billingEventRepository struct {
	db Executor
}

// NewBillingEventRepository returns a pgx-backed BillingEventRepository.
func NewBillingEventRepository(db Executor) BillingEventRepository {
	return &billingEventRepository{db: db}
}

const (
	claimEventSQL = `INSERT INTO billing_events (id, type, received_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO NOTHING`
	releaseEventSQL = `DELETE FROM billing_events WHERE id = $1`
)

func (r *billingEventRepository) Claim(ctx context.Context, id string, eventType model.BillingEventType) (bool, error) {
	tag, err := r.db.Exec(ctx, claimEventSQL, id, string(eventType))
	if err != nil {
		return false, fmt.Errorf("claim billing event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *billingEventRepository) Release(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, releaseEventSQL, id); err != nil {
		return fmt.Errorf("release billing event: %w", err)
	}
	return nil
}
