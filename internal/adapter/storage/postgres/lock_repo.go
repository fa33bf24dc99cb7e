package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LockRepo implements ports.LockRepository on the action_locks table. The
// primary key on user_id is the atomic unique-insert primitive.
type LockRepo struct {
	pool Pool
}

// NewLockRepo creates a new LockRepo.
func NewLockRepo(pool Pool) *LockRepo {
	return &LockRepo{pool: pool}
}

// TryInsert inserts the lock row in one statement. An existing row is only
// overwritten when its expiry has already passed.
func (r *LockRepo) TryInsert(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (bool, error) {
	query := `INSERT INTO action_locks (user_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE action_locks.expires_at <= NOW()`

	tag, err := r.pool.Exec(ctx, query, userID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("insert action lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LockRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM action_locks WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete action lock: %w", err)
	}
	return nil
}

// PurgeExpired removes locks left behind by crashed holders.
func (r *LockRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM action_locks WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired locks: %w", err)
	}
	return tag.RowsAffected(), nil
}
