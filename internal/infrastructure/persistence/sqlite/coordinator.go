package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
)

// TryAcquireExclusiveRun takes the lease for runType when it is free, expired, or
// already held by holderID.
func (s *Store) TryAcquireExclusiveRun(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (release func(), acquired bool, err error) {
	now := time.Now().UTC()

	var holder string
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO scan_leases (run_type, holder_id, expires_at)
		VALUES (?1, ?2, ?3)
		ON CONFLICT (run_type) DO UPDATE
		SET holder_id = excluded.holder_id, expires_at = excluded.expires_at
		WHERE scan_leases.expires_at < ?4 OR scan_leases.holder_id = excluded.holder_id
		RETURNING holder_id`,
		runType, holderID, now.Add(leaseDuration).UnixMilli(), now.UnixMilli(),
	).Scan(&holder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, domain.StoreError("acquire lease", err)
	}
	if holder != holderID {
		return nil, false, nil
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.q.ExecContext(ctx, `DELETE FROM scan_leases WHERE run_type = ? AND holder_id = ?`, runType, holderID); err != nil {
			slog.WarnContext(ctx, "Failed to release lease", "run_type", runType, "error", err)
		}
	}
	return release, true, nil
}
