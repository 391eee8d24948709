package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rezkam/taskguard/internal/domain"
)

// TryAcquireExclusiveRun takes the lease for runType when it is free, expired, or
// already held by holderID. The lease expires on its own after leaseDuration so a
// crashed holder never blocks the others.
func (s *Store) TryAcquireExclusiveRun(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (release func(), acquired bool, err error) {
	expiresAt := time.Now().UTC().Add(leaseDuration)

	var holder string
	err = s.db.QueryRow(ctx, `
		INSERT INTO scan_leases (run_type, holder_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_type) DO UPDATE
		SET holder_id = EXCLUDED.holder_id, expires_at = EXCLUDED.expires_at
		WHERE scan_leases.expires_at < now() OR scan_leases.holder_id = EXCLUDED.holder_id
		RETURNING holder_id`,
		runType, holderID, expiresAt,
	).Scan(&holder)
	if err != nil {
		// No rows means another holder has a live lease.
		if errors.Is(err, pgx.ErrNoRows) {
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
		if _, err := s.db.Exec(ctx, `DELETE FROM scan_leases WHERE run_type = $1 AND holder_id = $2`, runType, holderID); err != nil {
			slog.WarnContext(ctx, "Failed to release lease", "run_type", runType, "error", err)
		}
	}
	return release, true, nil
}
