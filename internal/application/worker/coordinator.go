package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
)

// Coordinator grants exclusive execution of a periodic job across processes.
// All methods are safe for concurrent use.
type Coordinator interface {
	// TryAcquireExclusiveRun attempts to acquire an exclusive execution lock.
	// Returns (releaseFunc, true, nil) if lock acquired successfully.
	// Returns (nil, false, nil) if lock is held by another holder.
	// The lock automatically expires after leaseDuration for crash recovery.
	TryAcquireExclusiveRun(ctx context.Context, runType string, holderID string, leaseDuration time.Duration) (release func(), acquired bool, err error)
}

type lease struct {
	holderID  string
	expiresAt time.Time
}

// LocalCoordinator is an in-process Coordinator for backends without a lease
// table (memory, GCS). It only excludes runs inside a single process.
type LocalCoordinator struct {
	clock domain.Clock

	mu     sync.Mutex
	leases map[string]lease
}

// NewLocalCoordinator creates a LocalCoordinator. A nil clock uses the system clock.
func NewLocalCoordinator(clock domain.Clock) *LocalCoordinator {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &LocalCoordinator{clock: clock, leases: make(map[string]lease)}
}

// TryAcquireExclusiveRun implements Coordinator.
func (c *LocalCoordinator) TryAcquireExclusiveRun(_ context.Context, runType, holderID string, leaseDuration time.Duration) (func(), bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if current, ok := c.leases[runType]; ok && current.holderID != holderID && now.Before(current.expiresAt) {
		return nil, false, nil
	}
	c.leases[runType] = lease{holderID: holderID, expiresAt: now.Add(leaseDuration)}

	release := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if current, ok := c.leases[runType]; ok && current.holderID == holderID {
			delete(c.leases, runType)
		}
	}
	return release, true, nil
}
