package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/titan-aas/titan-aas/internal/logging"
)

// Lease implements TTL-lease leader election over the worker_leases
// table: a single named lease is periodically renewed by whichever
// holder currently owns it (or re-acquired once it expires), letting
// multiple Worker processes run for availability while only one
// actually claims jobs at a time.
type Lease struct {
	db       *sqlx.DB
	name     string
	holderID string
	ttl      time.Duration
	logger   *logging.Logger

	isLeader atomic.Bool
	cancel   context.CancelFunc
}

// NewLease constructs a Lease. holderID should be unique per worker
// process (e.g. hostname+pid). logger may be nil, in which case a
// default JSON logger is used.
func NewLease(db *sqlx.DB, name, holderID string, ttl time.Duration, logger *logging.Logger) *Lease {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewFromEnv("jobqueue-lease")
	}
	return &Lease{db: db, name: name, holderID: holderID, ttl: ttl, logger: logger}
}

// IsLeader reports whether this holder currently believes it owns the
// lease. It is a cached view refreshed by the background renewal loop,
// not a synchronous check against the database.
func (l *Lease) IsLeader() bool { return l.isLeader.Load() }

// Start launches the background acquire/renew loop at half the TTL
// interval and returns immediately.
func (l *Lease) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	interval := l.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		l.tryAcquire(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.tryAcquire(ctx)
			}
		}
	}()
}

// Stop ends the renewal loop. It does not release the lease row;
// ownership simply lapses once the TTL expires.
func (l *Lease) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.isLeader.Store(false)
}

// tryAcquire attempts to (re)claim the lease row: a fresh insert
// succeeds immediately, and an existing row can be taken over only if
// it is already held by this holder or has expired.
func (l *Lease) tryAcquire(ctx context.Context) {
	const q = `
		INSERT INTO worker_leases (name, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
			SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
			WHERE worker_leases.holder = EXCLUDED.holder OR worker_leases.expires_at < now()
		RETURNING holder`

	var holder string
	expiresAt := time.Now().Add(l.ttl)
	err := l.db.GetContext(ctx, &holder, q, l.name, l.holderID, expiresAt)
	if err != nil {
		l.isLeader.Store(false)
		// sql.ErrNoRows means the WHERE clause excluded our upsert --
		// another holder's lease is still live. That is losing the
		// race, not a failure worth logging.
		if !errors.Is(err, sql.ErrNoRows) {
			l.logger.WithField("lease", l.name).WithError(err).Error("lease acquire error")
		}
		return
	}
	l.isLeader.Store(holder == l.holderID)
}
