package update

import (
	"context"
	"sync"
	"time"

	"emberhollow/client/internal/session"
	"emberhollow/client/logging"
)

// UpdateFunc derives a new session from a base. Implementations must treat
// the base as read-only and return a fresh value; stat adapter Set functions
// already behave this way.
type UpdateFunc func(*session.Session) *session.Session

// Result is the authority's answer to one update attempt. A version mismatch
// is reported through Conflict plus the authority's current session rather
// than an error, so the coordinator can rebase.
type Result struct {
	Session       *session.Session
	Conflict      bool
	ServerSession *session.Session
}

// Authority is the remote session endpoint. Implementations must return
// Conflict results for stale expected versions and reserve errors for
// transport-level failures.
type Authority interface {
	UpdateSession(ctx context.Context, id string, expectedVersion int64, patch session.Patch) (Result, error)
}

const (
	// DefaultMaxRetries bounds conflict rebases per Apply call.
	DefaultMaxRetries = 3
	// DefaultBaseDelay seeds the exponential backoff between retries.
	DefaultBaseDelay = 100 * time.Millisecond
)

// Config tunes the retry loop.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Coordinator applies mutations optimistically: publish the local guess
// first, confirm against the authority's version check, rebase on conflict
// with bounded backoff, and roll back on terminal failure. Every path ends at
// either the confirmed server session or the exact pre-optimistic snapshot.
type Coordinator struct {
	authority Authority // nil means local-only operation
	store     *session.Store
	cfg       Config
	publisher logging.Publisher

	// sleep is swapped out by tests to avoid real backoff waits.
	sleep func(context.Context, time.Duration) error

	// mu serializes Apply calls for this session so sequential callers
	// resolve fully before the next mutation begins. Two coordinators on
	// the same session still race only at the authority's version check.
	mu sync.Mutex
}

func NewCoordinator(authority Authority, store *session.Store, cfg Config, publisher logging.Publisher) *Coordinator {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Coordinator{
		authority: authority,
		store:     store,
		cfg:       cfg.withDefaults(),
		publisher: publisher,
		sleep:     sleepContext,
	}
}

// Apply runs one optimistic update to terminal resolution. The localUpdate is
// recomputed against the server's session on every rebase, never against the
// stale local guess; backendPatch is replayed as-is because set ops are
// last-writer-wins and add ops carry deltas.
func (c *Coordinator) Apply(ctx context.Context, localUpdate UpdateFunc, backendPatch session.Patch) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.store.Current()
	if snapshot == nil {
		return nil, ErrNoSession
	}

	if c.authority == nil {
		next := localUpdate(snapshot)
		c.store.Publish(next)
		return next.Clone(), nil
	}

	base := snapshot
	for retry := 0; ; retry++ {
		next := localUpdate(base)

		// Attempt 0 publishes the raw optimistic guess for instant
		// feedback; later iterations publish the rebased result, never
		// a duplicate of the stale guess.
		c.store.Publish(next)

		res, err := c.authority.UpdateSession(ctx, snapshot.ID, base.Version, backendPatch)
		if err != nil {
			c.rollback(snapshot, retry, "transport")
			return nil, &TransportError{Op: "update session", Err: err}
		}

		if !res.Conflict {
			confirmed := res.Session
			c.store.Publish(confirmed)
			c.publishEvent("session_update_confirmed", logging.SeverityInfo, map[string]any{
				"session": snapshot.ID,
				"version": confirmed.Version,
				"retries": retry,
			})
			return confirmed.Clone(), nil
		}

		if retry >= c.cfg.MaxRetries {
			c.rollback(snapshot, retry, "conflict_exhausted")
			return nil, ErrConflictExceeded
		}

		delay := c.cfg.BaseDelay << uint(retry)
		if err := c.sleep(ctx, delay); err != nil {
			c.rollback(snapshot, retry, "cancelled")
			return nil, &TransportError{Op: "backoff wait", Err: err}
		}

		c.publishEvent("session_update_conflict", logging.SeverityWarn, map[string]any{
			"session":        snapshot.ID,
			"staleVersion":   base.Version,
			"serverVersion":  res.ServerSession.Version,
			"retry":          retry + 1,
			"backoffElapsed": delay.String(),
		})

		// Rebase: the next local computation runs against the server's
		// session, not the guess we just published.
		base = res.ServerSession
	}
}

// LocalOnly reports whether the coordinator has no configured authority.
func (c *Coordinator) LocalOnly() bool { return c.authority == nil }

func (c *Coordinator) rollback(snapshot *session.Session, retry int, reason string) {
	c.store.Publish(snapshot)
	c.publishEvent("session_update_rollback", logging.SeverityWarn, map[string]any{
		"session": snapshot.ID,
		"version": snapshot.Version,
		"retries": retry,
		"reason":  reason,
	})
}

func (c *Coordinator) publishEvent(eventType string, severity logging.Severity, payload map[string]any) {
	c.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventType(eventType),
		Severity: severity,
		Category: logging.CategorySession,
		Actor:    logging.EntityRef{Kind: logging.EntityKindSession},
		Payload:  payload,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
