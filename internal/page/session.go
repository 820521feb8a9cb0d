package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/webpilot/internal/engine"
	"github.com/jmylchreest/webpilot/internal/logging"
)

// ErrSessionClosed is returned when an action is performed on a closed
// session.
var ErrSessionClosed = errors.New("page session is closed")

// ActionError wraps a handler failure with the action that caused it.
// Validation failures and wait timeouts are reported as themselves, not
// as ActionErrors.
type ActionError struct {
	Action Kind
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Config holds per-session tunables.
type Config struct {
	// WaitContentInterval and WaitContentTimeout are the defaults for
	// goto's wait_for_content polling when the request does not
	// override them.
	WaitContentInterval time.Duration
	WaitContentTimeout  time.Duration

	// Store, when set, persists snapshots taken by saveSnapshot.
	Store SnapshotStore

	Logger *slog.Logger
}

// Session binds one browser page to a composite session id and
// dispatches actions against it. All methods are safe for concurrent
// use; actions on the same session serialize on the page.
type Session struct {
	id   string
	page engine.Page
	cfg  Config
	log  *slog.Logger

	mu       sync.Mutex
	lastUsed time.Time
	snapshot *Snapshot
	closed   bool
}

// NewSession wraps page under the given composite id. The session
// starts with lastUsed set to now.
func NewSession(id string, pg engine.Page, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		id:       id,
		page:     pg,
		cfg:      cfg,
		log:      cfg.Logger.With(slog.String("session_id", id)),
		lastUsed: time.Now(),
	}
}

// ID returns the composite session id.
func (s *Session) ID() string { return s.id }

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// LastUsed returns the time of the most recent activity.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IsIdle reports whether more than threshold has elapsed since the
// session's last activity.
func (s *Session) IsIdle(threshold time.Duration) bool {
	return time.Since(s.LastUsed()) > threshold
}

// Close releases the underlying page and drops any persisted snapshot
// for the session. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cfg.Store != nil {
		if err := s.cfg.Store.Delete(context.Background(), s.id); err != nil {
			s.log.Warn("deleting persisted snapshot", slog.String("error", err.Error()))
		}
	}
	return s.page.Close()
}

// Perform validates req and runs the matching handler. It returns the
// handler's result, which may be nil for actions without output. The
// session's lastUsed is updated whether or not the action succeeds.
func (s *Session) Perform(ctx context.Context, req *Request) (any, error) {
	defer s.Touch()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx = logging.WithSessionID(ctx, s.id)
	s.log.DebugContext(ctx, "performing action", slog.String("action", string(req.Action)))

	res, err := s.dispatch(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "action failed",
			slog.String("action", string(req.Action)),
			slog.String("error", err.Error()))
		// Timeouts keep their own identity so callers can map them to a
		// distinct failure mode.
		if errors.Is(err, ErrWaitTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &ActionError{Action: req.Action, Err: err}
	}
	return res, nil
}
