package pool

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/webpilot/internal/engine"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/sessionid"
)

// Browser is one managed browser process holding up to maxSessions
// concurrent page sessions.
type Browser struct {
	id        string
	poolID    string
	handle    engine.Browser
	createdAt time.Time

	maxSessions int
	sessionCfg  page.Config

	mu       sync.Mutex
	sessions map[string]*page.Session
	closed   bool
}

func newBrowser(poolID string, handle engine.Browser, maxSessions int, sessionCfg page.Config) *Browser {
	return &Browser{
		id:          ulid.Make().String(),
		poolID:      poolID,
		handle:      handle,
		createdAt:   time.Now(),
		maxSessions: maxSessions,
		sessionCfg:  sessionCfg,
		sessions:    make(map[string]*page.Session),
	}
}

// ID returns the browser's id within its pool.
func (b *Browser) ID() string { return b.id }

// CreatedAt returns when the browser process was launched.
func (b *Browser) CreatedAt() time.Time { return b.createdAt }

// SessionCount returns the number of live page sessions.
func (b *Browser) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// hasCapacity reports whether a new session may be opened.
func (b *Browser) hasCapacity() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && len(b.sessions) < b.maxSessions
}

// openSession opens a new tab and registers the resulting session. It
// returns ErrPoolCapacityReached when the browser is already at its
// session limit.
func (b *Browser) openSession(ctx context.Context) (*page.Session, error) {
	// Reserve the slot before the tab is opened so concurrent callers
	// cannot both take the last one.
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if len(b.sessions) >= b.maxSessions {
		b.mu.Unlock()
		return nil, ErrPoolCapacityReached
	}
	pageID := ulid.Make().String()
	b.sessions[pageID] = nil
	b.mu.Unlock()

	pg, err := b.handle.NewPage(ctx)
	if err != nil {
		b.mu.Lock()
		delete(b.sessions, pageID)
		b.mu.Unlock()
		return nil, err
	}

	id := sessionid.Encode(b.poolID, b.id, pageID)
	sess := page.NewSession(id, pg, b.sessionCfg)

	b.mu.Lock()
	if b.closed {
		// The browser shut down while the tab was opening. Don't leave
		// the page orphaned on a closed browser.
		b.mu.Unlock()
		_ = sess.Close()
		return nil, ErrPoolClosed
	}
	b.sessions[pageID] = sess
	b.mu.Unlock()
	return sess, nil
}

// session resolves a page id to its session.
func (b *Browser) session(pageID string) (*page.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[pageID]
	if !ok || sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// closeSession closes the session and frees its slot.
func (b *Browser) closeSession(pageID string) error {
	b.mu.Lock()
	sess, ok := b.sessions[pageID]
	if ok {
		delete(b.sessions, pageID)
	}
	b.mu.Unlock()

	if !ok || sess == nil {
		return ErrSessionNotFound
	}
	return sess.Close()
}

// sessionIDs returns the composite ids of every live session.
func (b *Browser) sessionIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for _, sess := range b.sessions {
		if sess != nil {
			ids = append(ids, sess.ID())
		}
	}
	return ids
}

// idleSessions returns the page ids of sessions idle for at least
// threshold.
func (b *Browser) idleSessions(threshold time.Duration) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for pageID, sess := range b.sessions {
		if sess != nil && sess.IsIdle(threshold) {
			ids = append(ids, pageID)
		}
	}
	return ids
}

// close tears down every session and the browser process.
func (b *Browser) close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sessions := b.sessions
	b.sessions = make(map[string]*page.Session)
	b.mu.Unlock()

	for _, sess := range sessions {
		if sess != nil {
			_ = sess.Close()
		}
	}
	return b.handle.Close()
}
