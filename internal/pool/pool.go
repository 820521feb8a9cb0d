package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/webpilot/internal/engine"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/sessionid"
)

// Options configure a pool at creation.
type Options struct {
	// Capacity is the maximum number of browser processes the pool may
	// run at once.
	Capacity int
	// MaxSessionsPerBrowser caps concurrent page sessions per browser.
	MaxSessionsPerBrowser int
	// SessionConfig is applied to every session the pool starts.
	SessionConfig page.Config
	Logger        *slog.Logger
}

// Pool manages a set of browser processes under one pool id. Sessions
// are placed on the existing browser with free capacity; a new browser
// is launched only when none has room and the pool is under its
// browser capacity.
type Pool struct {
	id     string
	eng    engine.Engine
	opts   Options
	log    *slog.Logger
	create time.Time

	mu       sync.Mutex
	browsers []*Browser
	next     int
	closed   bool
}

// New creates an empty pool. Browsers launch lazily on the first
// session request.
func New(id string, eng engine.Engine, opts Options) *Pool {
	if opts.Capacity <= 0 {
		opts.Capacity = 1
	}
	if opts.MaxSessionsPerBrowser <= 0 {
		opts.MaxSessionsPerBrowser = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pool{
		id:     id,
		eng:    eng,
		opts:   opts,
		log:    opts.Logger.With(slog.String("pool_id", id)),
		create: time.Now(),
	}
}

// ID returns the pool id.
func (p *Pool) ID() string { return p.id }

// CreatedAt returns when the pool was created.
func (p *Pool) CreatedAt() time.Time { return p.create }

// Capacity returns the pool's maximum browser count.
func (p *Pool) Capacity() int { return p.opts.Capacity }

// BrowserCount returns the number of running browsers.
func (p *Pool) BrowserCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.browsers)
}

// SessionCount returns the number of live sessions across all browsers.
func (p *Pool) SessionCount() int {
	p.mu.Lock()
	browsers := append([]*Browser(nil), p.browsers...)
	p.mu.Unlock()

	total := 0
	for _, b := range browsers {
		total += b.SessionCount()
	}
	return total
}

// StartSession opens a page session on a browser with free capacity,
// launching a new browser when needed. When every browser is full and
// the pool cannot grow it returns ErrPoolCapacityReached.
func (p *Pool) StartSession(ctx context.Context) (*page.Session, error) {
	for {
		b, err := p.pickBrowser(ctx)
		if err != nil {
			return nil, err
		}
		sess, err := b.openSession(ctx)
		if err == ErrPoolCapacityReached {
			// The browser filled up between the pick and the open. Try
			// the next candidate.
			continue
		}
		if err != nil {
			return nil, err
		}
		p.log.Info("session started",
			slog.String("session_id", sess.ID()),
			slog.String("browser_id", b.ID()))
		return sess, nil
	}
}

// pickBrowser returns a browser with free capacity, round-robin over
// the existing ones, launching a new browser when all are full.
func (p *Pool) pickBrowser(ctx context.Context) (*Browser, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	n := len(p.browsers)
	for i := 0; i < n; i++ {
		b := p.browsers[(p.next+i)%n]
		if b.hasCapacity() {
			p.next = (p.next + i + 1) % n
			p.mu.Unlock()
			return b, nil
		}
	}
	if n >= p.opts.Capacity {
		p.mu.Unlock()
		return nil, ErrPoolCapacityReached
	}
	p.mu.Unlock()

	handle, err := p.eng.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}
	b := newBrowser(p.id, handle, p.opts.MaxSessionsPerBrowser, p.opts.SessionConfig)

	p.mu.Lock()
	if p.closed || len(p.browsers) >= p.opts.Capacity {
		// Lost the race. Tear the extra browser down and report per the
		// pool's current state.
		closed := p.closed
		p.mu.Unlock()
		_ = b.close()
		if closed {
			return nil, ErrPoolClosed
		}
		return nil, ErrPoolCapacityReached
	}
	p.browsers = append(p.browsers, b)
	p.mu.Unlock()

	p.log.Info("browser launched", slog.String("browser_id", b.ID()))
	return b, nil
}

// Browser resolves a browser id.
func (p *Pool) Browser(browserID string) (*Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.browsers {
		if b.ID() == browserID {
			return b, nil
		}
	}
	return nil, ErrBrowserNotFound
}

// CloseSession closes one session. The owning browser stays running so
// later sessions can reuse it.
func (p *Pool) CloseSession(browserID, pageID string) error {
	b, err := p.Browser(browserID)
	if err != nil {
		return err
	}
	return b.closeSession(pageID)
}

// ReapIdle closes every session idle for at least threshold and
// returns the composite ids of the sessions it closed.
func (p *Pool) ReapIdle(threshold time.Duration) []string {
	p.mu.Lock()
	browsers := append([]*Browser(nil), p.browsers...)
	p.mu.Unlock()

	var reaped []string
	for _, b := range browsers {
		for _, pageID := range b.idleSessions(threshold) {
			if err := b.closeSession(pageID); err == nil {
				reaped = append(reaped, sessionid.Encode(p.id, b.ID(), pageID))
				p.log.Info("idle session reaped",
					slog.String("browser_id", b.ID()),
					slog.String("page_id", pageID))
			}
		}
	}
	return reaped
}

// SessionIDs returns the composite ids of every live session.
func (p *Pool) SessionIDs() []string {
	p.mu.Lock()
	browsers := append([]*Browser(nil), p.browsers...)
	p.mu.Unlock()

	var ids []string
	for _, b := range browsers {
		ids = append(ids, b.sessionIDs()...)
	}
	return ids
}

// Close tears down every browser in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	browsers := p.browsers
	p.browsers = nil
	p.mu.Unlock()

	var firstErr error
	for _, b := range browsers {
		if err := b.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
