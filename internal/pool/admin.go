package pool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/webpilot/internal/cache"
	"github.com/jmylchreest/webpilot/internal/engine"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/sessionid"
)

// AdminOptions configure the pool admin.
type AdminOptions struct {
	// DefaultCapacity is applied to pools created without an explicit
	// capacity.
	DefaultCapacity       int
	MaxSessionsPerBrowser int
	// SessionConfig is applied to every session any pool starts.
	SessionConfig page.Config
	// SessionCache, when set, serves hot session lookups without
	// walking the pool hierarchy.
	SessionCache cache.Cache[*page.Session]
	Logger       *slog.Logger
}

// Admin owns the pool registry. All pool and session resolution flows
// through it; there is no global state.
type Admin struct {
	eng  engine.Engine
	opts AdminOptions
	log  *slog.Logger

	mu     sync.Mutex
	pools  map[string]*Pool
	closed bool
}

// NewAdmin creates an empty registry over eng.
func NewAdmin(eng engine.Engine, opts AdminOptions) *Admin {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Admin{
		eng:   eng,
		opts:  opts,
		log:   opts.Logger,
		pools: make(map[string]*Pool),
	}
}

// CreatePool registers a new pool under id. Capacity 0 means the
// admin's default. The pool id must be underscore free so it can embed
// into composite session ids.
func (a *Admin) CreatePool(id string, capacity int) (*Pool, error) {
	if !sessionid.ValidComponent(id) {
		return nil, sessionid.ErrInvalidSessionID
	}
	if capacity <= 0 {
		capacity = a.opts.DefaultCapacity
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrPoolClosed
	}
	if _, exists := a.pools[id]; exists {
		return nil, ErrPoolExists
	}
	p := New(id, a.eng, Options{
		Capacity:              capacity,
		MaxSessionsPerBrowser: a.opts.MaxSessionsPerBrowser,
		SessionConfig:         a.opts.SessionConfig,
		Logger:                a.log,
	})
	a.pools[id] = p
	a.log.Info("pool created", slog.String("pool_id", id), slog.Int("capacity", capacity))
	return p, nil
}

// GetPool resolves a pool id.
func (a *Admin) GetPool(id string) (*Pool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// Pools returns all registered pools.
func (a *Admin) Pools() []*Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Pool, 0, len(a.pools))
	for _, p := range a.pools {
		out = append(out, p)
	}
	return out
}

// RemovePool unregisters a pool and tears down its browsers.
func (a *Admin) RemovePool(id string) error {
	a.mu.Lock()
	p, ok := a.pools[id]
	if ok {
		delete(a.pools, id)
	}
	a.mu.Unlock()

	if !ok {
		return ErrPoolNotFound
	}
	a.purgeSessions(p)
	a.log.Info("pool removed", slog.String("pool_id", id))
	return p.Close()
}

// purgeSessions drops the pool's live sessions from the cache ahead of
// a teardown that closes them.
func (a *Admin) purgeSessions(p *Pool) {
	if a.opts.SessionCache == nil {
		return
	}
	for _, id := range p.SessionIDs() {
		a.opts.SessionCache.Delete(id)
	}
}

// StartSession opens a new page session in the named pool and returns
// it with its composite id.
func (a *Admin) StartSession(ctx context.Context, poolID string) (*page.Session, error) {
	p, err := a.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	sess, err := p.StartSession(ctx)
	if err != nil {
		return nil, err
	}
	if a.opts.SessionCache != nil {
		a.opts.SessionCache.Set(sess.ID(), sess)
	}
	return sess, nil
}

// ResolveSession resolves a composite session id to its live session.
// Hot ids come out of the cache; misses fall back to the full walk.
func (a *Admin) ResolveSession(id string) (*page.Session, error) {
	if a.opts.SessionCache != nil {
		if sess, err := a.opts.SessionCache.Get(id); err == nil {
			if !sess.Closed() {
				return sess, nil
			}
			// Stale entry left behind by the reaper or pool teardown.
			a.opts.SessionCache.Delete(id)
		}
	}

	poolID, browserID, pageID, err := sessionid.Decode(id)
	if err != nil {
		return nil, err
	}
	p, err := a.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	b, err := p.Browser(browserID)
	if err != nil {
		return nil, err
	}
	sess, err := b.session(pageID)
	if err != nil {
		return nil, err
	}
	if a.opts.SessionCache != nil {
		a.opts.SessionCache.Set(id, sess)
	}
	return sess, nil
}

// CloseSession closes the session behind a composite id and drops it
// from the cache.
func (a *Admin) CloseSession(id string) error {
	poolID, browserID, pageID, err := sessionid.Decode(id)
	if err != nil {
		return err
	}
	if a.opts.SessionCache != nil {
		a.opts.SessionCache.Delete(id)
	}
	p, err := a.GetPool(poolID)
	if err != nil {
		return err
	}
	return p.CloseSession(browserID, pageID)
}

// Stats is a point-in-time registry summary.
type Stats struct {
	Pools    int `json:"pools"`
	Browsers int `json:"browsers"`
	Sessions int `json:"sessions"`
}

// Stats summarises the registry.
func (a *Admin) Stats() Stats {
	var s Stats
	for _, p := range a.Pools() {
		s.Pools++
		s.Browsers += p.BrowserCount()
		s.Sessions += p.SessionCount()
	}
	return s
}

// ReapIdle closes sessions idle for at least threshold across all
// pools, drops them from the cache and returns the total closed.
func (a *Admin) ReapIdle(threshold time.Duration) int {
	total := 0
	for _, p := range a.Pools() {
		for _, id := range p.ReapIdle(threshold) {
			if a.opts.SessionCache != nil {
				a.opts.SessionCache.Delete(id)
			}
			total++
		}
	}
	return total
}

// StartReaper closes idle sessions every interval until ctx is done.
func (a *Admin) StartReaper(ctx context.Context, interval, threshold time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.ReapIdle(threshold); n > 0 {
					a.log.Info("reaped idle sessions", slog.Int("count", n))
				}
			}
		}
	}()
}

// Close tears down every pool.
func (a *Admin) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	pools := a.pools
	a.pools = make(map[string]*Pool)
	a.mu.Unlock()

	var firstErr error
	for _, p := range pools {
		a.purgeSessions(p)
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
