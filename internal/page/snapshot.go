package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/webpilot/internal/engine"
)

// neutralOrigin is where the page is parked while storage is written
// back during a restore, so the target origin loads with state already
// in place.
const neutralOrigin = "https://example.com"

// ErrNoSnapshot is returned by restoreSnapshot when no snapshot is
// available from the request, the session or the store.
var ErrNoSnapshot = errors.New("no snapshot available")

// Snapshot captures a page's cookies, storage and location so the same
// state can be replayed onto a fresh page. Storage is carried as the
// JSON-serialized form of the respective window object.
type Snapshot struct {
	Cookies        []engine.Cookie `json:"cookies"`
	LocalStorage   string          `json:"local_storage"`
	SessionStorage string          `json:"session_storage"`
	URL            string          `json:"url"`
}

// SnapshotStore persists snapshots across sessions. Load returns
// (nil, nil) when no snapshot exists for the id. Delete on an absent
// id is not an error.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snap *Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

func (s *Session) saveSnapshot(ctx context.Context) (*Snapshot, error) {
	cookies, err := s.page.Cookies(ctx)
	if err != nil {
		return nil, err
	}
	local, err := s.readStorage(ctx, "localStorage")
	if err != nil {
		return nil, err
	}
	session, err := s.readStorage(ctx, "sessionStorage")
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Cookies:        cookies,
		LocalStorage:   local,
		SessionStorage: session,
		URL:            s.page.URL(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if s.cfg.Store != nil {
		if err := s.cfg.Store.Save(ctx, s.id, snap); err != nil {
			return nil, fmt.Errorf("persisting snapshot: %w", err)
		}
	}
	return snap, nil
}

// restoreSnapshot replays snap onto the page. When snap is nil the
// session's last saved snapshot is used, falling back to the store.
func (s *Session) restoreSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		s.mu.Lock()
		snap = s.snapshot
		s.mu.Unlock()
	}
	if snap == nil && s.cfg.Store != nil {
		stored, err := s.cfg.Store.Load(ctx, s.id)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		snap = stored
	}
	if snap == nil {
		return ErrNoSnapshot
	}

	if len(snap.Cookies) > 0 {
		if err := s.page.SetCookies(ctx, snap.Cookies); err != nil {
			return err
		}
	}

	// Storage is origin scoped, so write it from a neutral page before
	// loading the target URL.
	if err := s.page.Navigate(ctx, neutralOrigin, nil); err != nil {
		return err
	}
	if err := s.writeStorage(ctx, "localStorage", snap.LocalStorage); err != nil {
		return err
	}
	if err := s.writeStorage(ctx, "sessionStorage", snap.SessionStorage); err != nil {
		return err
	}

	if snap.URL != "" {
		if err := s.page.Navigate(ctx, snap.URL, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) readStorage(ctx context.Context, kind string) (string, error) {
	res, err := s.page.Evaluate(ctx, fmt.Sprintf("() => JSON.stringify(Object.assign({}, window.%s))", kind))
	if err != nil {
		return "", err
	}
	blob, _ := res.(string)
	return blob, nil
}

func (s *Session) writeStorage(ctx context.Context, kind string, blob string) error {
	if blob == "" || blob == "{}" {
		return nil
	}
	_, err := s.page.Evaluate(ctx, fmt.Sprintf("data => Object.assign(window.%s, JSON.parse(data))", kind), blob)
	return err
}
