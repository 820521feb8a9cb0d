package page

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/webpilot/internal/engine"
	"github.com/jmylchreest/webpilot/internal/engine/enginetest"
)

type memStore struct {
	saved map[string]*Snapshot
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*Snapshot)}
}

func (m *memStore) Save(ctx context.Context, sessionID string, snap *Snapshot) error {
	m.saved[sessionID] = snap
	return nil
}

func (m *memStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	return m.saved[sessionID], nil
}

func (m *memStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.saved, sessionID)
	return nil
}

func storagePage() *enginetest.Page {
	pg := enginetest.NewPage()
	pg.EvalFunc = func(code string, args ...any) (any, error) {
		if strings.Contains(code, "JSON.stringify") {
			return `{"token":"t-123"}`, nil
		}
		return nil, nil
	}
	return pg
}

func TestSaveSnapshot(t *testing.T) {
	pg := storagePage()
	pg.SetURL("https://example.org/app")
	pg.SetCookiesVal([]engine.Cookie{{Name: "sid", Value: "abc"}})

	store := newMemStore()
	s := NewSession("p_b_pg", pg, Config{Store: store})

	res, err := s.Perform(context.Background(), &Request{Action: KindSaveSnapshot})
	if err != nil {
		t.Fatalf("saveSnapshot: %v", err)
	}
	snap, ok := res.(*Snapshot)
	if !ok {
		t.Fatalf("expected *Snapshot, got %T", res)
	}
	if snap.URL != "https://example.org/app" {
		t.Errorf("expected url captured, got %q", snap.URL)
	}
	if len(snap.Cookies) != 1 || snap.Cookies[0].Name != "sid" {
		t.Errorf("expected cookie captured, got %v", snap.Cookies)
	}
	if snap.LocalStorage != `{"token":"t-123"}` {
		t.Errorf("expected localStorage captured, got %q", snap.LocalStorage)
	}
	if store.saved["p_b_pg"] == nil {
		t.Error("expected snapshot persisted to store")
	}
}

func TestCloseDropsPersistedSnapshot(t *testing.T) {
	pg := storagePage()
	store := newMemStore()
	s := NewSession("p_b_pg", pg, Config{Store: store})

	if _, err := s.Perform(context.Background(), &Request{Action: KindSaveSnapshot}); err != nil {
		t.Fatalf("saveSnapshot: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.saved["p_b_pg"] != nil {
		t.Error("expected persisted snapshot removed on close")
	}
}

func TestRestoreSnapshot(t *testing.T) {
	t.Run("explicit snapshot", func(t *testing.T) {
		pg := storagePage()
		s := NewSession("p_b_pg", pg, Config{})

		_, err := s.Perform(context.Background(), &Request{
			Action: KindRestoreSnapshot,
			Snapshot: &Snapshot{
				Cookies:      []engine.Cookie{{Name: "sid", Value: "abc"}},
				LocalStorage: `{"token":"t-123"}`,
				URL:          "https://example.org/app",
			},
		})
		if err != nil {
			t.Fatalf("restoreSnapshot: %v", err)
		}

		calls := pg.Calls()
		if !hasCall(calls, "setCookies") {
			t.Errorf("expected cookies restored, got %v", calls)
		}
		if !hasCall(calls, "navigate:"+neutralOrigin) {
			t.Errorf("expected neutral origin visited first, got %v", calls)
		}
		if pg.URL() != "https://example.org/app" {
			t.Errorf("expected final navigation to snapshot url, got %q", pg.URL())
		}
	})

	t.Run("falls back to last saved", func(t *testing.T) {
		pg := storagePage()
		pg.SetURL("https://example.org/app")
		s := NewSession("p_b_pg", pg, Config{})

		if _, err := s.Perform(context.Background(), &Request{Action: KindSaveSnapshot}); err != nil {
			t.Fatalf("saveSnapshot: %v", err)
		}
		if _, err := s.Perform(context.Background(), &Request{Action: KindRestoreSnapshot}); err != nil {
			t.Fatalf("restoreSnapshot: %v", err)
		}
	})

	t.Run("falls back to store", func(t *testing.T) {
		pg := storagePage()
		store := newMemStore()
		store.saved["p_b_pg"] = &Snapshot{URL: "https://example.org/stored"}
		s := NewSession("p_b_pg", pg, Config{Store: store})

		if _, err := s.Perform(context.Background(), &Request{Action: KindRestoreSnapshot}); err != nil {
			t.Fatalf("restoreSnapshot: %v", err)
		}
		if pg.URL() != "https://example.org/stored" {
			t.Errorf("expected stored snapshot restored, got %q", pg.URL())
		}
	})

	t.Run("nothing to restore", func(t *testing.T) {
		pg := storagePage()
		s := NewSession("p_b_pg", pg, Config{})

		_, err := s.Perform(context.Background(), &Request{Action: KindRestoreSnapshot})
		if !errors.Is(err, ErrNoSnapshot) {
			t.Fatalf("expected ErrNoSnapshot, got %v", err)
		}
	})
}
