package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/jmylchreest/webpilot/internal/api/handlers"
	"github.com/jmylchreest/webpilot/internal/cache"
	"github.com/jmylchreest/webpilot/internal/engine/enginetest"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/pool"
	"github.com/jmylchreest/webpilot/internal/sessionid"
)

func newTestAPI(t *testing.T) (humatest.TestAPI, *enginetest.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng := enginetest.NewEngine()
	sessionCache, err := cache.New[*page.Session](cache.Options{MaxItems: 64, TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	admin := pool.NewAdmin(eng, pool.AdminOptions{
		DefaultCapacity:       2,
		MaxSessionsPerBrowser: 1,
		SessionCache:          sessionCache,
		SessionConfig: page.Config{
			WaitContentInterval: time.Millisecond,
			WaitContentTimeout:  5 * time.Millisecond,
			Logger:              logger,
		},
		Logger: logger,
	})
	t.Cleanup(func() { _ = admin.Close() })

	h := &Handlers{
		Health:   handlers.NewHealthHandler(admin),
		Pools:    handlers.NewPoolsHandler(admin, logger),
		Sessions: handlers.NewSessionsHandler(admin, time.Minute, logger),
	}

	_, api := humatest.New(t)
	RegisterHealth(api, h)
	Register(api, h)
	return api, eng
}

func createPool(t *testing.T, api humatest.TestAPI, id string, capacity int) {
	t.Helper()
	resp := api.Post("/v1/pools", map[string]any{"id": id, "capacity": capacity})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating pool, got %d: %s", resp.Code, resp.Body.String())
	}
}

func startSession(t *testing.T, api humatest.TestAPI, poolID string) string {
	t.Helper()
	resp := api.Get("/v1/sessions/new?pool_id=" + poolID)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 starting session, got %d: %s", resp.Code, resp.Body.String())
	}
	var info handlers.SessionInfo
	if err := json.Unmarshal(resp.Body.Bytes(), &info); err != nil {
		t.Fatalf("decoding session info: %v", err)
	}
	return info.ID
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var health handlers.HealthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
}

func TestPoolLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)

	createPool(t, api, "default", 2)

	t.Run("duplicate conflicts", func(t *testing.T) {
		resp := api.Post("/v1/pools", map[string]any{"id": "default"})
		if resp.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", resp.Code)
		}
	})

	t.Run("underscore id rejected", func(t *testing.T) {
		resp := api.Post("/v1/pools", map[string]any{"id": "bad_id"})
		if resp.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		resp := api.Get("/v1/pools")
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		var out struct {
			Pools []handlers.PoolInfo `json:"pools"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
			t.Fatalf("decoding list: %v", err)
		}
		if len(out.Pools) != 1 || out.Pools[0].ID != "default" {
			t.Errorf("unexpected pools %+v", out.Pools)
		}
	})

	t.Run("get", func(t *testing.T) {
		if resp := api.Get("/v1/pools/default"); resp.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.Code)
		}
		if resp := api.Get("/v1/pools/nope"); resp.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.Code)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if resp := api.Delete("/v1/pools/default"); resp.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.Code)
		}
		if resp := api.Delete("/v1/pools/default"); resp.Code != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", resp.Code)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	createPool(t, api, "p", 2)

	id := startSession(t, api, "p")
	if _, _, _, err := sessionid.Decode(id); err != nil {
		t.Fatalf("session id %q not composite: %v", id, err)
	}

	t.Run("unknown pool", func(t *testing.T) {
		resp := api.Get("/v1/sessions/new?pool_id=nope")
		if resp.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.Code)
		}
	})

	t.Run("capacity exhaustion", func(t *testing.T) {
		startSession(t, api, "p")
		resp := api.Get("/v1/sessions/new?pool_id=p")
		if resp.Code != http.StatusConflict {
			t.Errorf("expected 409 when pool is full, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("close", func(t *testing.T) {
		resp := api.Patch(fmt.Sprintf("/v1/sessions/%s/close", id))
		if resp.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", resp.Code, resp.Body.String())
		}
		resp = api.Patch(fmt.Sprintf("/v1/sessions/%s/close", id))
		if resp.Code != http.StatusNotFound {
			t.Errorf("expected 404 on second close, got %d", resp.Code)
		}
	})
}

func TestSessionAction(t *testing.T) {
	api, eng := newTestAPI(t)
	createPool(t, api, "p", 2)
	id := startSession(t, api, "p")
	actionPath := fmt.Sprintf("/v1/sessions/%s/action", id)

	t.Run("goto", func(t *testing.T) {
		resp := api.Post(actionPath, map[string]any{
			"action": "goto",
			"url":    "https://example.org",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		pg := eng.Browsers()[0].Pages()[0]
		if pg.URL() != "https://example.org" {
			t.Errorf("expected navigation, url %q", pg.URL())
		}
	})

	t.Run("screenshot returns result", func(t *testing.T) {
		resp := api.Post(actionPath, map[string]any{"action": "screenshot"})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		var out handlers.ActionResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
			t.Fatalf("decoding action response: %v", err)
		}
		if out.Status != "ok" || out.Result == nil {
			t.Errorf("unexpected response %+v", out)
		}
	})

	t.Run("missing params", func(t *testing.T) {
		resp := api.Post(actionPath, map[string]any{"action": "click"})
		if resp.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		resp := api.Post(actionPath, map[string]any{"action": "teleport"})
		if resp.Code != http.StatusNotImplemented {
			t.Errorf("expected 501, got %d", resp.Code)
		}
	})

	t.Run("wait timeout maps to 504", func(t *testing.T) {
		resp := api.Post(actionPath, map[string]any{
			"action":           "goto",
			"url":              "https://example.org",
			"wait_for_content": "never-appears",
			"wait_interval_ms": 1,
			"wait_timeout_ms":  2,
		})
		if resp.Code != http.StatusGatewayTimeout {
			t.Errorf("expected 504, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("malformed session id", func(t *testing.T) {
		resp := api.Post("/v1/sessions/not-composite/action", map[string]any{"action": "screenshot"})
		if resp.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		resp := api.Post("/v1/sessions/q_b_pg/action", map[string]any{"action": "screenshot"})
		if resp.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.Code)
		}
	})
}

func TestMapErrorClosedSession(t *testing.T) {
	var se huma.StatusError
	if !errors.As(mapError(page.ErrSessionClosed), &se) {
		t.Fatal("expected a status error")
	}
	if se.GetStatus() != http.StatusNotFound {
		t.Errorf("expected 404 for a closed session, got %d", se.GetStatus())
	}
}
