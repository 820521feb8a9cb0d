package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmylchreest/webpilot/internal/logging"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/pool"
	"github.com/jmylchreest/webpilot/internal/sessionid"
)

// SessionInfo describes one page session.
type SessionInfo struct {
	ID       string    `json:"session_id"`
	LastUsed time.Time `json:"last_used"`
}

// ActionResponse wraps an action result.
type ActionResponse struct {
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
}

// SessionsHandler handles session lifecycle and action requests.
type SessionsHandler struct {
	admin         *pool.Admin
	actionTimeout time.Duration
	logger        *slog.Logger
}

// NewSessionsHandler creates a new sessions handler. actionTimeout
// bounds each action's execution; zero disables the bound.
func NewSessionsHandler(admin *pool.Admin, actionTimeout time.Duration, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{admin: admin, actionTimeout: actionTimeout, logger: logger}
}

// Start opens a new page session in the named pool.
func (h *SessionsHandler) Start(ctx context.Context, poolID string) (*SessionInfo, error) {
	sess, err := h.admin.StartSession(ctx, poolID)
	if err != nil {
		h.logger.Warn("session start failed", "pool_id", poolID, "error", err)
		return nil, err
	}
	return &SessionInfo{ID: sess.ID(), LastUsed: sess.LastUsed()}, nil
}

// Close ends a session. An engine-level close failure is non-fatal:
// the session entry is already removed, so only resolution failures
// surface to the caller.
func (h *SessionsHandler) Close(ctx context.Context, id string) error {
	err := h.admin.CloseSession(id)
	switch {
	case err == nil:
	case errors.Is(err, pool.ErrSessionNotFound),
		errors.Is(err, pool.ErrBrowserNotFound),
		errors.Is(err, pool.ErrPoolNotFound),
		errors.Is(err, sessionid.ErrInvalidSessionID):
		h.logger.Warn("session close failed", "session_id", id, "error", err)
		return err
	default:
		h.logger.Warn("session close reported error", "session_id", id, "error", err)
	}
	h.logger.Info("session closed", "session_id", id)
	return nil
}

// Action runs one action on a session.
func (h *SessionsHandler) Action(ctx context.Context, id string, req *page.Request) (*ActionResponse, error) {
	sess, err := h.admin.ResolveSession(id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithSessionID(ctx, id)
	if h.actionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.actionTimeout)
		defer cancel()
	}

	result, err := sess.Perform(ctx, req)
	if err != nil {
		h.logger.Warn("action failed",
			"session_id", id,
			"action", string(req.Action),
			"error", err,
		)
		return nil, err
	}
	return &ActionResponse{Status: "ok", Result: result}, nil
}
