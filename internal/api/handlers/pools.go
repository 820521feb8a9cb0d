// Package handlers provides HTTP handlers for the webpilot service API.
package handlers

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/webpilot/internal/pool"
)

// PoolInfo describes one browser pool.
type PoolInfo struct {
	ID        string    `json:"id"`
	Capacity  int       `json:"capacity"`
	Browsers  int       `json:"browsers"`
	Sessions  int       `json:"sessions"`
	CreatedAt time.Time `json:"created_at"`
}

func poolInfo(p *pool.Pool) PoolInfo {
	return PoolInfo{
		ID:        p.ID(),
		Capacity:  p.Capacity(),
		Browsers:  p.BrowserCount(),
		Sessions:  p.SessionCount(),
		CreatedAt: p.CreatedAt(),
	}
}

// PoolsHandler handles pool lifecycle requests.
type PoolsHandler struct {
	admin  *pool.Admin
	logger *slog.Logger
}

// NewPoolsHandler creates a new pools handler.
func NewPoolsHandler(admin *pool.Admin, logger *slog.Logger) *PoolsHandler {
	return &PoolsHandler{admin: admin, logger: logger}
}

// Create registers a new pool.
func (h *PoolsHandler) Create(id string, capacity int) (*PoolInfo, error) {
	p, err := h.admin.CreatePool(id, capacity)
	if err != nil {
		h.logger.Warn("pool creation failed", "pool_id", id, "error", err)
		return nil, err
	}
	info := poolInfo(p)
	return &info, nil
}

// List returns all pools.
func (h *PoolsHandler) List() []PoolInfo {
	pools := h.admin.Pools()
	out := make([]PoolInfo, 0, len(pools))
	for _, p := range pools {
		out = append(out, poolInfo(p))
	}
	return out
}

// Get returns one pool.
func (h *PoolsHandler) Get(id string) (*PoolInfo, error) {
	p, err := h.admin.GetPool(id)
	if err != nil {
		return nil, err
	}
	info := poolInfo(p)
	return &info, nil
}

// Remove tears down a pool and its browsers.
func (h *PoolsHandler) Remove(id string) error {
	return h.admin.RemovePool(id)
}
