// Package api wires the service's HTTP operations into a Huma API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/webpilot/internal/api/handlers"
	"github.com/jmylchreest/webpilot/internal/page"
	"github.com/jmylchreest/webpilot/internal/pool"
	"github.com/jmylchreest/webpilot/internal/sessionid"
)

// Handlers groups the service handlers the routes dispatch to.
type Handlers struct {
	Health   *handlers.HealthHandler
	Pools    *handlers.PoolsHandler
	Sessions *handlers.SessionsHandler
}

// CreatePoolInput is the input for pool creation.
type CreatePoolInput struct {
	Body struct {
		ID       string `json:"id" doc:"Pool identifier, must not contain underscores"`
		Capacity int    `json:"capacity,omitempty" doc:"Maximum browsers, 0 for the server default"`
	}
}

// PoolOutput wraps a single pool.
type PoolOutput struct {
	Body handlers.PoolInfo
}

// PoolListOutput wraps the pool list.
type PoolListOutput struct {
	Body struct {
		Pools []handlers.PoolInfo `json:"pools"`
	}
}

// PoolIDInput selects a pool by path.
type PoolIDInput struct {
	PoolID string `path:"poolId"`
}

// NewSessionInput selects the pool a session starts in.
type NewSessionInput struct {
	PoolID string `query:"pool_id" required:"true" doc:"Pool to start the session in"`
}

// SessionOutput wraps a session descriptor.
type SessionOutput struct {
	Body handlers.SessionInfo
}

// SessionIDInput selects a session by path.
type SessionIDInput struct {
	SessionID string `path:"sessionId"`
}

// ActionInput carries one action request for a session.
type ActionInput struct {
	SessionID string `path:"sessionId"`
	Body      page.Request
}

// ActionOutput wraps an action result.
type ActionOutput struct {
	Body handlers.ActionResponse
}

// RegisterHealth registers the unauthenticated health operation.
func RegisterHealth(api huma.API, h *Handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns health status and pool statistics",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*handlers.HealthOutput, error) {
		resp := h.Health.Handle(ctx)
		return &handlers.HealthOutput{Body: *resp}, nil
	})
}

// Register registers the protected pool and session operations.
func Register(api huma.API, h *Handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "createPool",
		Method:        http.MethodPost,
		Path:          "/v1/pools",
		Summary:       "Create a browser pool",
		Tags:          []string{"Pools"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreatePoolInput) (*PoolOutput, error) {
		info, err := h.Pools.Create(input.Body.ID, input.Body.Capacity)
		if err != nil {
			return nil, mapError(err)
		}
		return &PoolOutput{Body: *info}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listPools",
		Method:      http.MethodGet,
		Path:        "/v1/pools",
		Summary:     "List browser pools",
		Tags:        []string{"Pools"},
	}, func(ctx context.Context, input *struct{}) (*PoolListOutput, error) {
		out := &PoolListOutput{}
		out.Body.Pools = h.Pools.List()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getPool",
		Method:      http.MethodGet,
		Path:        "/v1/pools/{poolId}",
		Summary:     "Get a browser pool",
		Tags:        []string{"Pools"},
	}, func(ctx context.Context, input *PoolIDInput) (*PoolOutput, error) {
		info, err := h.Pools.Get(input.PoolID)
		if err != nil {
			return nil, mapError(err)
		}
		return &PoolOutput{Body: *info}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "removePool",
		Method:        http.MethodDelete,
		Path:          "/v1/pools/{poolId}",
		Summary:       "Remove a browser pool",
		Description:   "Closes every browser and session in the pool",
		Tags:          []string{"Pools"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *PoolIDInput) (*struct{}, error) {
		if err := h.Pools.Remove(input.PoolID); err != nil {
			return nil, mapError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "newSession",
		Method:        http.MethodGet,
		Path:          "/v1/sessions/new",
		Summary:       "Start a page session",
		Description:   "Opens a new page session in the given pool and returns its composite id",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *NewSessionInput) (*SessionOutput, error) {
		info, err := h.Sessions.Start(ctx, input.PoolID)
		if err != nil {
			return nil, mapError(err)
		}
		return &SessionOutput{Body: *info}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "closeSession",
		Method:        http.MethodPatch,
		Path:          "/v1/sessions/{sessionId}/close",
		Summary:       "Close a page session",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SessionIDInput) (*struct{}, error) {
		if err := h.Sessions.Close(ctx, input.SessionID); err != nil {
			return nil, mapError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sessionAction",
		Method:      http.MethodPost,
		Path:        "/v1/sessions/{sessionId}/action",
		Summary:     "Perform an action on a page session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ActionInput) (*ActionOutput, error) {
		resp, err := h.Sessions.Action(ctx, input.SessionID, &input.Body)
		if err != nil {
			return nil, mapError(err)
		}
		return &ActionOutput{Body: *resp}, nil
	})
}

// mapError translates domain errors to HTTP status errors.
func mapError(err error) error {
	var actionErr *page.ActionError

	switch {
	case errors.Is(err, pool.ErrPoolNotFound),
		errors.Is(err, pool.ErrBrowserNotFound),
		errors.Is(err, pool.ErrSessionNotFound),
		errors.Is(err, page.ErrSessionClosed):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, sessionid.ErrInvalidSessionID),
		errors.Is(err, page.ErrInvalidActionParams):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, pool.ErrPoolExists),
		errors.Is(err, pool.ErrPoolCapacityReached):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, page.ErrActionNotImplemented):
		return huma.Error501NotImplemented(err.Error())
	case errors.Is(err, page.ErrWaitTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(err.Error())
	case errors.Is(err, pool.ErrBrowserLaunch),
		errors.As(err, &actionErr):
		return huma.Error502BadGateway(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
