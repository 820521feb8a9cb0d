// Package engine abstracts the headless-browser automation capability the
// control plane drives. The core never talks CDP directly: it sequences
// calls into these interfaces and manages the lifetime of the returned
// handles. The production implementation sits on go-rod; tests use the
// in-memory fake from the enginetest subpackage.
package engine

import (
	"context"
	"time"
)

// Engine launches browser processes.
type Engine interface {
	// Launch starts a new browser process and returns its handle.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is one running browser process.
type Browser interface {
	// NewPage opens a new tab.
	NewPage(ctx context.Context) (Page, error)
	// Close terminates the browser process and all of its pages.
	Close() error
}

// Page is a single browser tab. It exposes the full action surface the
// dispatch engine needs; every call that reaches the browser takes a
// context so in-flight work can be cancelled.
type Page interface {
	Navigate(ctx context.Context, url string, opts *NavigateOptions) error
	NavigateBack(ctx context.Context) error
	NavigateForward(ctx context.Context) error

	Click(ctx context.Context, selector string) error
	WaitForSelector(ctx context.Context, selector string) error

	Evaluate(ctx context.Context, code string, args ...any) (any, error)
	EvaluateOnNewDocument(ctx context.Context, code string) error
	EvaluateHandle(ctx context.Context, code string, args ...any) (string, error)
	ExposeFunction(name, code string) error
	RemoveFunction(name string) error

	Authenticate(ctx context.Context, creds Credentials) error
	SetUserAgent(ctx context.Context, userAgent string) error

	Screenshot(ctx context.Context, opts *ScreenshotOptions) ([]byte, error)
	SetViewport(ctx context.Context, width, height int) error
	Viewport() Viewport

	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	DeleteCookies(ctx context.Context, names ...string) error
	ClearCookies(ctx context.Context) error

	SetGeolocation(ctx context.Context, latitude, longitude float64) error
	ClearGeolocation(ctx context.Context) error

	AddScriptTag(ctx context.Context, url string) error
	RemoveScriptTag(ctx context.Context, url string) error

	EmulateMedia(ctx context.Context, mediaType string) error
	SetContent(ctx context.Context, html string) error

	StartJSCoverage(ctx context.Context) error
	StopJSCoverage(ctx context.Context) ([]CoverageEntry, error)

	AccessibilityTree(ctx context.Context) (any, error)

	Content(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	URL() string
	Metrics(ctx context.Context) (map[string]float64, error)

	Close() error
}

// Credentials are HTTP auth credentials applied to subsequent requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Cookie is a browser cookie in wire-friendly form.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

// NavigateOptions tune a navigation.
type NavigateOptions struct {
	WaitUntil string        `json:"wait_until,omitempty"` // "load" waits for the load event
	Timeout   time.Duration `json:"-"`
}

// ScreenshotOptions tune a capture.
type ScreenshotOptions struct {
	FullPage bool   `json:"full_page,omitempty"`
	Format   string `json:"format,omitempty"`  // "png" (default) or "jpeg"
	Quality  int    `json:"quality,omitempty"` // jpeg only
}

// Viewport is the page's rendering viewport.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CoverageEntry is one script's JS coverage result.
type CoverageEntry struct {
	URL    string          `json:"url"`
	Ranges []CoverageRange `json:"ranges"`
}

// CoverageRange is a covered byte range within a script.
type CoverageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Count int `json:"count"`
}
