// Package enginetest provides an in-memory fake of the automation engine
// for tests. Pages record every call, serve scripted content, and can be
// told to fail specific operations.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmylchreest/webpilot/internal/engine"
)

// Engine is a fake engine.Engine.
type Engine struct {
	mu sync.Mutex

	// LaunchErr makes Launch fail when set.
	LaunchErr error

	browsers []*Browser
}

// NewEngine creates a fake engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Launch returns a new fake browser, or LaunchErr when set.
func (e *Engine) Launch(ctx context.Context) (engine.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.LaunchErr != nil {
		return nil, e.LaunchErr
	}
	b := &Browser{}
	e.browsers = append(e.browsers, b)
	return b, nil
}

// Browsers returns all browsers launched so far.
func (e *Engine) Browsers() []*Browser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Browser(nil), e.browsers...)
}

// Browser is a fake engine.Browser.
type Browser struct {
	mu sync.Mutex

	// NewPageErr makes NewPage fail when set.
	NewPageErr error
	// CloseErr makes Close fail when set.
	CloseErr error

	pages  []*Page
	closed bool
}

// NewPage returns a new fake page, or NewPageErr when set.
func (b *Browser) NewPage(ctx context.Context) (engine.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	p := NewPage()
	b.pages = append(b.pages, p)
	return p, nil
}

// Close marks the browser closed.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.CloseErr
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Pages returns all pages opened so far.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

// Page is a fake engine.Page. All operations succeed and are recorded
// unless an error is scripted for them in Errs.
type Page struct {
	mu sync.Mutex

	// Errs maps an operation name ("navigate", "click", "evaluate", ...)
	// to an error that operation should return.
	Errs map[string]error

	// EvalFunc, when set, handles Evaluate calls.
	EvalFunc func(code string, args ...any) (any, error)

	// HTML is returned by Content. ContentFunc takes precedence when set
	// (called once per Content call, letting tests script changing pages).
	HTML        string
	ContentFunc func(call int) string

	// PageTitle is returned by Title.
	PageTitle string

	// MetricsVal is returned by Metrics.
	MetricsVal map[string]float64

	calls        []string
	contentCalls int
	currentURL   string
	userAgent    string
	cookies      []engine.Cookie
	viewport     engine.Viewport
	closed       bool
}

// NewPage creates a fake page.
func NewPage() *Page {
	return &Page{
		Errs:     make(map[string]error),
		viewport: engine.Viewport{Width: 1920, Height: 1080},
	}
}

func (p *Page) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *Page) failure(op string) error {
	if err, ok := p.Errs[op]; ok {
		return err
	}
	return nil
}

// Calls returns the recorded operations in order.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// ContentCalls returns how many times Content was called.
func (p *Page) ContentCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contentCalls
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// SetCookiesVal seeds the page's cookie jar.
func (p *Page) SetCookiesVal(cookies []engine.Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = cookies
}

// SetURL seeds the page's current URL.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentURL = url
}

// UserAgent returns the last user agent override.
func (p *Page) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgent
}

func (p *Page) Navigate(ctx context.Context, url string, opts *engine.NavigateOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate:" + url)
	if err := p.failure("navigate"); err != nil {
		return err
	}
	p.currentURL = url
	return nil
}

func (p *Page) NavigateBack(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("back")
	return p.failure("back")
}

func (p *Page) NavigateForward(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("forward")
	return p.failure("forward")
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click:" + selector)
	return p.failure("click")
}

func (p *Page) WaitForSelector(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("waitForSelector:" + selector)
	return p.failure("waitForSelector")
}

func (p *Page) Evaluate(ctx context.Context, code string, args ...any) (any, error) {
	p.mu.Lock()
	p.record("evaluate")
	err := p.failure("evaluate")
	fn := p.EvalFunc
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(code, args...)
	}
	return nil, nil
}

func (p *Page) EvaluateOnNewDocument(ctx context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("evaluateOnNewDocument")
	return p.failure("evaluateOnNewDocument")
}

func (p *Page) EvaluateHandle(ctx context.Context, code string, args ...any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("evaluateHandle")
	if err := p.failure("evaluateHandle"); err != nil {
		return "", err
	}
	return "handle-1", nil
}

func (p *Page) ExposeFunction(name, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("exposeFunction:" + name)
	return p.failure("exposeFunction")
}

func (p *Page) RemoveFunction(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("removeFunction:" + name)
	return p.failure("removeFunction")
}

func (p *Page) Authenticate(ctx context.Context, creds engine.Credentials) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("authenticate:" + creds.Username)
	return p.failure("authenticate")
}

func (p *Page) SetUserAgent(ctx context.Context, userAgent string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("setUserAgent")
	if err := p.failure("setUserAgent"); err != nil {
		return err
	}
	p.userAgent = userAgent
	return nil
}

func (p *Page) Screenshot(ctx context.Context, opts *engine.ScreenshotOptions) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("screenshot")
	if err := p.failure("screenshot"); err != nil {
		return nil, err
	}
	return []byte("fake-image"), nil
}

func (p *Page) SetViewport(ctx context.Context, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("setViewport:%dx%d", width, height))
	if err := p.failure("setViewport"); err != nil {
		return err
	}
	p.viewport = engine.Viewport{Width: width, Height: height}
	return nil
}

func (p *Page) Viewport() engine.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

func (p *Page) Cookies(ctx context.Context) ([]engine.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("cookies")
	if err := p.failure("cookies"); err != nil {
		return nil, err
	}
	return append([]engine.Cookie(nil), p.cookies...), nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []engine.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("setCookies")
	if err := p.failure("setCookies"); err != nil {
		return err
	}
	p.cookies = append(p.cookies, cookies...)
	return nil
}

func (p *Page) DeleteCookies(ctx context.Context, names ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("deleteCookies")
	if err := p.failure("deleteCookies"); err != nil {
		return err
	}
	for _, name := range names {
		for i, c := range p.cookies {
			if c.Name == name {
				p.cookies = append(p.cookies[:i], p.cookies[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (p *Page) ClearCookies(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("clearCookies")
	if err := p.failure("clearCookies"); err != nil {
		return err
	}
	p.cookies = nil
	return nil
}

func (p *Page) SetGeolocation(ctx context.Context, latitude, longitude float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("setGeolocation:%v,%v", latitude, longitude))
	return p.failure("setGeolocation")
}

func (p *Page) ClearGeolocation(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("clearGeolocation")
	return p.failure("clearGeolocation")
}

func (p *Page) AddScriptTag(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("addScriptTag:" + url)
	return p.failure("addScriptTag")
}

func (p *Page) RemoveScriptTag(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("removeScriptTag:" + url)
	return p.failure("removeScriptTag")
}

func (p *Page) EmulateMedia(ctx context.Context, mediaType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("emulateMedia:" + mediaType)
	return p.failure("emulateMedia")
}

func (p *Page) SetContent(ctx context.Context, html string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("setContent")
	if err := p.failure("setContent"); err != nil {
		return err
	}
	p.HTML = html
	return nil
}

func (p *Page) StartJSCoverage(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("startJSCoverage")
	return p.failure("startJSCoverage")
}

func (p *Page) StopJSCoverage(ctx context.Context) ([]engine.CoverageEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("stopJSCoverage")
	if err := p.failure("stopJSCoverage"); err != nil {
		return nil, err
	}
	return []engine.CoverageEntry{}, nil
}

func (p *Page) AccessibilityTree(ctx context.Context) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("accessibilityTree")
	if err := p.failure("accessibilityTree"); err != nil {
		return nil, err
	}
	return map[string]any{"role": "RootWebArea"}, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contentCalls++
	p.record("content")
	if err := p.failure("content"); err != nil {
		return "", err
	}
	if p.ContentFunc != nil {
		return p.ContentFunc(p.contentCalls), nil
	}
	return p.HTML, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("title")
	if err := p.failure("title"); err != nil {
		return "", err
	}
	return p.PageTitle, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL
}

func (p *Page) Metrics(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("metrics")
	if err := p.failure("metrics"); err != nil {
		return nil, err
	}
	if p.MetricsVal != nil {
		return p.MetricsVal, nil
	}
	return map[string]float64{"Nodes": 1}, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("close")
	p.closed = true
	return p.failure("close")
}
