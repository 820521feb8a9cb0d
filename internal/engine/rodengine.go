package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// RodConfig configures the go-rod engine.
type RodConfig struct {
	// ChromePath points at a Chrome/Chromium binary; empty lets rod
	// download and manage its own Chromium.
	ChromePath string
	// Headless runs browsers without a display (the default for this
	// service; only disable for local debugging).
	Headless bool
	// DisableStealth skips the stealth page patches.
	DisableStealth bool
	// Logger for launch/close events.
	Logger *slog.Logger
}

// RodEngine launches browsers through go-rod.
type RodEngine struct {
	cfg RodConfig
}

// NewRodEngine creates a go-rod backed engine.
func NewRodEngine(cfg RodConfig) *RodEngine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RodEngine{cfg: cfg}
}

// Launch starts a new Chromium process and connects to it.
func (e *RodEngine) Launch(ctx context.Context) (Browser, error) {
	l := launcher.New()

	if e.cfg.ChromePath != "" {
		l = l.Bin(e.cfg.ChromePath)
	}

	l = l.
		Headless(e.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-infobars").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("window-size", "1920,1080").
		Set("lang", "en-US,en")

	u, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to chromium: %w", err)
	}

	e.cfg.Logger.Debug("browser process launched")
	return &rodBrowser{
		browser:        b,
		disableStealth: e.cfg.DisableStealth,
		logger:         e.cfg.Logger,
	}, nil
}

type rodBrowser struct {
	browser        *rod.Browser
	disableStealth bool
	logger         *slog.Logger
}

// NewPage opens a new tab, with stealth patches unless disabled.
func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	var (
		pg  *rod.Page
		err error
	)
	if b.disableStealth {
		pg, err = b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	} else {
		pg, err = stealth.Page(b.browser.Context(ctx))
	}
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &rodPage{
		browser:  b.browser,
		page:     pg,
		viewport: Viewport{Width: 1920, Height: 1080},
		exposed:  make(map[string]func() error),
		logger:   b.logger,
	}, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

type rodPage struct {
	browser *rod.Browser
	page    *rod.Page
	logger  *slog.Logger

	mu       sync.Mutex
	viewport Viewport
	exposed  map[string]func() error
}

func (p *rodPage) Navigate(ctx context.Context, url string, opts *NavigateOptions) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	if opts == nil || opts.WaitUntil == "" || opts.WaitUntil == "load" {
		return pg.WaitLoad()
	}
	return nil
}

func (p *rodPage) NavigateBack(ctx context.Context) error {
	return p.page.Context(ctx).NavigateBack()
}

func (p *rodPage) NavigateForward(ctx context.Context) error {
	return p.page.Context(ctx).NavigateForward()
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("selector %q: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("waiting for selector %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, code string, args ...any) (any, error) {
	res, err := p.page.Context(ctx).Eval(code, args...)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (p *rodPage) EvaluateOnNewDocument(ctx context.Context, code string) error {
	_, err := p.page.Context(ctx).EvalOnNewDocument(code)
	return err
}

func (p *rodPage) EvaluateHandle(ctx context.Context, code string, args ...any) (string, error) {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(code, args...).ByObject())
	if err != nil {
		return "", err
	}
	return string(res.ObjectID), nil
}

// ExposeFunction registers a page-callable binding whose implementation is
// the given JS code, evaluated with the call's arguments.
func (p *rodPage) ExposeFunction(name, code string) error {
	stop, err := p.page.Expose(name, func(arg gson.JSON) (any, error) {
		res, evalErr := p.page.Eval(code, arg.Val())
		if evalErr != nil {
			return nil, evalErr
		}
		return res.Value.Val(), nil
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.exposed[name] = stop
	p.mu.Unlock()
	return nil
}

func (p *rodPage) RemoveFunction(name string) error {
	p.mu.Lock()
	stop, ok := p.exposed[name]
	delete(p.exposed, name)
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("function %q is not exposed", name)
	}
	return stop()
}

// Authenticate answers HTTP auth challenges for subsequent requests. The
// handler runs in the background until the browser closes.
func (p *rodPage) Authenticate(ctx context.Context, creds Credentials) error {
	wait := p.browser.HandleAuth(creds.Username, creds.Password)
	go func() {
		if err := wait(); err != nil {
			p.logger.Debug("auth handler finished", "error", err)
		}
	}()
	return nil
}

func (p *rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	return p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: userAgent,
	})
}

func (p *rodPage) Screenshot(ctx context.Context, opts *ScreenshotOptions) ([]byte, error) {
	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	fullPage := false
	if opts != nil {
		fullPage = opts.FullPage
		if opts.Format == "jpeg" {
			req.Format = proto.PageCaptureScreenshotFormatJpeg
			if opts.Quality > 0 {
				quality := opts.Quality
				req.Quality = &quality
			}
		}
	}
	return p.page.Context(ctx).Screenshot(fullPage, req)
}

func (p *rodPage) SetViewport(ctx context.Context, width, height int) error {
	err := p.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.viewport = Viewport{Width: width, Height: height}
	p.mu.Unlock()
	return nil
}

func (p *rodPage) Viewport() Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

func (p *rodPage) Cookies(ctx context.Context) ([]Cookie, error) {
	raw, err := p.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, err
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  int64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (p *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		switch proto.NetworkCookieSameSite(c.SameSite) {
		case proto.NetworkCookieSameSiteStrict:
			param.SameSite = proto.NetworkCookieSameSiteStrict
		case proto.NetworkCookieSameSiteLax:
			param.SameSite = proto.NetworkCookieSameSiteLax
		case proto.NetworkCookieSameSiteNone:
			param.SameSite = proto.NetworkCookieSameSiteNone
		}
		params = append(params, param)
	}
	return p.page.Context(ctx).SetCookies(params)
}

func (p *rodPage) DeleteCookies(ctx context.Context, names ...string) error {
	pg := p.page.Context(ctx)
	for _, name := range names {
		cmd := proto.NetworkDeleteCookies{Name: name, URL: p.URL()}
		if err := cmd.Call(pg); err != nil {
			return fmt.Errorf("deleting cookie %q: %w", name, err)
		}
	}
	return nil
}

func (p *rodPage) ClearCookies(ctx context.Context) error {
	return proto.NetworkClearBrowserCookies{}.Call(p.page.Context(ctx))
}

func (p *rodPage) SetGeolocation(ctx context.Context, latitude, longitude float64) error {
	accuracy := float64(1)
	return proto.EmulationSetGeolocationOverride{
		Latitude:  &latitude,
		Longitude: &longitude,
		Accuracy:  &accuracy,
	}.Call(p.page.Context(ctx))
}

func (p *rodPage) ClearGeolocation(ctx context.Context) error {
	return proto.EmulationClearGeolocationOverride{}.Call(p.page.Context(ctx))
}

func (p *rodPage) AddScriptTag(ctx context.Context, url string) error {
	return p.page.Context(ctx).AddScriptTag(url, "")
}

func (p *rodPage) RemoveScriptTag(ctx context.Context, url string) error {
	_, err := p.page.Context(ctx).Eval(`src => {
		const el = document.querySelector('script[src="' + src + '"]');
		if (el) el.remove();
	}`, url)
	return err
}

func (p *rodPage) EmulateMedia(ctx context.Context, mediaType string) error {
	if mediaType == "none" {
		mediaType = ""
	}
	return proto.EmulationSetEmulatedMedia{Media: mediaType}.Call(p.page.Context(ctx))
}

func (p *rodPage) SetContent(ctx context.Context, html string) error {
	return p.page.Context(ctx).SetDocumentContent(html)
}

func (p *rodPage) StartJSCoverage(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := (proto.ProfilerEnable{}).Call(pg); err != nil {
		return err
	}
	_, err := proto.ProfilerStartPreciseCoverage{
		CallCount: true,
		Detailed:  true,
	}.Call(pg)
	return err
}

func (p *rodPage) StopJSCoverage(ctx context.Context) ([]CoverageEntry, error) {
	pg := p.page.Context(ctx)
	res, err := proto.ProfilerTakePreciseCoverage{}.Call(pg)
	if err != nil {
		return nil, err
	}
	if err := (proto.ProfilerStopPreciseCoverage{}).Call(pg); err != nil {
		return nil, err
	}
	if err := (proto.ProfilerDisable{}).Call(pg); err != nil {
		return nil, err
	}

	entries := make([]CoverageEntry, 0, len(res.Result))
	for _, script := range res.Result {
		entry := CoverageEntry{URL: script.URL}
		for _, fn := range script.Functions {
			for _, r := range fn.Ranges {
				if r.Count == 0 {
					continue
				}
				entry.Ranges = append(entry.Ranges, CoverageRange{
					Start: r.StartOffset,
					End:   r.EndOffset,
					Count: r.Count,
				})
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (p *rodPage) AccessibilityTree(ctx context.Context) (any, error) {
	res, err := proto.AccessibilityGetFullAXTree{}.Call(p.page.Context(ctx))
	if err != nil {
		return nil, err
	}
	return res.Nodes, nil
}

func (p *rodPage) Content(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Metrics(ctx context.Context) (map[string]float64, error) {
	pg := p.page.Context(ctx)
	if err := (proto.PerformanceEnable{}).Call(pg); err != nil {
		return nil, err
	}
	res, err := proto.PerformanceGetMetrics{}.Call(pg)
	if err != nil {
		return nil, err
	}

	metrics := make(map[string]float64, len(res.Metrics))
	for _, m := range res.Metrics {
		metrics[m.Name] = m.Value
	}
	return metrics, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
