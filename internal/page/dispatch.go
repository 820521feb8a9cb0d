package page

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jmylchreest/webpilot/internal/engine"
)

// ScreenshotResult carries a captured screenshot as base64.
type ScreenshotResult struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// PageContents is the extractPageContents result.
type PageContents struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CoverageResult is the stopJSCoverage result.
type CoverageResult struct {
	Entries []engine.CoverageEntry `json:"entries"`
}

// PageMetricsResult is the getPageMetrics result: engine performance
// counters plus viewport, navigation timing and resource entries.
type PageMetricsResult struct {
	Counters  map[string]float64 `json:"counters"`
	Viewport  engine.Viewport    `json:"viewport"`
	Timing    any                `json:"timing,omitempty"`
	Resources any                `json:"resources,omitempty"`
}

func (s *Session) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Action {
	case KindClick:
		return nil, s.click(ctx, req)
	case KindAuthenticate:
		return nil, s.page.Authenticate(ctx, *req.Credentials)
	case KindSetUserAgent:
		return nil, s.page.SetUserAgent(ctx, req.UserAgent)
	case KindScreenshot:
		return s.screenshot(ctx, req)
	case KindGoto:
		return nil, s.navigate(ctx, req)
	case KindGoBack:
		return nil, s.page.NavigateBack(ctx)
	case KindGoForward:
		return nil, s.page.NavigateForward(ctx)
	case KindSaveSnapshot:
		return s.saveSnapshot(ctx)
	case KindRestoreSnapshot:
		return nil, s.restoreSnapshot(ctx, req.Snapshot)
	case KindEvaluate:
		return s.page.Evaluate(ctx, req.Code, req.Args...)
	case KindEvaluateOnNewDocument:
		return nil, s.page.EvaluateOnNewDocument(ctx, req.Code)
	case KindEvaluateHandle:
		return s.page.EvaluateHandle(ctx, req.Code, req.Args...)
	case KindExposeFunction:
		return nil, s.page.ExposeFunction(req.Name, req.Code)
	case KindRemoveFunction:
		return nil, s.page.RemoveFunction(req.Name)
	case KindSetViewport:
		return nil, s.page.SetViewport(ctx, req.Width, req.Height)
	case KindSetCookie:
		return nil, s.page.SetCookies(ctx, req.Cookies)
	case KindDeleteCookie:
		if req.All {
			return nil, s.page.ClearCookies(ctx)
		}
		names := make([]string, len(req.Cookies))
		for i, c := range req.Cookies {
			names[i] = c.Name
		}
		return nil, s.page.DeleteCookies(ctx, names...)
	case KindSetGeolocation:
		return nil, s.page.SetGeolocation(ctx, *req.Latitude, *req.Longitude)
	case KindClearGeolocation:
		return nil, s.page.ClearGeolocation(ctx)
	case KindAddScriptTag:
		return nil, s.page.AddScriptTag(ctx, req.URL)
	case KindRemoveScriptTag:
		return nil, s.page.RemoveScriptTag(ctx, req.URL)
	case KindEmulateMedia:
		return nil, s.page.EmulateMedia(ctx, req.MediaType)
	case KindSetContent:
		return nil, s.page.SetContent(ctx, req.Content)
	case KindStartJSCoverage:
		return nil, s.page.StartJSCoverage(ctx)
	case KindStopJSCoverage:
		entries, err := s.page.StopJSCoverage(ctx)
		if err != nil {
			return nil, err
		}
		return &CoverageResult{Entries: entries}, nil
	case KindGetAccessibilityTree:
		return s.page.AccessibilityTree(ctx)
	case KindExtractPageContents:
		return s.extractPageContents(ctx)
	case KindGetPageMetrics:
		return s.pageMetrics(ctx)
	default:
		// Validate catches this first; kept as a guard.
		return nil, fmt.Errorf("%w: %q", ErrActionNotImplemented, req.Action)
	}
}

func (s *Session) click(ctx context.Context, req *Request) error {
	if req.waitForSelector() {
		if err := s.page.WaitForSelector(ctx, req.Selector); err != nil {
			return err
		}
	}
	return s.page.Click(ctx, req.Selector)
}

func (s *Session) screenshot(ctx context.Context, req *Request) (*ScreenshotResult, error) {
	opts := engine.ScreenshotOptions{Format: "png"}
	if req.Screenshot != nil {
		opts = *req.Screenshot
		if opts.Format == "" {
			opts.Format = "png"
		}
	}
	data, err := s.page.Screenshot(ctx, &opts)
	if err != nil {
		return nil, err
	}
	return &ScreenshotResult{
		Data:   base64.StdEncoding.EncodeToString(data),
		Format: opts.Format,
	}, nil
}

func (s *Session) navigate(ctx context.Context, req *Request) error {
	if err := s.page.Navigate(ctx, req.URL, req.Navigation); err != nil {
		return err
	}
	if req.WaitForContent == "" {
		return nil
	}
	interval := s.cfg.WaitContentInterval
	if req.WaitIntervalMS > 0 {
		interval = msToDuration(req.WaitIntervalMS)
	}
	timeout := s.cfg.WaitContentTimeout
	if req.WaitTimeoutMS > 0 {
		timeout = msToDuration(req.WaitTimeoutMS)
	}
	return s.waitForContent(ctx, req.WaitForContent, interval, timeout)
}

func (s *Session) extractPageContents(ctx context.Context) (*PageContents, error) {
	title, err := s.page.Title(ctx)
	if err != nil {
		return nil, err
	}
	content, err := s.page.Content(ctx)
	if err != nil {
		return nil, err
	}
	return &PageContents{URL: s.page.URL(), Title: title, Content: content}, nil
}

func (s *Session) pageMetrics(ctx context.Context) (*PageMetricsResult, error) {
	counters, err := s.page.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	res := &PageMetricsResult{Counters: counters, Viewport: s.page.Viewport()}
	// Timing and resource entries come from the page itself; headless
	// engines without a DOM report them as absent.
	timing, err := s.page.Evaluate(ctx, `() => JSON.parse(JSON.stringify(performance.getEntriesByType('navigation')))`)
	if err != nil {
		return nil, err
	}
	res.Timing = timing
	resources, err := s.page.Evaluate(ctx, `() => performance.getEntriesByType('resource').map(e => ({name: e.name, duration: e.duration, size: e.transferSize}))`)
	if err != nil {
		return nil, err
	}
	res.Resources = resources
	return res, nil
}
