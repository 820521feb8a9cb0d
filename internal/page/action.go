package page

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/webpilot/internal/engine"
)

// Kind identifies one page action. The set is closed: dispatching any
// other value fails with ErrActionNotImplemented.
type Kind string

// The supported page actions.
const (
	KindClick                 Kind = "click"
	KindAuthenticate          Kind = "authenticate"
	KindSetUserAgent          Kind = "setUserAgent"
	KindScreenshot            Kind = "screenshot"
	KindGoto                  Kind = "goto"
	KindGoBack                Kind = "goBack"
	KindGoForward             Kind = "goForward"
	KindSaveSnapshot          Kind = "saveSnapshot"
	KindRestoreSnapshot       Kind = "restoreSnapshot"
	KindEvaluate              Kind = "evaluate"
	KindEvaluateOnNewDocument Kind = "evaluateOnNewDocument"
	KindEvaluateHandle        Kind = "evaluateHandle"
	KindExposeFunction        Kind = "exposeFunction"
	KindRemoveFunction        Kind = "removeFunction"
	KindSetViewport           Kind = "setViewport"
	KindSetCookie             Kind = "setCookie"
	KindDeleteCookie          Kind = "deleteCookie"
	KindSetGeolocation        Kind = "setGeolocation"
	KindClearGeolocation      Kind = "clearGeolocation"
	KindAddScriptTag          Kind = "addScriptTag"
	KindRemoveScriptTag       Kind = "removeScriptTag"
	KindEmulateMedia          Kind = "emulateMedia"
	KindSetContent            Kind = "setContent"
	KindStartJSCoverage       Kind = "startJSCoverage"
	KindStopJSCoverage        Kind = "stopJSCoverage"
	KindGetAccessibilityTree  Kind = "getAccessibilityTree"
	KindExtractPageContents   Kind = "extractPageContents"
	KindGetPageMetrics        Kind = "getPageMetrics"
)

var (
	// ErrActionNotImplemented is returned for action kinds outside the
	// closed enumeration.
	ErrActionNotImplemented = errors.New("action not implemented")
	// ErrInvalidActionParams is returned when a request is missing or
	// carries malformed parameters for its action kind.
	ErrInvalidActionParams = errors.New("invalid action parameters")
)

// Request carries one action and its parameters. Fields are grouped by
// the actions that consume them; Validate checks the combination
// structurally before any handler runs.
type Request struct {
	Action Kind `json:"action"`

	// click
	Selector        string `json:"selector,omitempty"`
	WaitForSelector *bool  `json:"wait_for_selector,omitempty"` // default true

	// authenticate
	Credentials *engine.Credentials `json:"credentials,omitempty"`

	// setUserAgent
	UserAgent string `json:"user_agent,omitempty"`

	// screenshot
	Screenshot *engine.ScreenshotOptions `json:"screenshot,omitempty"`

	// goto / goBack / goForward / addScriptTag / removeScriptTag
	URL            string                  `json:"url,omitempty"`
	Navigation     *engine.NavigateOptions `json:"navigation,omitempty"`
	WaitForContent string                  `json:"wait_for_content,omitempty"`
	WaitIntervalMS int                     `json:"wait_interval_ms,omitempty"`
	WaitTimeoutMS  int                     `json:"wait_timeout_ms,omitempty"`

	// restoreSnapshot
	Snapshot *Snapshot `json:"snapshot,omitempty"`

	// evaluate / evaluateOnNewDocument / evaluateHandle / exposeFunction
	Code string `json:"code,omitempty"`
	Args []any  `json:"args,omitempty"`

	// exposeFunction / removeFunction
	Name string `json:"name,omitempty"`

	// setViewport
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// setCookie / deleteCookie
	Cookies []engine.Cookie `json:"cookies,omitempty"`
	All     bool            `json:"all,omitempty"`

	// setGeolocation
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// emulateMedia
	MediaType string `json:"media_type,omitempty"`

	// setContent
	Content string `json:"content,omitempty"`
}

// Validate checks the request's parameters against its action kind.
// Unknown kinds fail with ErrActionNotImplemented.
func (r *Request) Validate() error {
	switch r.Action {
	case KindClick:
		if r.Selector == "" {
			return missingParam("selector", r.Action)
		}
	case KindAuthenticate:
		if r.Credentials == nil {
			return missingParam("credentials", r.Action)
		}
	case KindSetUserAgent:
		if r.UserAgent == "" {
			return missingParam("user_agent", r.Action)
		}
	case KindGoto:
		if r.URL == "" {
			return missingParam("url", r.Action)
		}
	case KindEvaluate, KindEvaluateOnNewDocument, KindEvaluateHandle:
		if r.Code == "" {
			return missingParam("code", r.Action)
		}
	case KindExposeFunction:
		if r.Name == "" {
			return missingParam("name", r.Action)
		}
		if r.Code == "" {
			return missingParam("code", r.Action)
		}
	case KindRemoveFunction:
		if r.Name == "" {
			return missingParam("name", r.Action)
		}
	case KindSetViewport:
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("%w: %q requires positive width and height", ErrInvalidActionParams, r.Action)
		}
	case KindSetCookie:
		if len(r.Cookies) == 0 {
			return missingParam("cookies", r.Action)
		}
	case KindDeleteCookie:
		if !r.All && len(r.Cookies) == 0 {
			return fmt.Errorf("%w: %q requires cookies or all", ErrInvalidActionParams, r.Action)
		}
	case KindSetGeolocation:
		if r.Latitude == nil || r.Longitude == nil {
			return fmt.Errorf("%w: %q requires latitude and longitude", ErrInvalidActionParams, r.Action)
		}
	case KindAddScriptTag, KindRemoveScriptTag:
		if r.URL == "" {
			return missingParam("url", r.Action)
		}
	case KindEmulateMedia:
		switch r.MediaType {
		case "screen", "print", "none":
		default:
			return fmt.Errorf("%w: %q requires media_type of screen, print or none", ErrInvalidActionParams, r.Action)
		}
	case KindSetContent:
		if r.Content == "" {
			return missingParam("content", r.Action)
		}
	case KindScreenshot, KindGoBack, KindGoForward, KindSaveSnapshot,
		KindRestoreSnapshot, KindClearGeolocation, KindStartJSCoverage,
		KindStopJSCoverage, KindGetAccessibilityTree,
		KindExtractPageContents, KindGetPageMetrics:
		// No required parameters.
	default:
		return fmt.Errorf("%w: %q", ErrActionNotImplemented, r.Action)
	}
	return nil
}

// waitForSelector reports whether a click should wait for its selector
// first (the default).
func (r *Request) waitForSelector() bool {
	return r.WaitForSelector == nil || *r.WaitForSelector
}

func missingParam(name string, action Kind) error {
	return fmt.Errorf("%w: %q requires %s", ErrInvalidActionParams, action, name)
}
