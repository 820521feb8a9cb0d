package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrWaitTimeout is returned when the page content never contained the
// requested text within the wait window.
var ErrWaitTimeout = errors.New("timed out waiting for page content")

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// waitForContent polls the page content every interval until it
// contains text or timeout elapses. Each round checks first and then
// sleeps, so a timeout of 2*interval yields exactly two checks.
func (s *Session) waitForContent(ctx context.Context, text string, interval, timeout time.Duration) error {
	var elapsed time.Duration
	for elapsed < timeout {
		content, err := s.page.Content(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(content, text) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		elapsed += interval
	}
	return fmt.Errorf("%w: %q not found after %s", ErrWaitTimeout, text, timeout)
}
