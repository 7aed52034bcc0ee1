package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrWaitTimeout is returned by Wait when the condition does not hold in time
var ErrWaitTimeout = errors.New("browser: wait timed out")

// DefaultPollInterval is used by Wait when interval is not positive
const DefaultPollInterval = 250 * time.Millisecond

// Condition reports whether a page condition holds. Errors are treated as
// "not yet" by Wait and surfaced only when the wait times out.
type Condition func(ctx context.Context) (bool, error)

// Wait polls cond every interval until it holds or timeout elapses. Each
// poll runs under the wait's deadline, so a stuck browser call cannot
// outlive the bound.
func Wait(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond(wctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-wctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
				return eris.Wrapf(ErrWaitTimeout, "after %s (last error: %v)", timeout, lastErr)
			}
			return eris.Wrapf(ErrWaitTimeout, "after %s", timeout)
		case <-ticker.C:
		}
	}
}

// TitleContains holds once the page title contains substr
func TitleContains(s Session, substr string) Condition {
	return func(ctx context.Context) (bool, error) {
		title, err := s.Title(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(title, substr), nil
	}
}

// URLContains holds once the current URL contains substr
func URLContains(s Session, substr string) Condition {
	return func(ctx context.Context) (bool, error) {
		u, err := s.URL(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(u, substr), nil
	}
}

// ElementLocated holds once loc matches at least one element, which is
// stored in *found.
func ElementLocated(s Session, loc Locator, found *Element) Condition {
	return func(ctx context.Context) (bool, error) {
		els, err := s.FindElements(ctx, loc)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}
		if found != nil {
			*found = els[0]
		}
		return true, nil
	}
}

// ElementVisible holds once el is rendered
func ElementVisible(el Element) Condition {
	return el.Visible
}

// ElementEnabled holds once el accepts input
func ElementEnabled(el Element) Condition {
	return el.Enabled
}
