package extraction

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"github.com/williampepple1/proxy-trends/internal/browser"
	"github.com/williampepple1/proxy-trends/pkg/models"
)

const (
	// DefaultMaxCount bounds extraction when no maximum is configured
	DefaultMaxCount = 4
	// DefaultReadTimeout bounds each element read when none is configured
	DefaultReadTimeout = 10 * time.Second
)

var (
	// ErrExtraction is matched by every element read failure
	ErrExtraction = errors.New("extraction: read failed")
	// ErrConsumed is yielded when a trend sequence is iterated twice
	ErrConsumed = errors.New("extraction: sequence already consumed")
)

// Extractor reads ranked trend elements from a logged-in session
type Extractor struct {
	Locator  browser.Locator
	MaxCount int
	// ReadTimeout bounds locating the elements and reading each one
	ReadTimeout time.Duration
}

// New creates an extractor for loc returning at most maxCount items
func New(loc browser.Locator, maxCount int) *Extractor {
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	return &Extractor{
		Locator:     loc,
		MaxCount:    maxCount,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Trends returns the trends of s in DOM order. Elements are located and
// read only while the sequence is consumed. The sequence stops at the
// first error it yields and can be consumed once.
func (e *Extractor) Trends(ctx context.Context, s browser.Session) iter.Seq2[models.TrendItem, error] {
	var used atomic.Bool
	return func(yield func(models.TrendItem, error) bool) {
		if used.Swap(true) {
			yield("", ErrConsumed)
			return
		}

		els, err := e.find(ctx, s)
		if err != nil {
			yield("", eris.Wrapf(ErrExtraction, "locate %s: %v", e.Locator, err))
			return
		}
		if limit := e.maxCount(); len(els) > limit {
			els = els[:limit]
		}

		for i, el := range els {
			text, err := e.read(ctx, el)
			if err != nil {
				yield("", eris.Wrapf(ErrExtraction, "trend %d: %v", i+1, err))
				return
			}
			if !yield(models.TrendItem(SelectLine(text)), nil) {
				return
			}
		}
	}
}

func (e *Extractor) find(ctx context.Context, s browser.Session) ([]browser.Element, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout())
	defer cancel()
	return s.FindElements(ctx, e.Locator)
}

func (e *Extractor) read(ctx context.Context, el browser.Element) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout())
	defer cancel()
	return el.Text(ctx)
}

func (e *Extractor) readTimeout() time.Duration {
	if e.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return e.ReadTimeout
}

func (e *Extractor) maxCount() int {
	if e.MaxCount <= 0 {
		return DefaultMaxCount
	}
	return e.MaxCount
}

// SelectLine picks the label of a trend element's text: the second
// non-blank line when there is one, since the first is then a category
// heading, otherwise the first
func SelectLine(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
		if len(lines) == 2 {
			break
		}
	}

	switch len(lines) {
	case 0:
		return ""
	case 1:
		return lines[0]
	default:
		return lines[1]
	}
}

// Collect drains seq, stopping at the first error
func Collect(seq iter.Seq2[models.TrendItem, error]) ([]models.TrendItem, error) {
	items := []models.TrendItem{}
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
