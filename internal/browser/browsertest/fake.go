// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"

	"github.com/williampepple1/proxy-trends/internal/browser"
)

// Element is a scriptable element. Hooks run after the action is recorded.
type Element struct {
	Label    string
	Content  string
	Hidden   bool
	Disabled bool
	TextErr  error
	OnClick  func()
	// Stall makes SendKeys, Click and Text wait until their ctx ends
	Stall bool

	session *Session
	typed   string
}

// Typed returns everything sent to the element
func (e *Element) Typed() string {
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	return e.typed
}

func (e *Element) stall(ctx context.Context) error {
	if e.Stall {
		<-ctx.Done()
	}
	return ctx.Err()
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := e.stall(ctx); err != nil {
		return err
	}
	e.session.mu.Lock()
	e.typed += text
	e.session.calls = append(e.session.calls, "sendkeys:"+e.Label)
	e.session.mu.Unlock()
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.stall(ctx); err != nil {
		return err
	}
	e.session.record("click:" + e.Label)
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.session.record("visible:" + e.Label)
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	return !e.Hidden, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.session.record("enabled:" + e.Label)
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	return !e.Disabled, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.stall(ctx); err != nil {
		return "", err
	}
	e.session.record("text:" + e.Label)
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Content, nil
}

// Session is an in-memory page. Elements are keyed by locator value.
type Session struct {
	mu         sync.Mutex
	title      string
	url        string
	html       string
	elements   map[string][]*Element
	calls      []string
	closeCount int

	// OnNavigate runs after a navigation is recorded
	OnNavigate func(url string)
	// NavigateErr fails every navigation when set
	NavigateErr error
}

// NewSession returns an empty page
func NewSession() *Session {
	return &Session{elements: map[string][]*Element{}}
}

func (s *Session) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

// SetTitle changes the page title
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// SetURL changes the current URL
func (s *Session) SetURL(u string) {
	s.mu.Lock()
	s.url = u
	s.mu.Unlock()
}

// SetHTML changes the document returned by HTML
func (s *Session) SetHTML(html string) {
	s.mu.Lock()
	s.html = html
	s.mu.Unlock()
}

// Put makes els match loc, replacing earlier matches
func (s *Session) Put(loc browser.Locator, els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, el := range els {
		el.session = s
	}
	s.elements[loc.Value] = els
}

// Calls returns the recorded element and navigation calls in order
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CloseCount returns how many times Close was called
func (s *Session) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.mu.Lock()
	s.url = url
	s.calls = append(s.calls, "navigate:"+url)
	s.mu.Unlock()
	if s.OnNavigate != nil {
		s.OnNavigate(url)
	}
	return nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

func (s *Session) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []browser.Element
	for _, el := range s.elements[loc.Value] {
		out = append(out, el)
	}
	return out, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closeCount++
	s.mu.Unlock()
	return nil
}

// ErrLaunch is a canned launch failure
var ErrLaunch = errors.New("browsertest: launch failed")

// Launcher hands out one prepared Session and captures the options used
type Launcher struct {
	Session *Session
	Err     error

	mu   sync.Mutex
	opts []browser.LaunchOptions
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	l.mu.Lock()
	l.opts = append(l.opts, opts)
	l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Session, nil
}

// Launches returns the options of every Launch call
func (l *Launcher) Launches() []browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.LaunchOptions(nil), l.opts...)
}
