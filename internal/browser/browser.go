// Package browser defines the remote-controlled browser session the login
// flow and trend extraction drive, plus bounded wait primitives over it.
package browser

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSuchElement is returned by FindElement when nothing matches
var ErrNoSuchElement = errors.New("browser: no such element")

// By selects how a Locator value is interpreted
type By int

const (
	ByCSS By = iota
	ByXPath
)

func (b By) String() string {
	if b == ByXPath {
		return "xpath"
	}
	return "css"
}

// Locator addresses elements on the page
type Locator struct {
	By    By
	Value string
}

// CSS returns a CSS selector locator
func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }

// XPath returns an XPath locator
func XPath(expr string) Locator { return Locator{By: ByXPath, Value: expr} }

// ParseLocator treats values starting with "/" or "(" as XPath and
// everything else as CSS.
func ParseLocator(s string) Locator {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return XPath(s)
	}
	return CSS(s)
}

func (l Locator) String() string {
	return l.By.String() + "=" + l.Value
}

// Element is a handle to one DOM element of a live session
type Element interface {
	SendKeys(ctx context.Context, text string) error
	Click(ctx context.Context) error
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
}

// Session is one remote-controlled browser instance. Every method is
// bounded by the ctx it receives; FindElements never waits for matches.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	Close() error
}

// LaunchOptions configures a new session
type LaunchOptions struct {
	// ExtensionDir is an unpacked extension loaded into the browser
	ExtensionDir string
	// ProxyServer is passed as --proxy-server
	ProxyServer  string
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// Flags are extra command line switches, name to value
	Flags map[string]any
}

// Launcher starts sessions
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// FindElement returns the first element matching loc
func FindElement(ctx context.Context, s Session, loc Locator) (Element, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNoSuchElement
	}
	return els[0], nil
}
