package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

const (
	visibleFn = `function() {
	if (!this.isConnected) return false;
	const style = window.getComputedStyle(this);
	if (style.visibility === "hidden" || style.display === "none") return false;
	const rect = this.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`
	enabledFn = `function() {
	return !this.disabled && this.getAttribute("aria-disabled") !== "true";
}`
)

// ChromeLauncher launches local Chrome instances through chromedp
type ChromeLauncher struct {
	LaunchTimeout time.Duration
	// ExecPath overrides the Chrome binary chromedp looks up
	ExecPath string
}

// NewChromeLauncher creates a launcher whose startup is bounded by launchTimeout
func NewChromeLauncher(launchTimeout time.Duration) *ChromeLauncher {
	return &ChromeLauncher{LaunchTimeout: launchTimeout}
}

// Launch starts a browser configured with opts
func (l *ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	allocOpts := allocatorOptions(opts)
	if l.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	// The first Run allocates the browser and must not carry a deadline,
	// so the launch bound is enforced from outside.
	errChan := make(chan error, 1)
	go func() {
		errChan <- chromedp.Run(browserCtx)
	}()

	timeout := l.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errChan:
		if err != nil {
			cancel()
			return nil, eris.Wrap(err, "browser: launch")
		}
	case <-timer.C:
		cancel()
		return nil, eris.Errorf("browser: launch timed out after %s", timeout)
	case <-ctx.Done():
		cancel()
		return nil, eris.Wrap(ctx.Err(), "browser: launch")
	}

	return &chromeSession{ctx: browserCtx, cancel: cancel}, nil
}

func allocatorOptions(opts LaunchOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range launchFlags(opts) {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	return allocOpts
}

// launchFlags returns the command line switches for opts on top of
// chromedp's defaults. Extra flags in opts win over the computed ones.
func launchFlags(opts LaunchOptions) map[string]any {
	flags := map[string]any{
		"disable-gpu":               true,
		"no-sandbox":                true,
		"disable-dev-shm-usage":     true,
		"disable-blink-features":    "AutomationControlled",
		"ignore-certificate-errors": true,
		"allow-insecure-localhost":  true,
	}

	if opts.Headless {
		// Only the new headless mode runs extensions.
		flags["headless"] = "new"
	} else {
		flags["headless"] = false
	}
	if opts.UserAgent != "" {
		flags["user-agent"] = opts.UserAgent
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight)
	}
	if opts.ProxyServer != "" {
		flags["proxy-server"] = opts.ProxyServer
	}
	if opts.ExtensionDir != "" {
		flags["disable-extensions"] = false
		flags["load-extension"] = opts.ExtensionDir
		flags["disable-extensions-except"] = opts.ExtensionDir
	}
	for name, value := range opts.Flags {
		flags[name] = value
	}
	return flags
}

type chromeSession struct {
	ctx    context.Context
	cancel func()

	once     sync.Once
	closeErr error
}

// run executes actions on the browser tab, bounded by ctx's deadline and
// cancellation. Canceling the derived context stops the actions only; the
// tab stays open until Close.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		rctx, dcancel = context.WithDeadline(rctx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(rctx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return eris.Wrapf(s.run(ctx, chromedp.Navigate(url)), "browser: navigate %s", url)
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, eris.Wrap(err, "browser: title")
}

func (s *chromeSession) URL(ctx context.Context) (string, error) {
	var u string
	err := s.run(ctx, chromedp.Location(&u))
	return u, eris.Wrap(err, "browser: location")
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, eris.Wrap(err, "browser: outer html")
}

func (s *chromeSession) FindElements(ctx context.Context, loc Locator) ([]Element, error) {
	by := chromedp.ByQueryAll
	if loc.By == ByXPath {
		by = chromedp.BySearch
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(loc.Value, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, eris.Wrapf(err, "browser: find %s", loc)
	}

	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{s: s, node: n})
	}
	return els, nil
}

func (s *chromeSession) Close() error {
	s.once.Do(func() {
		err := chromedp.Cancel(s.ctx)
		s.cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = eris.Wrap(err, "browser: close")
		}
	})
	return s.closeErr
}

type chromeElement struct {
	s    *chromeSession
	node *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	return eris.Wrap(e.s.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID)), "browser: send keys")
}

func (e *chromeElement) Click(ctx context.Context) error {
	return eris.Wrap(e.s.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID)), "browser: click")
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.s.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	return text, eris.Wrap(err, "browser: text")
}

func (e *chromeElement) Visible(ctx context.Context) (bool, error) {
	return e.call(ctx, visibleFn)
}

func (e *chromeElement) Enabled(ctx context.Context) (bool, error) {
	return e.call(ctx, enabledFn)
}

func (e *chromeElement) call(ctx context.Context, fn string) (bool, error) {
	var ok bool
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fn, &ok, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}).Do(ctx)
	}))
	return ok, eris.Wrap(err, "browser: evaluate on node")
}
