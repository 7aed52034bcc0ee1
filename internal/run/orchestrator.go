// Package run sequences one complete scrape: extension artifact, browser
// session, login, trend extraction alongside egress verification, and
// persistence of the resulting record.
package run

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/williampepple1/proxy-trends/internal/browser"
	"github.com/williampepple1/proxy-trends/internal/config"
	"github.com/williampepple1/proxy-trends/internal/extension"
	"github.com/williampepple1/proxy-trends/internal/extraction"
	"github.com/williampepple1/proxy-trends/internal/identity"
	"github.com/williampepple1/proxy-trends/internal/login"
	"github.com/williampepple1/proxy-trends/internal/proxy"
	"github.com/williampepple1/proxy-trends/internal/store"
	"github.com/williampepple1/proxy-trends/pkg/models"
)

// ArtifactBuilder builds the proxy extension for a run
type ArtifactBuilder interface {
	Build(creds proxy.Credentials) (*extension.Artifact, error)
}

// Verifier reports the egress address of the proxy. It never fails.
type Verifier interface {
	Verify(ctx context.Context) string
}

// Orchestrator runs scrapes with one validated configuration. Each Run
// owns its own artifact and session.
type Orchestrator struct {
	cfg       *config.AppConfig
	store     store.Store
	creds     proxy.Credentials
	account   login.Account
	builder   ArtifactBuilder
	launcher  browser.Launcher
	locators  login.LocatorStrategy
	timeouts  login.Timeouts
	extractor *extraction.Extractor
	verifier  Verifier
	now       func() time.Time
	log       *zap.Logger
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithBuilder replaces the extension builder
func WithBuilder(b ArtifactBuilder) Option { return func(o *Orchestrator) { o.builder = b } }

// WithLauncher replaces the chromedp launcher
func WithLauncher(l browser.Launcher) Option { return func(o *Orchestrator) { o.launcher = l } }

// WithLocators replaces the configured site locators
func WithLocators(l login.LocatorStrategy) Option { return func(o *Orchestrator) { o.locators = l } }

// WithTimeouts replaces the configured login timeouts
func WithTimeouts(t login.Timeouts) Option { return func(o *Orchestrator) { o.timeouts = t } }

// WithVerifier replaces the proxied identity verifier
func WithVerifier(v Verifier) Option { return func(o *Orchestrator) { o.verifier = v } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithLogger replaces zap.L()
func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// New validates cfg and creates an orchestrator persisting to st.
// Missing required settings are reported together as a
// *config.MissingError before anything else happens.
func New(cfg *config.AppConfig, st store.Store, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, &config.MissingError{Fields: []string{"config"}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run: store is required")
	}

	o := &Orchestrator{
		cfg:      cfg,
		store:    st,
		creds:    proxy.FromConfig(&cfg.Proxy),
		account:  login.AccountFromConfig(cfg.Site),
		timeouts: login.TimeoutsFromConfig(cfg.Login),
		now:      time.Now,
		log:      zap.L(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.builder == nil {
		o.builder = &extension.Builder{}
	}
	if o.launcher == nil {
		o.launcher = browser.NewChromeLauncher(cfg.Browser.LaunchTimeout)
	}
	if o.locators == nil {
		o.locators = login.NewSiteLocators(cfg.Site)
	}
	if o.verifier == nil {
		o.verifier = identity.New(o.creds, cfg.Identity, o.log)
	}
	o.extractor = extraction.New(o.locators.Trends(), cfg.Extraction.MaxTrends)
	o.extractor.ReadTimeout = o.timeouts.Secondary
	return o, nil
}

// Run performs one scrape and returns the persisted record. The browser
// session is closed and the artifact removed on every path.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunRecord, error) {
	start := o.now()
	o.log.Info("run: starting", zap.Object("proxy", o.creds))

	art, err := o.builder.Build(o.creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := art.Remove(); err != nil {
			o.log.Warn("run: remove extension artifact", zap.String("path", art.Root), zap.Error(err))
		}
	}()

	session, err := o.launcher.Launch(ctx, o.launchOptions(art))
	if err != nil {
		return nil, eris.Wrap(err, "run: launch browser")
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.log.Warn("run: close browser session", zap.Error(err))
		}
	}()

	m := login.New(session, o.locators, o.account, o.timeouts, o.log)
	if err := m.Run(ctx); err != nil {
		return nil, err
	}

	var (
		trends    []models.TrendItem
		proxyUsed string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := extraction.Collect(o.extractor.Trends(gctx, session))
		trends = items
		return err
	})
	g.Go(func() error {
		proxyUsed = o.verifier.Verify(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	end := o.now()
	if end.Before(start) {
		end = start
	}
	rec := &models.RunRecord{
		UniqueID:  models.NextUniqueID(end),
		Trends:    trends,
		EndTime:   end,
		ProxyUsed: proxyUsed,
	}

	if err := o.store.InsertOne(ctx, o.cfg.Store.Database, o.cfg.Store.Collection, rec); err != nil {
		return nil, err
	}

	o.log.Info("run: complete",
		zap.Int64("unique_id", rec.UniqueID),
		zap.Int("trends", len(rec.Trends)),
		zap.String("proxy_used", rec.ProxyUsed),
		zap.Duration("elapsed", end.Sub(start)),
	)
	return rec, nil
}

// Trigger runs one scrape and folds the result into an Outcome
func (o *Orchestrator) Trigger(ctx context.Context) Outcome {
	if timeout := o.cfg.Scraper.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rec, err := o.Run(ctx)
	if err != nil {
		o.log.Error("run: aborted", zap.String("kind", Classify(err)), zap.Error(err))
		return Outcome{Err: err}
	}
	return Outcome{Record: rec}
}

func (o *Orchestrator) launchOptions(art *extension.Artifact) browser.LaunchOptions {
	b := o.cfg.Browser
	return browser.LaunchOptions{
		ExtensionDir: art.Dir,
		ProxyServer:  o.creds.Server(),
		Headless:     b.Headless,
		UserAgent:    b.UserAgent,
		WindowWidth:  b.WindowWidth,
		WindowHeight: b.WindowHeight,
		Flags:        parseFlags(b.ExtraFlags),
	}
}

// parseFlags turns "name=value" and bare "name" switches into a flag map
func parseFlags(raw []string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	flags := make(map[string]any, len(raw))
	for _, f := range raw {
		f = strings.TrimLeft(strings.TrimSpace(f), "-")
		if f == "" {
			continue
		}
		if name, value, ok := strings.Cut(f, "="); ok {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}
