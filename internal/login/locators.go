package login

import (
	"time"

	"github.com/williampepple1/proxy-trends/internal/browser"
	"github.com/williampepple1/proxy-trends/internal/config"
)

// LocatorStrategy tells the machine where things are on the target site
type LocatorStrategy interface {
	LoginURL() string
	// LoginMarker is a substring of the login page title
	LoginMarker() string
	Username() browser.Locator
	// Advance is the control that moves past the identifier steps
	Advance() browser.Locator
	Challenge() browser.Locator
	Password() browser.Locator
	Submit() browser.Locator
	// HomeMarker is a substring of the authenticated area URL
	HomeMarker() string
	Trends() browser.Locator
}

// SiteLocators reads locators from the site configuration
type SiteLocators struct {
	cfg config.SiteConfig
}

// NewSiteLocators creates a strategy from cfg, filling empty selectors
// with the defaults
func NewSiteLocators(cfg config.SiteConfig) *SiteLocators {
	sel := &cfg.Selectors
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&sel.Username, config.DefaultSelectors.Username)
	fill(&sel.Next, config.DefaultSelectors.Next)
	fill(&sel.Challenge, config.DefaultSelectors.Challenge)
	fill(&sel.Password, config.DefaultSelectors.Password)
	fill(&sel.Login, config.DefaultSelectors.Login)
	fill(&sel.Trend, config.DefaultSelectors.Trend)
	return &SiteLocators{cfg: cfg}
}

func (l *SiteLocators) LoginURL() string           { return l.cfg.LoginURL }
func (l *SiteLocators) LoginMarker() string        { return l.cfg.LoginTitle }
func (l *SiteLocators) Username() browser.Locator  { return browser.ParseLocator(l.cfg.Selectors.Username) }
func (l *SiteLocators) Advance() browser.Locator   { return browser.ParseLocator(l.cfg.Selectors.Next) }
func (l *SiteLocators) Challenge() browser.Locator { return browser.ParseLocator(l.cfg.Selectors.Challenge) }
func (l *SiteLocators) Password() browser.Locator  { return browser.ParseLocator(l.cfg.Selectors.Password) }
func (l *SiteLocators) Submit() browser.Locator    { return browser.ParseLocator(l.cfg.Selectors.Login) }
func (l *SiteLocators) HomeMarker() string         { return l.cfg.HomeMarker }
func (l *SiteLocators) Trends() browser.Locator    { return browser.ParseLocator(l.cfg.Selectors.Trend) }

// Timeouts bounds every wait of the flow
type Timeouts struct {
	// Primary bounds page and element presence gates
	Primary time.Duration
	// Secondary bounds visible and enabled checks and each element action
	Secondary time.Duration
	// Probe bounds the optional challenge probe
	Probe time.Duration
	Poll  time.Duration
}

// DefaultTimeouts are used for any zero field
var DefaultTimeouts = Timeouts{
	Primary:   20 * time.Second,
	Secondary: 10 * time.Second,
	Probe:     5 * time.Second,
	Poll:      250 * time.Millisecond,
}

// TimeoutsFromConfig converts the login configuration
func TimeoutsFromConfig(cfg config.LoginConfig) Timeouts {
	return Timeouts{
		Primary:   cfg.PrimaryTimeout,
		Secondary: cfg.SecondaryTimeout,
		Probe:     cfg.ProbeTimeout,
		Poll:      cfg.PollInterval,
	}.withDefaults()
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Primary <= 0 {
		t.Primary = DefaultTimeouts.Primary
	}
	if t.Secondary <= 0 {
		t.Secondary = DefaultTimeouts.Secondary
	}
	if t.Probe <= 0 {
		t.Probe = DefaultTimeouts.Probe
	}
	if t.Poll <= 0 {
		t.Poll = DefaultTimeouts.Poll
	}
	return t
}

// Account is the site account the flow logs in with
type Account struct {
	Username string
	Password string
	// FallbackIdentity answers the identity confirmation challenge
	FallbackIdentity string
}

// AccountFromConfig reads the account from the site configuration
func AccountFromConfig(cfg config.SiteConfig) Account {
	return Account{
		Username:         cfg.Username,
		Password:         cfg.Password,
		FallbackIdentity: cfg.FallbackIdentity,
	}
}

func (a Account) String() string {
	return "account(" + a.Username + ", password: ***)"
}
