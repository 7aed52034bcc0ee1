package login

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/williampepple1/proxy-trends/internal/browser"
	"github.com/williampepple1/proxy-trends/internal/browser/browsertest"
	"github.com/williampepple1/proxy-trends/internal/config"
)

var fastTimeouts = Timeouts{
	Primary:   200 * time.Millisecond,
	Secondary: 100 * time.Millisecond,
	Probe:     30 * time.Millisecond,
	Poll:      2 * time.Millisecond,
}

var testAccount = Account{Username: "alice", Password: "s3cret", FallbackIdentity: "alice@example.com"}

type page struct {
	s         *browsertest.Session
	locators  *SiteLocators
	username  *browsertest.Element
	next      *browsertest.Element
	password  *browsertest.Element
	login     *browsertest.Element
	challenge *browsertest.Element
}

// newPage builds a login page that reaches the home page with two trends
// once the login button is clicked
func newPage(t *testing.T) *page {
	t.Helper()
	cfg := config.CreateDefault().Site
	p := &page{
		s:        browsertest.NewSession(),
		locators: NewSiteLocators(cfg),
		username: &browsertest.Element{Label: "username"},
		next:     &browsertest.Element{Label: "next"},
		password: &browsertest.Element{Label: "password"},
		login:    &browsertest.Element{Label: "login"},
	}
	p.s.OnNavigate = func(string) { p.s.SetTitle("Log in to X / X") }
	p.s.Put(p.locators.Username(), p.username)
	p.s.Put(p.locators.Advance(), p.next)
	p.s.Put(p.locators.Password(), p.password)
	p.s.Put(p.locators.Submit(), p.login)
	p.login.OnClick = func() {
		p.s.SetURL("https://twitter.com/home")
		p.s.Put(p.locators.Trends(),
			&browsertest.Element{Label: "trend1", Content: "Trending\nTopic A"},
			&browsertest.Element{Label: "trend2", Content: "Topic B"},
		)
	}
	return p
}

func (p *page) withChallenge() *page {
	p.challenge = &browsertest.Element{Label: "challenge"}
	p.s.Put(p.locators.Challenge(), p.challenge)
	return p
}

func (p *page) machine(account Account) *Machine {
	return New(p.s, p.locators, account, fastTimeouts, zap.NewNop())
}

func TestRun_CompletesWithoutChallenge(t *testing.T) {
	p := newPage(t)
	m := p.machine(testAccount)

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, Complete, m.State())
	assert.Empty(t, m.Reason())
	assert.Equal(t, []State{
		Start, AwaitingUsername, AwaitingOptionalChallenge, AwaitingPassword,
		Submitted, AwaitingHome, AwaitingTrends, Complete,
	}, m.History())

	assert.Equal(t, "alice", p.username.Typed())
	assert.Equal(t, "s3cret", p.password.Typed())
	assert.Equal(t, "navigate:https://twitter.com/login", p.s.Calls()[0])
}

func TestRun_ProbeTimeoutIsNotAFailure(t *testing.T) {
	p := newPage(t)
	m := p.machine(testAccount)

	require.NoError(t, m.Run(context.Background()))
	history := m.History()
	assert.NotContains(t, history, Failed)

	i := slices.Index(history, AwaitingOptionalChallenge)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, AwaitingPassword, history[i+1])
}

func TestRun_AnswersChallenge(t *testing.T) {
	p := newPage(t).withChallenge()
	m := p.machine(testAccount)

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, Complete, m.State())
	assert.Equal(t, "alice@example.com", p.challenge.Typed())

	clicks := 0
	for _, c := range p.s.Calls() {
		if c == "click:next" {
			clicks++
		}
	}
	assert.Equal(t, 2, clicks)
}

func TestRun_ChallengeWithoutFallbackContinues(t *testing.T) {
	p := newPage(t).withChallenge()
	account := testAccount
	account.FallbackIdentity = ""
	m := p.machine(account)

	require.NoError(t, m.Run(context.Background()))
	assert.Empty(t, p.challenge.Typed())
	assert.Equal(t, Complete, m.State())
}

func TestRun_ConfirmsControlsBeforeClicking(t *testing.T) {
	p := newPage(t)
	m := p.machine(testAccount)
	require.NoError(t, m.Run(context.Background()))

	calls := p.s.Calls()
	for _, label := range []string{"next", "login"} {
		click := slices.Index(calls, "click:"+label)
		require.GreaterOrEqual(t, click, 0, label)
		visible := slices.Index(calls, "visible:"+label)
		enabled := slices.Index(calls, "enabled:"+label)
		assert.True(t, visible >= 0 && visible < click, "%s clicked before visible check", label)
		assert.True(t, enabled >= 0 && enabled < click, "%s clicked before enabled check", label)
	}
}

func TestRun_DisabledControlIsNeverClicked(t *testing.T) {
	p := newPage(t)
	p.next.Disabled = true
	m := p.machine(testAccount)

	err := m.Run(context.Background())
	require.Error(t, err)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, GateAdvance, te.Gate)
	assert.Equal(t, fastTimeouts.Secondary, te.Timeout)
	assert.NotContains(t, p.s.Calls(), "click:next")
	assert.Equal(t, Failed, m.State())
}

func TestPress_RefusesUnconfirmedControl(t *testing.T) {
	p := newPage(t)
	m := p.machine(testAccount)

	err := m.press(context.Background(), &control{gate: GateSubmit, el: p.login})
	var pe *PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, GateSubmit, pe.Gate)

	err = m.press(context.Background(), nil)
	assert.True(t, errors.As(err, &pe))
	assert.Empty(t, p.s.Calls())
}

func TestRun_RequiredGateTimeout(t *testing.T) {
	p := newPage(t)
	p.s.OnNavigate = func(string) {
		p.s.SetTitle("Something went wrong")
		p.s.SetHTML(`<html><head><title>Something went wrong</title></head>
<body><div role="alert"><span>Try   again</span> later</div></body></html>`)
	}
	m := p.machine(testAccount)

	start := time.Now()
	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.True(t, errors.Is(err, ErrLoginTimeout))
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, GateLoginPage, te.Gate)
	assert.Equal(t, `title "Something went wrong", alert "Try again later"`, te.Hint)
	assert.Contains(t, err.Error(), "timeout at login page")

	assert.Equal(t, Failed, m.State())
	assert.Equal(t, "timeout at login page", m.Reason())
	assert.Empty(t, p.username.Typed())
}

func TestRun_StalledActionTimesOut(t *testing.T) {
	tests := []struct {
		name  string
		stall func(p *page)
		gate  Gate
	}{
		{"typing password", func(p *page) { p.password.Stall = true }, GatePassword},
		{"typing username", func(p *page) { p.username.Stall = true }, GateUsername},
		{"clicking login", func(p *page) { p.login.Stall = true }, GateSubmit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage(t)
			tt.stall(p)
			m := p.machine(testAccount)

			start := time.Now()
			err := m.Run(context.Background())
			require.Error(t, err)
			assert.Less(t, time.Since(start), time.Second)

			assert.True(t, errors.Is(err, ErrLoginTimeout))
			var te *TimeoutError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.gate, te.Gate)
			assert.Equal(t, fastTimeouts.Secondary, te.Timeout)
			assert.Equal(t, Failed, m.State())
		})
	}
}

func TestRun_StalledChallengeAnswerTimesOut(t *testing.T) {
	p := newPage(t).withChallenge()
	p.challenge.Stall = true
	m := p.machine(testAccount)

	err := m.Run(context.Background())
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, GateChallenge, te.Gate)
}

func TestRun_HomeNeverReached(t *testing.T) {
	p := newPage(t)
	p.login.OnClick = nil
	m := p.machine(testAccount)

	err := m.Run(context.Background())
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, GateHome, te.Gate)
	assert.Empty(t, te.Hint)
	assert.Equal(t, []State{Start, AwaitingUsername, AwaitingOptionalChallenge, AwaitingPassword, Submitted, AwaitingHome, Failed}, m.History())
}

func TestRun_NavigationError(t *testing.T) {
	p := newPage(t)
	p.s.NavigateErr = errors.New("net::ERR_PROXY_CONNECTION_FAILED")
	m := p.machine(testAccount)

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLoginTimeout))
	assert.Contains(t, m.Reason(), "ERR_PROXY_CONNECTION_FAILED")
	assert.Equal(t, Failed, m.State())
}

func TestRun_Canceled(t *testing.T) {
	p := newPage(t)
	p.s.OnNavigate = nil
	m := p.machine(testAccount)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrLoginTimeout))
}

func TestRun_OnlyOnce(t *testing.T) {
	p := newPage(t)
	m := p.machine(testAccount)
	require.NoError(t, m.Run(context.Background()))
	assert.Error(t, m.Run(context.Background()))
}

func TestProbe(t *testing.T) {
	p := newPage(t)
	m := p.machine(testAccount)

	outcome, err := m.probe(context.Background(), p.locators.Challenge())
	require.NoError(t, err)
	_, present := outcome.Element()
	assert.False(t, present)
	assert.Equal(t, Absent, outcome)

	p.withChallenge()
	outcome, err = m.probe(context.Background(), p.locators.Challenge())
	require.NoError(t, err)
	el, present := outcome.Element()
	assert.True(t, present)
	assert.Same(t, p.challenge, el)
}

func TestSiteLocators(t *testing.T) {
	l := NewSiteLocators(config.SiteConfig{LoginURL: "https://example.com/login"})
	assert.Equal(t, browser.XPath(config.DefaultSelectors.Password), l.Password())
	assert.Equal(t, browser.CSS(`div[data-testid="trend"]`), l.Trends())
	assert.Equal(t, "https://example.com/login", l.LoginURL())
}

func TestTimeoutsFromConfig(t *testing.T) {
	got := TimeoutsFromConfig(config.LoginConfig{PrimaryTimeout: time.Second})
	assert.Equal(t, time.Second, got.Primary)
	assert.Equal(t, DefaultTimeouts.Secondary, got.Secondary)
	assert.Equal(t, DefaultTimeouts.Probe, got.Probe)
	assert.Equal(t, DefaultTimeouts.Poll, got.Poll)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_optional_challenge", AwaitingOptionalChallenge.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestAccountString(t *testing.T) {
	assert.NotContains(t, testAccount.String(), "s3cret")
}
