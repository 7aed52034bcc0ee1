// Package login drives a browser session from the site's login page to the
// authenticated trends view.
//
// Every step waits for an observable page condition under a bounded
// timeout before it acts. Controls are only pressed after they have been
// confirmed visible and enabled. The identity confirmation challenge is
// optional: it is probed with a short bound and skipped when absent.
package login

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/williampepple1/proxy-trends/internal/browser"
)

// Machine runs the login flow on one session. It is not safe for
// concurrent use and runs once.
type Machine struct {
	session  browser.Session
	locators LocatorStrategy
	account  Account
	timeouts Timeouts
	log      *zap.Logger

	state   State
	reason  string
	history []State
}

// New creates a machine in the Start state. A nil logger uses zap.L().
func New(s browser.Session, locators LocatorStrategy, account Account, timeouts Timeouts, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.L()
	}
	return &Machine{
		session:  s,
		locators: locators,
		account:  account,
		timeouts: timeouts.withDefaults(),
		log:      logger,
		state:    Start,
		history:  []State{Start},
	}
}

// State returns the current state
func (m *Machine) State() State { return m.state }

// Reason explains the Failed state
func (m *Machine) Reason() string { return m.reason }

// History returns every state the machine has been in, in order
func (m *Machine) History() []State { return append([]State(nil), m.history...) }

// Run drives the flow to Complete. On failure the machine is left in
// Failed and the error is returned; a required gate that times out
// produces a *TimeoutError.
func (m *Machine) Run(ctx context.Context) error {
	if m.state != Start {
		return eris.Errorf("login: machine already ran (state %s)", m.state)
	}

	steps := []func(context.Context) error{
		m.openLoginPage,
		m.enterUsername,
		m.resolveChallenge,
		m.enterPassword,
		m.submit,
		m.awaitHome,
		m.awaitTrends,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return m.fail(ctx, err)
		}
	}

	m.transition(Complete)
	return nil
}

func (m *Machine) openLoginPage(ctx context.Context) error {
	if err := m.session.Navigate(ctx, m.locators.LoginURL()); err != nil {
		return eris.Wrap(err, "login: open login page")
	}
	if err := m.await(ctx, GateLoginPage, m.timeouts.Primary, browser.TitleContains(m.session, m.locators.LoginMarker())); err != nil {
		return err
	}
	m.transition(AwaitingUsername)
	return nil
}

func (m *Machine) enterUsername(ctx context.Context) error {
	field, err := m.locate(ctx, GateUsername, m.locators.Username(), m.timeouts.Primary)
	if err != nil {
		return err
	}
	if err := m.act(ctx, GateUsername, "type username", func(ctx context.Context) error {
		return field.SendKeys(ctx, m.account.Username)
	}); err != nil {
		return err
	}

	if err := m.advance(ctx, GateAdvance, m.timeouts.Primary); err != nil {
		return err
	}
	m.transition(AwaitingOptionalChallenge)
	return nil
}

func (m *Machine) resolveChallenge(ctx context.Context) error {
	outcome, err := m.probe(ctx, m.locators.Challenge())
	if err != nil {
		return err
	}

	field, present := outcome.Element()
	switch {
	case !present:
		m.log.Debug("login: no identity challenge")
	case m.account.FallbackIdentity == "":
		m.log.Warn("login: identity challenge shown but no fallback identity configured")
	default:
		m.log.Info("login: answering identity challenge")
		if err := m.act(ctx, GateChallenge, "type fallback identity", func(ctx context.Context) error {
			return field.SendKeys(ctx, m.account.FallbackIdentity)
		}); err != nil {
			return err
		}
		if err := m.advance(ctx, GateChallengeAdvance, m.timeouts.Probe); err != nil {
			return err
		}
	}

	m.transition(AwaitingPassword)
	return nil
}

func (m *Machine) enterPassword(ctx context.Context) error {
	field, err := m.locate(ctx, GatePassword, m.locators.Password(), m.timeouts.Primary)
	if err != nil {
		return err
	}
	return m.act(ctx, GatePassword, "type password", func(ctx context.Context) error {
		return field.SendKeys(ctx, m.account.Password)
	})
}

func (m *Machine) submit(ctx context.Context) error {
	el, err := m.locate(ctx, GateSubmit, m.locators.Submit(), m.timeouts.Primary)
	if err != nil {
		return err
	}
	c, err := m.confirm(ctx, GateSubmit, el)
	if err != nil {
		return err
	}
	if err := m.press(ctx, c); err != nil {
		return err
	}
	m.transition(Submitted)
	return nil
}

func (m *Machine) awaitHome(ctx context.Context) error {
	m.transition(AwaitingHome)
	if err := m.await(ctx, GateHome, m.timeouts.Primary, browser.URLContains(m.session, m.locators.HomeMarker())); err != nil {
		return err
	}
	m.transition(AwaitingTrends)
	return nil
}

func (m *Machine) awaitTrends(ctx context.Context) error {
	_, err := m.locate(ctx, GateTrends, m.locators.Trends(), m.timeouts.Primary)
	return err
}

// advance locates the advance control within locateTimeout, confirms it
// and presses it
func (m *Machine) advance(ctx context.Context, gate Gate, locateTimeout time.Duration) error {
	el, err := m.locate(ctx, gate, m.locators.Advance(), locateTimeout)
	if err != nil {
		return err
	}
	c, err := m.confirm(ctx, gate, el)
	if err != nil {
		return err
	}
	return m.press(ctx, c)
}

// control is an element confirmed visible and enabled
type control struct {
	gate      Gate
	el        browser.Element
	confirmed bool
}

func (m *Machine) confirm(ctx context.Context, gate Gate, el browser.Element) (*control, error) {
	if err := m.await(ctx, gate, m.timeouts.Secondary, browser.ElementVisible(el)); err != nil {
		return nil, err
	}
	if err := m.await(ctx, gate, m.timeouts.Secondary, browser.ElementEnabled(el)); err != nil {
		return nil, err
	}
	return &control{gate: gate, el: el, confirmed: true}, nil
}

// press clicks c. Unconfirmed controls are refused.
func (m *Machine) press(ctx context.Context, c *control) error {
	if c == nil || !c.confirmed {
		gate := Gate("unknown control")
		if c != nil {
			gate = c.gate
		}
		return &PreconditionError{Gate: gate}
	}
	return m.act(ctx, c.gate, "click "+string(c.gate), c.el.Click)
}

// act runs one element action under the secondary timeout. Running out
// of time is a *TimeoutError at gate.
func (m *Machine) act(ctx context.Context, gate Gate, what string, action func(context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, m.timeouts.Secondary)
	defer cancel()

	err := action(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Gate: gate, Timeout: m.timeouts.Secondary, Err: err}
	}
	return eris.Wrap(err, "login: "+what)
}

// ProbeOutcome is the result of probing for an optional element
type ProbeOutcome struct {
	el browser.Element
}

// Absent is the outcome of a probe that found nothing in time
var Absent = ProbeOutcome{}

// Present is the outcome of a probe that found el
func Present(el browser.Element) ProbeOutcome { return ProbeOutcome{el: el} }

// Element returns the probed element and whether it was present
func (p ProbeOutcome) Element() (browser.Element, bool) { return p.el, p.el != nil }

// probe looks for loc within the probe timeout. Only cancellation of ctx
// is an error.
func (m *Machine) probe(ctx context.Context, loc browser.Locator) (ProbeOutcome, error) {
	var el browser.Element
	err := browser.Wait(ctx, m.timeouts.Probe, m.timeouts.Poll, browser.ElementLocated(m.session, loc, &el))
	switch {
	case err == nil:
		return Present(el), nil
	case errors.Is(err, browser.ErrWaitTimeout):
		return Absent, nil
	default:
		return Absent, eris.Wrap(err, "login: probe")
	}
}

func (m *Machine) locate(ctx context.Context, gate Gate, loc browser.Locator, timeout time.Duration) (browser.Element, error) {
	var el browser.Element
	if err := m.await(ctx, gate, timeout, browser.ElementLocated(m.session, loc, &el)); err != nil {
		return nil, err
	}
	return el, nil
}

func (m *Machine) await(ctx context.Context, gate Gate, timeout time.Duration, cond browser.Condition) error {
	err := browser.Wait(ctx, timeout, m.timeouts.Poll, cond)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, browser.ErrWaitTimeout):
		return &TimeoutError{Gate: gate, Timeout: timeout, Err: err}
	default:
		return eris.Wrapf(err, "login: wait for %s", gate)
	}
}

func (m *Machine) fail(ctx context.Context, err error) error {
	var te *TimeoutError
	if errors.As(err, &te) {
		// The hint is best effort and bounded like the probe.
		te.Hint = diagnose(ctx, m.session, m.timeouts.Probe)
		m.reason = "timeout at " + string(te.Gate)
	} else {
		m.reason = err.Error()
	}

	m.log.Error("login: failed",
		zap.Stringer("state", m.state),
		zap.String("reason", m.reason),
		zap.Error(err),
	)
	m.transition(Failed)
	return err
}

func (m *Machine) transition(to State) {
	m.log.Debug("login: transition", zap.Stringer("from", m.state), zap.Stringer("to", to))
	m.state = to
	m.history = append(m.history, to)
}
