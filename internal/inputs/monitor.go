// Package inputs implements the Input Monitor (C5, spec.md §4.5): debounced
// 1Hz polling of the alarm panel's dry-contact lines and the password-reset
// line, translating edges into dialogue-engine actions.
package inputs

import (
	"time"

	"github.com/i4energy/alarmdial/internal/arbiter"
	"github.com/i4energy/alarmdial/internal/dialogue"
	"github.com/i4energy/alarmdial/internal/hal"
	"github.com/i4energy/alarmdial/internal/store"
)

// pollPeriod and resetRateLimit match spec.md §5's "input polling = 1s" and
// "reset-debounce = 10s" timeouts.
const (
	pollPeriod     = 1 * time.Second
	resetRateLimit = 10 * time.Second
)

// Monitor polls hal.DigitalInputs and reports edges to a dialogue.Engine.
type Monitor struct {
	gpio hal.DigitalInputs
	arb  *arbiter.Arbiter
	eng  *dialogue.Engine

	lastPoll  time.Time
	lastReset time.Time
	status    [store.NumInputs]bool // logical (post active-low-inversion) state
}

// New returns a Monitor whose baseline input state is sampled immediately,
// so the first Tick only reports edges relative to actual startup levels
// rather than treating every input as a transition.
func New(gpio hal.DigitalInputs, arb *arbiter.Arbiter, eng *dialogue.Engine) *Monitor {
	m := &Monitor{gpio: gpio, arb: arb, eng: eng}
	for i := 0; i < store.NumInputs; i++ {
		m.status[i] = !gpio.Read(i)
	}
	return m
}

// Tick samples every alarm input and the reset line, at most once per
// second and only while the bus is idle, per spec.md §4.5.
func (m *Monitor) Tick(now time.Time) {
	if now.Sub(m.lastPoll) < pollPeriod || m.arb.Busy() {
		return
	}
	m.lastPoll = now

	live := m.eng.Live()
	for i := 0; i < store.NumInputs; i++ {
		logical := !m.gpio.Read(i)
		if logical == m.status[i] {
			continue
		}
		m.status[i] = logical
		if live.NotifyOnChange[i] {
			m.eng.NotifyEdge(logical, i, now)
		}
	}

	if !m.gpio.ReadReset() && now.Sub(m.lastReset) >= resetRateLimit {
		m.lastReset = now
		m.eng.NotifyPasswordReset(now)
	}
}
