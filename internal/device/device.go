// Package device implements the Scheduler / Main Loop (C7, spec.md §4.7):
// the single-threaded cooperative loop that pumps the line reassembler and
// classifier, services the dialogue engine and input monitor, expires
// arbiter timeouts, paces itself, toggles the heartbeat LED, and commits
// dirty configuration to flash once the bus is idle.
package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/i4energy/alarmdial/internal/arbiter"
	"github.com/i4energy/alarmdial/internal/atproto"
	"github.com/i4energy/alarmdial/internal/dialogue"
	"github.com/i4energy/alarmdial/internal/hal"
	"github.com/i4energy/alarmdial/internal/inputs"
	"github.com/i4energy/alarmdial/internal/ringbuf"
	"github.com/i4energy/alarmdial/internal/store"
)

// loopPeriod and ledPeriod match spec.md §5's "main-loop pacing = 10ms" and
// "LED toggle = 1s".
const (
	loopPeriod = 10 * time.Millisecond
	ledPeriod  = 1 * time.Second
)

// Device owns every collaborator the scheduler loop drives each tick.
type Device struct {
	clock    hal.Clock
	watchdog hal.Watchdog
	led      hal.Heartbeat

	reassembler *atproto.Reassembler
	arb         *arbiter.Arbiter
	engine      *dialogue.Engine
	monitor     *inputs.Monitor
	store       *store.Store

	lastLED time.Time
}

// New assembles a Device from its already-wired collaborators.
func New(clock hal.Clock, watchdog hal.Watchdog, led hal.Heartbeat, buf *ringbuf.Buffer, arb *arbiter.Arbiter, engine *dialogue.Engine, monitor *inputs.Monitor, st *store.Store) *Device {
	return &Device{
		clock:       clock,
		watchdog:    watchdog,
		led:         led,
		reassembler: atproto.NewReassembler(buf),
		arb:         arb,
		engine:      engine,
		monitor:     monitor,
		store:       st,
	}
}

// Run executes the nine ordered per-iteration steps of spec.md §4.7 until
// ctx is canceled, returning ctx.Err() on exit. Unlike the embedded
// source's infinite loop, context cancellation gives the hosted process a
// clean shutdown path — an ambient concern the source, which never exits,
// has no analogue for.
func (d *Device) Run(ctx context.Context, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// 1. read current time.
		now := d.clock.Now()

		// 2. kick watchdog.
		d.watchdog.Kick()

		// 3. reassemble and classify at most one line.
		if line, ok := d.reassembler.Next(); ok && line != "" {
			tag, payload := atproto.Classify(line)
			d.engine.HandleLine(tag, payload, now)
		}

		// 4. bus_busy is recomputed on demand by arbiter.Busy(); nothing to
		// cache here.

		// 5. service periodic probes, unsolicited events, response
		// handlers and the input monitor.
		d.engine.Tick(now)
		d.monitor.Tick(now)

		// 6. expire timeouts.
		d.arb.Tick(now)

		// 7. pace the loop.
		d.clock.Sleep(loopPeriod)

		// 8. toggle the heartbeat LED every second.
		if now.Sub(d.lastLED) >= ledPeriod {
			d.lastLED = now
			d.led.Toggle()
		}

		// 9. commit dirty config if idle.
		if !d.arb.Busy() {
			if err := d.store.Commit(); err != nil {
				logger.Error("device: config commit failed", "error", err)
			}
		}
	}
}
