// Package dialogue implements the event-driven modem dialogue manager (C4
// Dialogue Engine, spec.md §4.4): the top-level handler that drives
// multi-stage AT exchanges — remote SMS command parsing, signal-level
// queries, outbound SMS sends, periodic liveness probes, call hang-up and
// inbox purges — against the single in-flight exchange discipline enforced
// by internal/arbiter.
package dialogue

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/i4energy/alarmdial/internal/arbiter"
	"github.com/i4energy/alarmdial/internal/atproto"
	"github.com/i4energy/alarmdial/internal/hal"
	"github.com/i4energy/alarmdial/internal/store"
)

// Periodic probe intervals, spec.md §4.4.1/§5.
const (
	cpsiPeriod = 4 * 7 * 24 * time.Hour
	cregPeriod = 8 * time.Hour
	cmgdPeriod = 24 * time.Hour
)

// pendingSMS holds the two-step AT+CMGS protocol's state between the
// PROMPT and final OK, spec.md §4.4.4.
type pendingSMS struct {
	tel  string
	body string
}

// Engine is the dialogue manager: it owns the multi-stage pending-action
// slot and the periodic probe timers, and mutates the live configuration
// in response to authenticated remote SMS commands.
type Engine struct {
	store     *store.Store
	arb       *arbiter.Arbiter
	transport io.Writer
	watchdog  hal.Watchdog
	logger    *slog.Logger
	validator Validator

	pending      PendingAction
	awaitingBody bool
	smsSend      *pendingSMS

	lastCPSI time.Time
	lastCREG time.Time
	lastCMGD time.Time
}

// New returns an idle Engine. boot seeds the periodic probe timers so none
// of them fire immediately at startup — each first fires one full period
// after boot, matching the embedded source's behaviour of recording
// last-probe timestamps at power-on.
func New(st *store.Store, arb *arbiter.Arbiter, transport io.Writer, watchdog hal.Watchdog, logger *slog.Logger, boot time.Time) *Engine {
	return &Engine{
		store:     st,
		arb:       arb,
		transport: transport,
		watchdog:  watchdog,
		logger:    logger,
		pending:   PendingNone{},
		lastCPSI:  boot,
		lastCREG:  boot,
		lastCMGD:  boot,
	}
}

// SetValidator installs an optional telephone-number validator, spec.md
// §9 open question (b). Nil (the default) accepts any text, matching the
// source's shipped behaviour.
func (e *Engine) SetValidator(v Validator) {
	e.validator = v
}

// Live returns a copy of the current live configuration, for read-only
// consumers (the input monitor).
func (e *Engine) Live() store.Live {
	return e.store.Live
}

func (e *Engine) writeCmd(s string) {
	if _, err := e.transport.Write([]byte(s)); err != nil {
		e.logger.Debug("dialogue: write failed", "cmd", s, "error", err)
	}
}

// HandleLine dispatches one classified line, per spec.md §4.4. Lines for a
// tag the engine is not currently awaiting are discarded (protocol-level
// error handling, spec.md §7), except the unsolicited tags CMTI and CLCC
// which are acted on whenever the bus is idle.
func (e *Engine) HandleLine(tag atproto.Tag, payload string, now time.Time) {
	switch tag {
	case atproto.TagIGNORE:
		return

	case atproto.TagERROR:
		if e.arb.Busy() {
			e.logger.Debug("dialogue: modem reported ERROR while an exchange was pending")
		}
		return

	case atproto.TagOK:
		if e.arb.Awaiting(atproto.TagOK) {
			e.onOK(now)
		}

	case atproto.TagCPSI:
		if e.arb.Awaiting(atproto.TagCPSI) {
			e.onCPSI(payload, now)
		}

	case atproto.TagCREG:
		if e.arb.Awaiting(atproto.TagCREG) {
			e.arb.Complete(atproto.TagCREG)
			e.arb.TryBegin(atproto.TagOK, now)
		}

	case atproto.TagCPMS:
		// Only seen during bootstrap; not arbitrated by the main loop.

	case atproto.TagCSQ:
		if e.arb.Awaiting(atproto.TagCSQ) {
			e.onCSQ(payload, now)
		}

	case atproto.TagCMGD:
		// No genuine +CMGD response line exists: the modem replies to a
		// delete with a bare OK, so this case is unreachable in practice.
		// See the TagOK branch above and Tick's periodic purge below.

	case atproto.TagCMGS:
		if e.arb.Awaiting(atproto.TagCMGS) {
			e.arb.Complete(atproto.TagCMGS)
			e.arb.TryBegin(atproto.TagOK, now)
		}

	case atproto.TagCMTI:
		e.onCMTI(payload, now)

	case atproto.TagCMGR:
		if e.arb.Awaiting(atproto.TagCMGR) {
			e.arb.Complete(atproto.TagCMGR)
			e.awaitingBody = true
		}

	case atproto.TagCLCC:
		e.onCLCC(now)

	case atproto.TagUNKNOWN:
		e.logger.Debug("dialogue: unrecognised command-like line", "line", payload)

	case atproto.TagPROMPT:
		if e.arb.Awaiting(atproto.TagPROMPT) {
			e.onPrompt(now)
		}

	case atproto.TagDATA:
		if e.awaitingBody {
			e.awaitingBody = false
			e.pending = e.handleSMSCommand(payload)
			e.arb.TryBegin(atproto.TagOK, now)
		}
	}
}

// onOK is the generic "a command exchange just closed" handler. If the
// multi-stage slot holds a follow-up action, it is acted on now — per
// spec.md §4.4.3's "all acknowledgements are deferred" rule and the state
// machine of §4.4.6.
func (e *Engine) onOK(now time.Time) {
	e.arb.Complete(atproto.TagOK)

	switch p := e.pending.(type) {
	case PendingSignalQuery:
		e.pending = PendingNone{}
		e.writeCmd("AT+CSQ\r")
		e.arb.TryBegin(atproto.TagCSQ, now)
	case PendingAck:
		e.pending = PendingNone{}
		e.sendSMS(e.store.Live.TelNo, p.Text, now)
	case PendingCSQAck:
		e.pending = PendingNone{}
		e.sendSMS(e.store.Live.TelNo, p.Text, now)
	case PendingNone:
		// A plain exchange (CREG, CMGD, CHUP, a CMGS send) closed; nothing
		// further to do.
	}
}

// onCPSI handles the 4-weekly serving-cell-info probe's response,
// spec.md §4.4.1.
const cpsiPrefixLen = len("+CPSI: ")

func (e *Engine) onCPSI(payload string, now time.Time) {
	e.arb.Complete(atproto.TagCPSI)

	if strings.Contains(payload, "Online") {
		info := payload
		if len(info) > cpsiPrefixLen {
			info = info[cpsiPrefixLen:]
		}
		e.pending = PendingAck{Text: "Modem check: " + info}
		e.arb.TryBegin(atproto.TagOK, now)
		return
	}

	e.logger.Warn("dialogue: modem not online, forcing reboot via watchdog", "payload", payload)
	e.watchdog.ArmShort()
}

// onCSQ parses the signal-quality response at the hard-coded "+CSQ: "
// offset of 6, spec.md §9 open question (d): preserved bug-for-bug, since
// no fix decision is recorded against it.
func (e *Engine) onCSQ(payload string, now time.Time) {
	e.arb.Complete(atproto.TagCSQ)

	text := "Error. Could not read signal quality"
	if n, ok := parseCSQ(payload); ok {
		text = fmt.Sprintf("Signal quality is %d", n)
	}
	e.pending = PendingCSQAck{Text: text}
	e.arb.TryBegin(atproto.TagOK, now)
}

const csqPrefixLen = len("+CSQ: ")

func parseCSQ(payload string) (int, bool) {
	if len(payload) <= csqPrefixLen {
		return 0, false
	}
	rest := payload[csqPrefixLen:]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:comma])
	if err != nil {
		return 0, false
	}
	return n, true
}

// onCMTI reacts to an inbound-SMS notification by reading the message,
// spec.md §4.4.2. Unsolicited: only acted on when the bus is idle — events
// arriving while an exchange is in flight are not queued, per spec.md §1.
func (e *Engine) onCMTI(payload string, now time.Time) {
	if e.arb.Busy() {
		return
	}
	idx, ok := parseCMTIIndex(payload)
	if !ok {
		e.logger.Debug("dialogue: malformed CMTI payload", "payload", payload)
		return
	}
	e.writeCmd(fmt.Sprintf("AT+CMGR=%d\r", idx))
	e.arb.TryBegin(atproto.TagCMGR, now)
}

func parseCMTIIndex(payload string) (int, bool) {
	comma := strings.LastIndexByte(payload, ',')
	if comma < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(payload[comma+1:]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// onCLCC rejects an inbound voice call by hanging up, spec.md §4.4.2. The
// device never rings or answers.
func (e *Engine) onCLCC(now time.Time) {
	if e.arb.Busy() {
		return
	}
	e.writeCmd("AT+CHUP\r")
	e.arb.TryBegin(atproto.TagOK, now)
}

// sendSMS begins the two-step outbound send protocol of spec.md §4.4.4,
// arbitrated on the PROMPT tag rather than a fixed delay (spec.md §9
// Design Notes' recommended, observationally equivalent redesign).
func (e *Engine) sendSMS(tel, body string, now time.Time) {
	e.smsSend = &pendingSMS{tel: tel, body: body}
	e.writeCmd(fmt.Sprintf("AT+CMGS=%q\r", tel))
	e.arb.TryBegin(atproto.TagPROMPT, now)
}

func (e *Engine) onPrompt(now time.Time) {
	e.arb.Complete(atproto.TagPROMPT)
	if e.smsSend == nil {
		return
	}
	e.writeCmd(e.smsSend.body + "\x1A")
	e.smsSend = nil
	e.arb.TryBegin(atproto.TagCMGS, now)
}

// Tick services the periodic liveness probes of spec.md §4.4.1. Each only
// fires while the bus is idle; otherwise it slips until the next idle
// tick, never queued. At most one probe is issued per call.
func (e *Engine) Tick(now time.Time) {
	if e.arb.Busy() {
		return
	}

	switch {
	case now.Sub(e.lastCPSI) >= cpsiPeriod:
		e.lastCPSI = now
		e.writeCmd("AT+CPSI?\r")
		e.arb.TryBegin(atproto.TagCPSI, now)
	case now.Sub(e.lastCREG) >= cregPeriod:
		e.lastCREG = now
		e.writeCmd("AT+CREG?\r")
		e.arb.TryBegin(atproto.TagCREG, now)
	case now.Sub(e.lastCMGD) >= cmgdPeriod:
		e.lastCMGD = now
		e.writeCmd("AT+CMGD=0,4\r")
		e.arb.TryBegin(atproto.TagOK, now)
	}
}

// HandleExpire is the arbiter's ExpireFunc callback: a CMGR exchange that
// times out abandons any multi-stage reply that depended on its body,
// spec.md §4.3.
func (e *Engine) HandleExpire(tag atproto.Tag) {
	if tag == atproto.TagCMGR {
		e.awaitingBody = false
		e.pending = PendingNone{}
	}
}

// NotifyEdge requests an outbound SMS for an alarm input transition,
// spec.md §4.5/§4.4.5. triggered is the post-inversion logical state after
// the edge: true selects the falling-edge ("triggered") message, false the
// rising-edge ("cleared") message. No-op while the bus is busy — edges are
// not queued, spec.md §1.
func (e *Engine) NotifyEdge(triggered bool, idx int, now time.Time) {
	if e.arb.Busy() {
		return
	}
	text := e.store.Live.SMSOnRise[idx]
	if triggered {
		text = e.store.Live.SMSOnFall[idx]
	}
	e.sendSMS(e.store.Live.TelNo, text, now)
}

// NotifyPasswordReset handles an assertion of the hardware reset line,
// spec.md §4.5: reset the live password to its default, mark the store
// dirty, and notify the configured number.
func (e *Engine) NotifyPasswordReset(now time.Time) {
	if e.arb.Busy() {
		return
	}
	e.store.Live.Password = store.Defaults().Password
	e.store.MarkDirty()
	e.sendSMS(e.store.Live.TelNo, "Password reset to default", now)
}
