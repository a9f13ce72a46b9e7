package dialogue

import (
	"fmt"
	"strings"

	"github.com/i4energy/alarmdial/internal/store"
)

// Validator optionally rejects a telephone number before it is applied.
// The source ships a rudimentary UK-number check commented out, accepting
// arbitrary text by default (spec.md §4.4.3, §9 open question (b)). Nil
// means "accept anything", matching the source's shipped behaviour.
type Validator func(telNo string) error

// handleSMSCommand applies the remote-command grammar of spec.md §4.4.3 to
// an inbound SMS body, mutating the live configuration and store dirty
// flag as a side effect, and returns what to do once the CMGR exchange's
// closing OK arrives.
func (e *Engine) handleSMSCommand(body string) PendingAction {
	pw := e.store.Live.Password

	if !strings.HasPrefix(body, pw) {
		// Wrong password: silently ignored, per spec.md §4.4.3/§7.
		return PendingNone{}
	}

	if _, ok := cutPrefix(body, pw+" Signal?"); ok {
		// Matches on prefix alone, trailing characters are ignored, as the
		// source's strncmp-based check does.
		return PendingSignalQuery{}
	}

	if rest, ok := cutPrefix(body, pw+" TelephoneNumber!"); ok {
		if e.validator != nil {
			if err := e.validator(rest); err != nil {
				return PendingAck{Text: "Error. Invalid telephone number"}
			}
		}
		e.store.Live.TelNo = truncate(rest, store.MaxFieldLen)
		e.store.MarkDirty()
		return PendingAck{Text: "Ok. Changed telephone number"}
	}

	if rest, ok := cutPrefix(body, pw+" Password!"); ok {
		if len(rest) == store.PasswordLen {
			e.store.Live.Password = rest
			e.store.MarkDirty()
			return PendingAck{Text: "Ok. Changed password"}
		}
		return PendingAck{Text: "Error. Invalid password (needs to be 6 characters)"}
	}

	if rest, ok := cutPrefix(body, pw+" SMSonInput!"); ok {
		if d, ok := inputDigit(rest); ok && len(rest) == 1 {
			e.store.Live.NotifyOnChange[d] = !e.store.Live.NotifyOnChange[d]
			e.store.MarkDirty()
			word := ""
			if !e.store.Live.NotifyOnChange[d] {
				word = "not "
			}
			return PendingAck{Text: fmt.Sprintf("Ok. Input %d will %strigger SMS from now on", d+1, word)}
		}
		return PendingAck{Text: fmt.Sprintf("Error. Invalid input number (must be 1-%d)", store.NumInputs)}
	}

	if rest, ok := cutPrefix(body, pw+" MessageText!"); ok {
		if pending, ok := parseMessageTextChange(e, rest); ok {
			return pending
		}
		return PendingAck{Text: "Error. Invalid message change request"}
	}

	if _, ok := cutPrefix(body, pw+" Defaults!"); ok {
		// Matches on prefix alone, matching the source's strncmp-based check.
		e.store.Live = store.Defaults()
		e.store.MarkDirty()
		return PendingAck{Text: "Ok. Resetting settings to defaults"}
	}

	return PendingAck{Text: "Invalid instruction"}
}

// parseMessageTextChange handles "MessageText!d!On!M" / "...Off!M", per
// spec.md §4.4.3.
func parseMessageTextChange(e *Engine, rest string) (PendingAction, bool) {
	if len(rest) < 2 || rest[1] != '!' {
		return nil, false
	}
	d, ok := inputDigit(rest[:1])
	if !ok {
		return nil, false
	}

	switch {
	case strings.HasPrefix(rest[2:], "On!"):
		msg := truncate(rest[5:], store.MaxFieldLen)
		e.store.Live.SMSOnFall[d] = msg
		e.store.MarkDirty()
		return PendingAck{Text: fmt.Sprintf("Ok. New message for input %d activating: %q", d+1, msg)}, true
	case strings.HasPrefix(rest[2:], "Off!"):
		msg := truncate(rest[6:], store.MaxFieldLen)
		e.store.Live.SMSOnRise[d] = msg
		e.store.MarkDirty()
		return PendingAck{Text: fmt.Sprintf("Ok. New message for input %d deactivating: %q", d+1, msg)}, true
	default:
		return nil, false
	}
}

// inputDigit maps a single '1'..'K' rune to a zero-based input index.
func inputDigit(s string) (int, bool) {
	if len(s) < 1 {
		return 0, false
	}
	d := int(s[0] - '1')
	if d < 0 || d >= store.NumInputs {
		return 0, false
	}
	return d, true
}

// cutPrefix reports whether body starts with prefix and returns what
// follows it.
func cutPrefix(body, prefix string) (string, bool) {
	if !strings.HasPrefix(body, prefix) {
		return "", false
	}
	return body[len(prefix):], true
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
