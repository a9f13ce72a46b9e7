// Package arbiter owns the "bus busy" predicate and per-command pending
// flags and deadlines described in spec.md §4.3 (C3 Exchange Arbiter): the
// core invariant that at most one AT exchange the firmware itself initiated
// is ever in flight.
package arbiter

import (
	"time"

	"github.com/i4energy/alarmdial/internal/atproto"
)

// Timeout classes, per spec.md §3/§5.
const (
	TimeoutOK      = 60 * time.Second
	TimeoutDefault = 9 * time.Second
)

// TimeoutFor returns the deadline duration for a given tag.
func TimeoutFor(tag atproto.Tag) time.Duration {
	if tag == atproto.TagOK {
		return TimeoutOK
	}
	return TimeoutDefault
}

// ExpireFunc is invoked synchronously by Tick when a pending exchange times
// out, so callers (the dialogue engine) can react — e.g. clearing a
// multi-stage pending action abandoned by a CMGR timeout.
type ExpireFunc func(tag atproto.Tag)

// Arbiter tracks, for every response tag the firmware can await, whether a
// reply is outstanding and by when it must arrive.
type Arbiter struct {
	awaiting [atproto.NumMsgTags]bool
	deadline [atproto.NumMsgTags]time.Time
	onExpire ExpireFunc
}

// New returns an idle Arbiter. onExpire may be nil.
func New(onExpire ExpireFunc) *Arbiter {
	return &Arbiter{onExpire: onExpire}
}

// Busy reports whether any exchange the firmware initiated is currently
// outstanding. Only when Busy() is false may a new exchange be started.
func (a *Arbiter) Busy() bool {
	for _, w := range a.awaiting {
		if w {
			return true
		}
	}
	return false
}

// TryBegin starts waiting for tag's response, failing if the bus is
// already busy. now is the caller's current time; the deadline is
// now+TimeoutFor(tag).
func (a *Arbiter) TryBegin(tag atproto.Tag, now time.Time) bool {
	if a.Busy() {
		return false
	}
	a.awaiting[tag] = true
	a.deadline[tag] = now.Add(TimeoutFor(tag))
	return true
}

// Awaiting reports whether tag currently has an outstanding exchange.
func (a *Arbiter) Awaiting(tag atproto.Tag) bool {
	return a.awaiting[tag]
}

// Complete clears tag's pending flag. Idempotent.
func (a *Arbiter) Complete(tag atproto.Tag) {
	a.awaiting[tag] = false
}

// Tick expires any exchange whose deadline has passed, invoking onExpire for
// each (tag CMGR's expiry additionally drops any pending multi-stage reply
// in the dialogue engine, via that callback).
func (a *Arbiter) Tick(now time.Time) {
	for tag := 0; tag < atproto.NumMsgTags; tag++ {
		t := atproto.Tag(tag)
		if a.awaiting[tag] && now.After(a.deadline[tag]) {
			a.awaiting[tag] = false
			if a.onExpire != nil {
				a.onExpire(t)
			}
		}
	}
}
