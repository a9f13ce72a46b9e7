package arbiter_test

import (
	"testing"
	"time"

	"github.com/i4energy/alarmdial/internal/arbiter"
	"github.com/i4energy/alarmdial/internal/atproto"
)

func TestTryBeginRejectsWhenBusy(t *testing.T) {
	a := arbiter.New(nil)
	now := time.Now()

	if !a.TryBegin(atproto.TagCSQ, now) {
		t.Fatalf("TryBegin(CSQ) should succeed on an idle arbiter")
	}
	if !a.Busy() {
		t.Fatalf("Busy() = false after a successful TryBegin")
	}
	if a.TryBegin(atproto.TagCMGD, now) {
		t.Fatalf("TryBegin(CMGD) should fail while CSQ is pending")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	a := arbiter.New(nil)
	now := time.Now()
	a.TryBegin(atproto.TagCSQ, now)

	a.Complete(atproto.TagCSQ)
	if a.Busy() {
		t.Fatalf("Busy() = true after Complete")
	}
	a.Complete(atproto.TagCSQ) // idempotent: should not panic or change state
	if a.Busy() {
		t.Fatalf("Busy() = true after a second Complete")
	}
}

func TestTimeoutForOKIsLongerThanDefault(t *testing.T) {
	if arbiter.TimeoutFor(atproto.TagOK) != arbiter.TimeoutOK {
		t.Fatalf("TimeoutFor(OK) should equal TimeoutOK")
	}
	if arbiter.TimeoutFor(atproto.TagCSQ) != arbiter.TimeoutDefault {
		t.Fatalf("TimeoutFor(CSQ) should equal TimeoutDefault")
	}
	if arbiter.TimeoutOK <= arbiter.TimeoutDefault {
		t.Fatalf("TimeoutOK (%v) should exceed TimeoutDefault (%v)", arbiter.TimeoutOK, arbiter.TimeoutDefault)
	}
}

func TestTickExpiresStuckExchange(t *testing.T) {
	a := arbiter.New(nil)
	start := time.Now()
	a.TryBegin(atproto.TagCMGD, start)

	a.Tick(start.Add(1 * time.Second))
	if !a.Awaiting(atproto.TagCMGD) {
		t.Fatalf("exchange expired too early")
	}

	a.Tick(start.Add(arbiter.TimeoutDefault + time.Second))
	if a.Awaiting(atproto.TagCMGD) {
		t.Fatalf("exchange should have expired")
	}
	if a.Busy() {
		t.Fatalf("Busy() = true after expiry")
	}
}

func TestTickExpiryOfCMGRInvokesCallback(t *testing.T) {
	var expired []atproto.Tag
	a := arbiter.New(func(tag atproto.Tag) { expired = append(expired, tag) })

	start := time.Now()
	a.TryBegin(atproto.TagCMGR, start)
	a.Tick(start.Add(arbiter.TimeoutDefault + time.Second))

	if len(expired) != 1 || expired[0] != atproto.TagCMGR {
		t.Fatalf("onExpire callback = %v, want [CMGR]", expired)
	}
}

func TestOnlyOneExchangeInFlight(t *testing.T) {
	// Testable property 1, spec.md §8: at most one AT command the engine
	// itself initiated is ever in flight.
	a := arbiter.New(nil)
	now := time.Now()

	tags := []atproto.Tag{atproto.TagCPSI, atproto.TagCREG, atproto.TagCMGD, atproto.TagCSQ}
	began := 0
	for _, tag := range tags {
		if a.TryBegin(tag, now) {
			began++
		}
	}
	if began != 1 {
		t.Fatalf("began = %d exchanges concurrently, want exactly 1", began)
	}
}
