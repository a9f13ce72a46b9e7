// Package hal declares the narrow hardware-abstraction interfaces the
// firmware logic is built against. Per spec.md §1 these collaborators are
// explicitly out of scope for this rewrite: board bring-up, the low-level
// UART byte driver, the flash erase/program primitives and the watchdog
// timer are someone else's problem. Only a simulated backend
// (internal/hal/simulated) is provided here, for tests and for running the
// scheduler loop on a development machine.
package hal

import (
	"context"
	"io"
	"time"
)

// Transport is the byte-level link to the modem: a serial port in
// production (see SerialDialer), or a fake in tests. Modeled after the
// teacher's modem.Transport (go.bug.st/serial satisfies io.ReadWriteCloser
// directly).
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport. Modeled after the teacher's modem.Dialer.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// DigitalInputs reads the alarm panel's dry-contact lines and the reset
// line. All lines are wired active-low with an internal pull-up: Read
// returns the raw pin level (true = high = not triggered).
type DigitalInputs interface {
	// Read returns the raw (pre-inversion) level of alarm input i, 0<=i<K.
	Read(i int) bool
	// ReadReset returns the raw level of the password-reset line.
	ReadReset() bool
}

// FlashStore is the erase/program primitive for the persisted
// configuration record. Implementations are responsible for whatever
// critical section their hardware needs around Commit; this firmware
// treats FlashStore as already-synchronized (see internal/store).
type FlashStore interface {
	// Load returns the raw RecordSize-byte contents of the configuration
	// region.
	Load() ([]byte, error)
	// Commit erases and reprograms the configuration region with record.
	Commit(record []byte) error
}

// Watchdog models the hardware watchdog timer: Kick resets its countdown,
// ArmShort configures it to fire almost immediately (used to force a clean
// reboot when the modem is found unresponsive, spec.md §4.4.1).
type Watchdog interface {
	Kick()
	ArmShort()
}

// Heartbeat models the single status LED, toggled once a second.
type Heartbeat interface {
	Toggle()
}

// Clock abstracts wall-clock time and sleeping, so the scheduler loop is
// testable without real 10ms/1s/1week waits.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the real-time Clock used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
