package hal

import (
	"context"
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// SerialDialer opens the modem link over a real serial port using
// go.bug.st/serial, exactly as the teacher's modem.SerialDialer does.
type SerialDialer struct {
	// PortName is the OS device path (e.g. "/dev/ttyUSB0", "COM3").
	PortName string
	// BaudRate is the link speed; 9600 per spec.md §6 if zero.
	BaudRate int
}

// Dial opens the serial port at BaudRate (9600 if zero), 8N1, no flow
// control (spec.md §6). If
// ctx is canceled before the open completes, Dial returns ctx.Err() and
// closes the port if it opens after cancellation.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("hal: serial port name is required")
	}
	baud := d.BaudRate
	if baud == 0 {
		baud = 9600
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	type result struct {
		p   serial.Port
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := serial.Open(d.PortName, mode)
		ch <- result{p: p, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			r := <-ch
			if r.err == nil && r.p != nil {
				_ = r.p.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("hal: open serial port %q: %w", d.PortName, r.err)
		}
		return r.p, nil
	}
}
