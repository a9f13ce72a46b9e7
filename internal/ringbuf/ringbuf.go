// Package ringbuf implements the fixed-capacity circular byte queue shared
// between the UART reader goroutine (the stand-in for the hardware RX
// interrupt, see internal/hal) and the scheduler loop in internal/device.
//
// There is exactly one producer goroutine and one consumer goroutine. The
// write position, the total entry count and the pending-LF count are updated
// with sync/atomic so the consumer never needs a lock on the hot path, the
// same no-lock discipline the original firmware relied on for machine-word
// atomicity between its ISR and main loop.
package ringbuf

import "sync/atomic"

// Capacity is the ring buffer size in bytes. The source firmware sizes this
// far beyond any credible per-tick burst and does not defend against
// overflow; this implementation keeps that assumption.
const Capacity = 10000

// LF is the line feed byte that terminates a modem response line.
const LF = '\n'

// Buffer is a single-producer/single-consumer circular byte queue.
//
// Produce is called only from the reader goroutine. ReadByte, PendingLines
// and Entries are called only from the consumer (scheduler loop) goroutine. Mixing callers across
// goroutines breaks the atomicity guarantees documented above.
type Buffer struct {
	data []byte

	writePos int64 // atomic, producer-owned
	readPos  int64 // consumer-owned only

	entries int64 // atomic: produced - consumed
	lfCount int64 // atomic: pending, unread LF bytes
}

// New returns an empty Buffer with the standard Capacity.
func New() *Buffer {
	return &Buffer{data: make([]byte, Capacity)}
}

// Produce appends bytes read from the transport to the buffer. Called by the
// single reader goroutine. Overflow is not checked, matching the source.
func (b *Buffer) Produce(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	wp := atomic.LoadInt64(&b.writePos)
	for _, c := range chunk {
		b.data[wp] = c
		wp++
		if wp == Capacity {
			wp = 0
		}
		if c == LF {
			atomic.AddInt64(&b.lfCount, 1)
		}
	}
	atomic.AddInt64(&b.entries, int64(len(chunk)))
	atomic.StoreInt64(&b.writePos, wp)
}

// PendingLines reports how many LF-terminated lines are waiting to be
// consumed. Invariant: equals the number of LF bytes currently buffered
// between the read and write positions.
func (b *Buffer) PendingLines() int {
	return int(atomic.LoadInt64(&b.lfCount))
}

// ReadByte consumes and returns the next byte in FIFO order. The caller must
// only invoke this when it knows at least one byte is available (normally
// guarded by PendingLines > 0, mirroring the source's rx_buffer_entries > 0
// loop condition).
func (b *Buffer) ReadByte() (byte, bool) {
	if atomic.LoadInt64(&b.entries) == 0 {
		return 0, false
	}
	c := b.data[b.readPos]
	b.readPos++
	if b.readPos == Capacity {
		b.readPos = 0
	}
	atomic.AddInt64(&b.entries, -1)
	if c == LF {
		atomic.AddInt64(&b.lfCount, -1)
	}
	return c, true
}

// Entries reports the number of unread bytes currently buffered.
func (b *Buffer) Entries() int {
	return int(atomic.LoadInt64(&b.entries))
}
