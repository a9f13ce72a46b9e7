package hal

import (
	"context"
	"io"

	"github.com/i4energy/alarmdial/internal/ringbuf"
)

// readChunk is the size of each Transport.Read call. The source's ISR
// drains the UART hardware FIFO byte-by-byte on every interrupt; a hosted
// Go process reads in modest chunks instead, which is observationally
// equivalent to the ring buffer's single consumer.
const readChunk = 256

// RunReader is the stand-in for the UART RX interrupt (C8 Interrupt
// Producer, spec.md §4.8): the one goroutine allowed to run concurrently
// with the scheduler loop. It continuously reads from t and appends
// everything read into buf. It returns nil when t.Read reports io.EOF, the
// error when t.Read reports any other error, and ctx.Err() when ctx is
// found canceled between reads.
func RunReader(ctx context.Context, t Transport, buf *ringbuf.Buffer) error {
	chunk := make([]byte, readChunk)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := t.Read(chunk)
		if n > 0 {
			buf.Produce(chunk[:n])
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
