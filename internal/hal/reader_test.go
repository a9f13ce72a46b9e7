package hal_test

import (
	"context"
	"testing"
	"time"

	"github.com/i4energy/alarmdial/internal/hal"
	"github.com/i4energy/alarmdial/internal/hal/simulated"
	"github.com/i4energy/alarmdial/internal/ringbuf"
)

func TestRunReaderFeedsRingBuffer(t *testing.T) {
	transport := simulated.NewTransport()
	buf := ringbuf.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- hal.RunReader(ctx, transport, buf) }()

	transport.Feed("+CSQ: 17,0\r\nOK\r\n")

	deadline := time.After(2 * time.Second)
	for buf.PendingLines() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for both lines to be buffered")
		case <-time.After(time.Millisecond):
		}
	}

	// RunReader blocks inside a synchronous Transport.Read, exactly as a
	// real UART read would; only closing the transport (or it returning an
	// error) unblocks it, not context cancellation alone.
	transport.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunReader returned %v, want nil on a clean EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("RunReader did not exit after the transport closed")
	}
	cancel()
}
