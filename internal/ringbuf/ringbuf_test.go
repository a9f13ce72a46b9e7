package ringbuf_test

import (
	"testing"

	"github.com/i4energy/alarmdial/internal/ringbuf"
)

func TestProduceReadByteFIFO(t *testing.T) {
	b := ringbuf.New()
	b.Produce([]byte("abc"))

	for _, want := range []byte("abc") {
		got, ok := b.ReadByte()
		if !ok {
			t.Fatalf("ReadByte: no byte available, want %q", want)
		}
		if got != want {
			t.Fatalf("ReadByte = %q, want %q", got, want)
		}
	}

	if _, ok := b.ReadByte(); ok {
		t.Fatalf("ReadByte: expected no more bytes")
	}
}

func TestPendingLinesTracksLF(t *testing.T) {
	b := ringbuf.New()
	if got := b.PendingLines(); got != 0 {
		t.Fatalf("PendingLines = %d, want 0", got)
	}

	b.Produce([]byte("no newline yet"))
	if got := b.PendingLines(); got != 0 {
		t.Fatalf("PendingLines = %d, want 0", got)
	}

	b.Produce([]byte("line one\nline two\n"))
	if got := b.PendingLines(); got != 2 {
		t.Fatalf("PendingLines = %d, want 2", got)
	}

	// Consume the first line's bytes; the LF counter should decrement by
	// exactly one, matching the invariant in spec.md §3.
	for {
		c, ok := b.ReadByte()
		if !ok {
			t.Fatalf("ran out of bytes before consuming a full line")
		}
		if c == ringbuf.LF {
			break
		}
	}
	if got := b.PendingLines(); got != 1 {
		t.Fatalf("PendingLines after consuming one line = %d, want 1", got)
	}
}

func TestProduceAcrossMultipleChunks(t *testing.T) {
	b := ringbuf.New()
	chunks := []string{"AT+", "CSQ", "?\r\n", "OK\r", "\n"}
	for _, c := range chunks {
		b.Produce([]byte(c))
	}

	if got := b.PendingLines(); got != 2 {
		t.Fatalf("PendingLines = %d, want 2", got)
	}

	var out []byte
	for b.Entries() > 0 {
		c, _ := b.ReadByte()
		out = append(out, c)
	}
	if got, want := string(out), "AT+CSQ?\r\nOK\r\n"; got != want {
		t.Fatalf("reassembled bytes = %q, want %q", got, want)
	}
}
