package atproto

import "github.com/i4energy/alarmdial/internal/ringbuf"

// Reassembler consumes bytes from a ring buffer and yields one logical line
// per call, stripping CR and truncating to MaxLineLen-1 bytes, matching
// spec.md §4.1.
type Reassembler struct {
	buf *ringbuf.Buffer
}

// NewReassembler wraps a ring buffer for line-at-a-time consumption.
func NewReassembler(buf *ringbuf.Buffer) *Reassembler {
	return &Reassembler{buf: buf}
}

// Next reassembles one line if a complete (LF-terminated) message is
// pending. ok is false if no LF is currently buffered, in which case the
// caller should not call Next again until PendingLines() > 0.
func (r *Reassembler) Next() (line string, ok bool) {
	if r.buf.PendingLines() == 0 {
		return "", false
	}

	var out [MaxLineLen]byte
	n := 0
	for {
		c, has := r.buf.ReadByte()
		if !has {
			break
		}
		if c == ringbuf.LF {
			break
		}
		if c == '\r' {
			continue
		}
		if n < MaxLineLen-1 {
			out[n] = c
			n++
		}
	}
	return string(out[:n]), true
}
