package atproto_test

import (
	"testing"

	"github.com/i4energy/alarmdial/internal/atproto"
	"github.com/i4energy/alarmdial/internal/ringbuf"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		tag  atproto.Tag
	}{
		{"OK", atproto.TagOK},
		{"OK\r", atproto.TagOK},
		{"ERROR", atproto.TagERROR},
		{`+CPSI: GSM,Online,460,00,1234,32,5`, atproto.TagCPSI},
		{"+CREG: 0,1", atproto.TagCREG},
		{`+CPMS: "SM",3,50,"SM",3,50,"SM",3,50`, atproto.TagCPMS},
		{"+CSQ: 17,0", atproto.TagCSQ},
		{"+CMGD: 0,4", atproto.TagCMGD},
		{"+CMGS: 123", atproto.TagCMGS},
		{`+CMTI: "SM",3`, atproto.TagCMTI},
		{`+CMGR: "REC UNREAD","+447911123456",,"24/01/01,00:00:00+00"`, atproto.TagCMGR},
		{"+CLCC: 1,1,4,0,0", atproto.TagCLCC},
		{"+FOO: bar", atproto.TagUNKNOWN},
		{"> ", atproto.TagPROMPT},
		{"", atproto.TagIGNORE},
		{"674358 Signal?", atproto.TagDATA},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tag, payload := atproto.Classify(tt.line)
			if tag != tt.tag {
				t.Fatalf("Classify(%q) tag = %v, want %v", tt.line, tag, tt.tag)
			}
			if tag != atproto.TagIGNORE && payload != tt.line {
				t.Fatalf("Classify(%q) payload = %q, want %q", tt.line, payload, tt.line)
			}
		})
	}
}

func TestReassemblerStripsCRAndSplitsOnLF(t *testing.T) {
	buf := ringbuf.New()
	buf.Produce([]byte("AT+CSQ?\r\n+CSQ: 17,0\r\nOK\r\n"))

	r := atproto.NewReassembler(buf)

	var got []string
	for buf.PendingLines() > 0 {
		line, ok := r.Next()
		if !ok {
			t.Fatalf("Next reported ok=false while PendingLines>0")
		}
		got = append(got, line)
	}

	want := []string{"AT+CSQ?", "+CSQ: 17,0", "OK"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines %v, want %d lines %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReassemblerSplitAcrossProduceCalls(t *testing.T) {
	buf := ringbuf.New()
	buf.Produce([]byte("+CM"))
	buf.Produce([]byte("TI: \"SM"))
	buf.Produce([]byte("\",3\r\n"))

	r := atproto.NewReassembler(buf)
	line, ok := r.Next()
	if !ok {
		t.Fatalf("Next reported ok=false")
	}
	if want := `+CMTI: "SM",3`; line != want {
		t.Fatalf("line = %q, want %q", line, want)
	}
}

func TestReassemblerEmptyLineYieldedAsZeroLength(t *testing.T) {
	buf := ringbuf.New()
	buf.Produce([]byte("\r\n"))

	r := atproto.NewReassembler(buf)
	line, ok := r.Next()
	if !ok {
		t.Fatalf("Next reported ok=false")
	}
	if line != "" {
		t.Fatalf("line = %q, want empty", line)
	}
}

func TestReassemblerTruncatesAtMaxLineLen(t *testing.T) {
	buf := ringbuf.New()
	long := make([]byte, atproto.MaxLineLen+50)
	for i := range long {
		long[i] = 'x'
	}
	buf.Produce(long)
	buf.Produce([]byte("\n"))

	r := atproto.NewReassembler(buf)
	line, ok := r.Next()
	if !ok {
		t.Fatalf("Next reported ok=false")
	}
	if len(line) != atproto.MaxLineLen-1 {
		t.Fatalf("len(line) = %d, want %d", len(line), atproto.MaxLineLen-1)
	}
}

func TestReassemblerNoPendingLine(t *testing.T) {
	buf := ringbuf.New()
	buf.Produce([]byte("no newline here"))

	r := atproto.NewReassembler(buf)
	if _, ok := r.Next(); ok {
		t.Fatalf("Next reported ok=true with no LF buffered")
	}
}
