// Package bootstrap performs the one-shot, synchronous modem
// initialisation sequence (C9, spec.md §4.9) that runs before the ring
// buffer's reader goroutine (the ISR stand-in) is started.
package bootstrap

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/i4energy/alarmdial/internal/hal"
)

// step is one command in the init sequence: write cmd, expect a reply
// containing "OK" within timeout, retry up to maxRetries times.
type step struct {
	cmd     string
	timeout time.Duration
}

// sequence is exactly original_source/AlarmDial.c's initialise_modem(),
// generalized with struct literals instead of repeated function calls.
var sequence = []step{
	{"ATE0\r", 120 * time.Second},
	{"AT&D0\r", 9 * time.Second},
	{"ATV1\r", 9 * time.Second},
	{"AT+CGEREP=0,0;+CVHU=0;+CLIP=0;+CLCC=1\r", 36 * time.Second},
	{`AT+CNMP=2;+CSCS="IRA";+CMGF=1;+CNMI=2,1` + "\r", 36 * time.Second},
	{`AT+CPMS="SM","SM","SM"` + "\r", 9 * time.Second},
	{"AT+CMGD=0,4\r", 9 * time.Second},
	{`AT+CPMS="ME","ME","ME"` + "\r", 9 * time.Second},
	{"AT+CMGD=0,4\r", 9 * time.Second},
}

const maxRetries = 3

// Run performs power-stabilisation, a modem reset, and the init command
// sequence. Errors from individual steps are logged at debug level but do
// not abort the sequence — per spec.md §4.9/§7, a truly dead modem is
// handled later by the watchdog/CPSI liveness path, not here.
func Run(ctx context.Context, clk hal.Clock, t hal.Transport, logger *slog.Logger) error {
	logger.Debug("bootstrap: power stabilisation sleep")
	clk.Sleep(10 * time.Second)

	if _, err := t.Write([]byte("AT+CRESET\r")); err != nil {
		return fmt.Errorf("bootstrap: write CRESET: %w", err)
	}
	logger.Debug("bootstrap: modem reset, waiting")
	clk.Sleep(30 * time.Second)

	r := bufio.NewReader(t)
	for _, st := range sequence {
		ok := false
		for attempt := 1; attempt <= maxRetries && !ok; attempt++ {
			if _, err := t.Write([]byte(st.cmd)); err != nil {
				logger.Debug("bootstrap: write failed", "cmd", st.cmd, "attempt", attempt, "error", err)
				continue
			}
			resp, err := readUntilOKOrTimeout(ctx, r, st.timeout)
			if err != nil {
				logger.Debug("bootstrap: step failed", "cmd", st.cmd, "attempt", attempt, "error", err)
				continue
			}
			if strings.Contains(resp, "OK") {
				ok = true
			} else {
				logger.Debug("bootstrap: unexpected response", "cmd", st.cmd, "attempt", attempt, "response", resp)
			}
		}
		if !ok {
			logger.Debug("bootstrap: step exhausted retries, continuing", "cmd", st.cmd)
		}
	}
	return nil
}

// readUntilOKOrTimeout reads lines until one contains "OK" or timeout
// elapses, discarding everything else, mirroring the source's
// write_command_with_response_check.
func readUntilOKOrTimeout(ctx context.Context, r *bufio.Reader, timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}
	lineCh := make(chan result, 1)
	deadline := time.After(timeout)

	readOne := func() {
		line, err := r.ReadString('\n')
		lineCh <- result{line: strings.TrimRight(line, "\r\n"), err: err}
	}

	for {
		go readOne()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", context.DeadlineExceeded
		case res := <-lineCh:
			if res.err != nil {
				return res.line, res.err
			}
			if strings.Contains(res.line, "OK") {
				return res.line, nil
			}
			// Not OK yet: keep reading within the same deadline.
		}
	}
}
