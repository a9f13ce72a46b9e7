// Command alarmdial is the hosted-process stand-in for the alarm-panel-to-
// cellular-modem bridge firmware described by spec.md: it wires the real
// serial link to the modem (go.bug.st/serial) together with the simulated
// GPIO/flash/watchdog/LED backends that stand in for board-specific
// hardware explicitly out of scope per spec.md §1, runs the one-shot modem
// bootstrap, then starts the reader goroutine and the scheduler loop.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/i4energy/alarmdial/internal/arbiter"
	"github.com/i4energy/alarmdial/internal/atproto"
	"github.com/i4energy/alarmdial/internal/bootstrap"
	"github.com/i4energy/alarmdial/internal/device"
	"github.com/i4energy/alarmdial/internal/dialogue"
	"github.com/i4energy/alarmdial/internal/hal"
	"github.com/i4energy/alarmdial/internal/hal/simulated"
	"github.com/i4energy/alarmdial/internal/inputs"
	"github.com/i4energy/alarmdial/internal/ringbuf"
	"github.com/i4energy/alarmdial/internal/store"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "serial port to the modem")
	flag.Int("baud-rate", 9600, "baud rate for the modem link")
	flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Int("flash-offset", 512*1024, "byte offset of the config record in flash")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(config.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialer := hal.SerialDialer{PortName: config.SerialPort, BaudRate: config.BaudRate}
	transport, err := dialer.Dial(ctx)
	if err != nil {
		logger.Error("failed to open modem serial port", "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	clock := hal.SystemClock{}

	if err := bootstrap.Run(ctx, clock, transport, logger.With("component", "bootstrap")); err != nil {
		logger.Error("modem bootstrap failed", "error", err)
		os.Exit(1)
	}

	flash := &simulated.FlashStore{}
	cfgStore, err := store.Open(flash)
	if err != nil {
		logger.Error("failed to load configuration store", "error", err)
		os.Exit(1)
	}

	buf := ringbuf.New()
	watchdog := &simulated.Watchdog{}

	var engine *dialogue.Engine
	arb := arbiter.New(func(tag atproto.Tag) { engine.HandleExpire(tag) })
	engine = dialogue.New(cfgStore, arb, transport, watchdog, logger.With("component", "dialogue"), clock.Now())

	gpio := simulated.NewDigitalInputs(store.NumInputs)
	monitor := inputs.New(gpio, arb, engine)

	led := &simulated.Heartbeat{}
	dev := device.New(clock, watchdog, led, buf, arb, engine, monitor, cfgStore)

	go func() {
		if err := hal.RunReader(ctx, transport, buf); err != nil && ctx.Err() == nil {
			logger.Error("modem reader stopped", "error", err)
		}
	}()

	logger.Info("alarmdial running", "serial_port", config.SerialPort, "baud_rate", config.BaudRate)
	if err := dev.Run(ctx, logger.With("component", "device")); err != nil && ctx.Err() == nil {
		logger.Error("scheduler loop exited", "error", err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
