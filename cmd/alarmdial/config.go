package main

import (
	"flag"
	"os"
	"strconv"
)

// Config holds the daemon's configuration. Per spec.md §6, the firmware
// itself has "no CLI, no env, no config files" — this is the ambient
// concern of wiring a hosted Go process to the hardware it bridges, not a
// feature the spec describes.
type Config struct {
	// SerialPort is the OS device path to the modem (e.g. "/dev/ttyUSB0").
	SerialPort string
	// BaudRate is the modem link's baud rate; 9600 per spec.md §6.
	BaudRate int
	// LogLevel sets the logging level (debug, info, warn, error).
	LogLevel string
	// FlashOffset is the byte offset of the config record, informational
	// only — the simulated FlashStore backend treats it as opaque.
	FlashOffset int
}

// ConfigOption mutates a Config, following the teacher's functional-options
// loader shape (config.go's ConfigOption).
type ConfigOption func(*Config) error

// LoadConfig applies opts in order and returns the resulting Config.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithDefaults applies the daemon's default configuration.
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 9600
		c.LogLevel = "info"
		c.FlashOffset = 512 * 1024
		return nil
	}
}

// WithEnv overlays configuration from ALARMDIAL_* environment variables.
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if v := os.Getenv("ALARMDIAL_SERIAL_PORT"); v != "" {
			c.SerialPort = v
		}
		if v := os.Getenv("ALARMDIAL_BAUD_RATE"); v != "" {
			if b, err := strconv.Atoi(v); err == nil {
				c.BaudRate = b
			}
		}
		if v := os.Getenv("ALARMDIAL_LOG_LEVEL"); v != "" {
			c.LogLevel = v
		}
		if v := os.Getenv("ALARMDIAL_FLASH_OFFSET"); v != "" {
			if o, err := strconv.Atoi(v); err == nil {
				c.FlashOffset = o
			}
		}
		return nil
	}
}

// WithFlags overlays configuration from explicitly-set command-line flags.
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "flash-offset":
				if o, err := strconv.Atoi(f.Value.String()); err == nil {
					c.FlashOffset = o
				}
			}
		})
		return nil
	}
}
