package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Format represents the output format
type Format string

const (
	// FormatConsole outputs colored console logs (default)
	FormatConsole Format = "console"
	// FormatJSON outputs one JSON object per line
	FormatJSON Format = "json"
)

func (f *Format) UnmarshalText(text []byte) error {
	switch Format(strings.ToLower(string(text))) {
	case FormatConsole:
		*f = FormatConsole
	case FormatJSON:
		*f = FormatJSON
	default:
		return fmt.Errorf("unknown log format %q", text)
	}
	return nil
}

// Config holds the logger configuration, read from LOG_* variables.
type Config struct {
	Level  Level  `env:"LOG_LEVEL" envDefault:"info"`
	Format Format `env:"LOG_FORMAT" envDefault:"console"`

	// Colors only applies to the console format
	Colors bool `env:"LOG_COLOR" envDefault:"true"`
	Caller bool `env:"LOG_CALLER" envDefault:"false"`

	// TimeFormat is a time layout, or "unix" / "unixmilli"
	TimeFormat string `env:"LOG_TIME_FORMAT" envDefault:"2006-01-02T15:04:05Z07:00"`

	// Service is stamped on every JSON line
	Service string `env:"LOG_SERVICE" envDefault:"keygate"`

	Output io.Writer
}

func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatConsole,
		Colors:     true,
		TimeFormat: time.RFC3339,
		Service:    "keygate",
		Output:     os.Stdout,
	}
}

// LoadFromEnv reads the LOG_* variables. Invalid values are reported on
// stderr and the defaults are kept.
func LoadFromEnv() *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logx: %v, using defaults\n", err)
		return DefaultConfig()
	}
	switch strings.ToUpper(cfg.TimeFormat) {
	case "UNIX":
		cfg.TimeFormat = "unix"
	case "UNIXMILLI":
		cfg.TimeFormat = "unixmilli"
	case "RFC3339NANO":
		cfg.TimeFormat = time.RFC3339Nano
	}
	cfg.Output = os.Stdout
	return &cfg
}
