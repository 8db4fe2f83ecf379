package logx

import (
	"fmt"
	"strings"
)

// Level represents logging level
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelFatal logs and exits the process
	LevelFatal
	// LevelOff disables all logging
	LevelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "OFF"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel parses a level name, case-insensitive. Unknown names give LevelInfo.
func ParseLevel(level string) Level {
	parsed, err := parseLevel(level)
	if err != nil {
		return LevelInfo
	}
	return parsed
}

func parseLevel(level string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(level))
	if name == "WARNING" {
		return LevelWarn, nil
	}
	for i, candidate := range levelNames {
		if candidate == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// UnmarshalText lets LOG_LEVEL be parsed straight into a Level.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := parseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Enabled reports whether target is logged when l is the minimum level.
func (l Level) Enabled(target Level) bool {
	return l <= target
}
