package capture

import "fmt"

// Config holds the two parameters a write-capture plugin instance takes:
// the backing disk to pass reads and writes through to, and the log file
// to append a LogRecord to for every write.
type Config struct {
	Disk string
	Log  string
}

// ParseConfig validates a set of "key=value" plugin parameters into a
// Config. Any key other than "disk" or "log" is errs.BadArgument,
// matching the nbdkit plugin contract this type mirrors: config() rejects
// anything it doesn't recognize rather than silently ignoring it.
func ParseConfig(params map[string]string) (Config, error) {
	var cfg Config
	for key, value := range params {
		switch key {
		case "disk":
			cfg.Disk = value
		case "log":
			cfg.Log = value
		default:
			return Config{}, fmt.Errorf("capture: unknown config key %q: %w", key, errBadArgument)
		}
	}
	if cfg.Disk == "" {
		return Config{}, fmt.Errorf("capture: missing required config key %q: %w", "disk", errBadArgument)
	}
	if cfg.Log == "" {
		return Config{}, fmt.Errorf("capture: missing required config key %q: %w", "log", errBadArgument)
	}
	return cfg, nil
}
