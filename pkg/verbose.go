package dupsweep

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LevelForVerbose maps the verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
// onto a zerolog level
func LevelForVerbose(level int) zerolog.Level {
	switch {
	case level <= 0:
		return zerolog.WarnLevel
	case level == 1:
		return zerolog.InfoLevel
	case level == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// NewLogger builds the logger used by the engine and the commands.
// human selects the console writer; otherwise JSON lines are written.
func NewLogger(w io.Writer, verbose int, human bool) zerolog.Logger {
	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(LevelForVerbose(verbose)).With().Timestamp().Logger()
}

// DebugFlags holds per-subsystem debug switches
type DebugFlags map[string]bool

// ParseDebugFlags parses a comma-separated flag string.
// Supports both simple flags ("scan,hash") and key:value format ("scan:true,hash:false")
func ParseDebugFlags(flagsStr string) DebugFlags {
	flags := make(DebugFlags)
	if flagsStr == "" {
		return flags
	}

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true // Default to true for simple flag names

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				flagValue = false
			}
		}

		flags[flagName] = flagValue
	}
	return flags
}

// Enabled returns true if the specified debug flag is enabled
func (f DebugFlags) Enabled(flag string) bool {
	if f == nil {
		return false
	}
	return f[strings.ToLower(flag)] || f["all"]
}

// String renders enabled flags in sorted order
func (f DebugFlags) String() string {
	var names []string
	for name, on := range f {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// debugEvent returns a debug event when the flag is enabled, nil otherwise.
// zerolog treats calls on a nil event as no-ops.
func debugEvent(log zerolog.Logger, flags DebugFlags, flag string) *zerolog.Event {
	if !flags.Enabled(flag) {
		return nil
	}
	return log.Debug().Str("subsystem", flag)
}
