package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how New builds a logger
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	File   string // optional rotating log file, always JSON

	// Out is the console destination; nil means os.Stdout
	Out io.Writer

	// NoColor forces plain console output. Colors are also disabled when Out
	// is not a terminal or NO_COLOR is set.
	NoColor bool
}

// New builds a logger from opts. The returned close function flushes and
// closes the log file, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var console io.Writer
	switch opts.Format {
	case "", "console":
		console = NewConsoleWriter(out, opts.NoColor || !colorEnabled(out))
	case "json":
		console = out
	default:
		return zerolog.Nop(), nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	closer := func() error { return nil }
	w := console

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, file)
		closer = file.Close
	}

	l := zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
	return l, closer, nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewConsoleWriter renders events as "15:04:05 [INFO] message key=value"
func NewConsoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:         out,
		NoColor:     noColor,
		TimeFormat:  "15:04:05",
		FormatLevel: levelFormatter(noColor),
	}
}

func levelFormatter(noColor bool) zerolog.Formatter {
	paint := func(c *color.Color, s string) string {
		if noColor {
			return s
		}
		// fatih/color consults the global NoColor flag, which is set from
		// os.Stdout; the caller already decided for this writer.
		c.EnableColor()
		return c.Sprint(s)
	}

	return func(i interface{}) string {
		level, _ := i.(string)
		switch level {
		case zerolog.LevelDebugValue:
			return paint(color.New(color.FgCyan), "[DEBUG]")
		case zerolog.LevelInfoValue:
			return paint(color.New(color.FgGreen), "[INFO]")
		case zerolog.LevelWarnValue:
			return paint(color.New(color.FgYellow), "[WARN]")
		case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
			return paint(color.New(color.FgRed, color.Bold), "[ERROR]")
		default:
			return "[" + strings.ToUpper(level) + "]"
		}
	}
}

func colorEnabled(out io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
