package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Category int

const (
	Application Category = iota
	DiscordEvents
	Database
)

func (c Category) String() string {
	switch c {
	case DiscordEvents:
		return "discord"
	case Database:
		return "database"
	default:
		return "application"
	}
}

// Options controls where and how the global logger writes.
type Options struct {
	// Dir is the directory for the rotating log file. Empty disables file output.
	Dir    string
	Level  string
	Format string // "text" or "json"

	// Stdout overrides the console writer (tests).
	Stdout io.Writer
}

var (
	// GlobalLogger is the shared logrus instance. It is usable before SetupLogger runs.
	GlobalLogger = logrus.New()

	mu   sync.Mutex
	file *lumberjack.Logger
)

// SetupLogger configures GlobalLogger. Calling it again replaces the previous configuration.
func SetupLogger(opts Options) error {
	level := logrus.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var out io.Writer = os.Stdout
	if opts.Stdout != nil {
		out = opts.Stdout
	}

	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		_ = file.Close()
		file = nil
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "arctur.log"),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
	}

	GlobalLogger.SetOutput(out)
	GlobalLogger.SetLevel(level)
	if strings.EqualFold(opts.Format, "json") {
		GlobalLogger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		GlobalLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Close flushes and closes the rotating log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	GlobalLogger.SetOutput(os.Stdout)
	return err
}

func For(c Category) *logrus.Entry {
	return GlobalLogger.WithField("category", c.String())
}

func ApplicationLogger() *logrus.Entry { return For(Application) }
func DiscordLogger() *logrus.Entry     { return For(DiscordEvents) }
func DatabaseLogger() *logrus.Entry    { return For(Database) }
