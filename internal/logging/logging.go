// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Options selects the log level and output format
type Options struct {
	Level  string    // debug, info, warn, error
	JSON   bool      // JSON lines instead of text
	Output io.Writer // defaults to os.Stderr
}

// Setup configures logrus.StandardLogger and returns it. Unknown levels fall
// back to info.
func Setup(opts Options) *logrus.Logger {
	logger := logrus.StandardLogger()
	configure(logger, opts)
	return logger
}

// New returns an independent logger configured like Setup.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()
	configure(logger, opts)
	return logger
}

func configure(logger *logrus.Logger, opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: !isTerminal(out),
		})
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
