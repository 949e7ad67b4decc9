// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"errors"
	"fmt"

	"github.com/tebeka/atexit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ErrUnknownFormat is returned for an output format other than console or
// json.
var ErrUnknownFormat = errors.New("unknown log format")

// New creates a logger. The debug level uses the development configuration,
// every other level the production configuration at that level.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var config zap.Config

	switch lvl {
	case zapcore.DebugLevel:
		config = zap.NewDevelopmentConfig()
	default:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	switch format {
	case FormatConsole, "":
		config.Encoding = FormatConsole
	case FormatJSON:
		config.Encoding = FormatJSON
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return config.Build()
}

// RegisterSync flushes logger when the program leaves through atexit.Exit.
func RegisterSync(logger *zap.Logger) {
	atexit.Register(func() {
		_ = logger.Sync()
	})
}
