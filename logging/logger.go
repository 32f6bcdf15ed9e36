package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger provides structured logging for the effects processor
type ComponentLogger struct {
	logger    zerolog.Logger
	component string
	version   string
}

// Options control where and how a ComponentLogger writes.
type Options struct {
	// Format is "console" (default) or "json".
	Format string
	Out    io.Writer
}

// NewComponentLogger creates a new component logger
func NewComponentLogger(component, version string, opts Options) *ComponentLogger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Format != "json" {
		// pretty console logging for development
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("component", component).
		Str("version", version).
		Logger()

	return &ComponentLogger{
		logger:    logger,
		component: component,
		version:   version,
	}
}

// Nop returns a logger that discards everything.
func Nop() *ComponentLogger {
	return &ComponentLogger{logger: zerolog.Nop()}
}

// Info returns an info level event
func (cl *ComponentLogger) Info() *zerolog.Event {
	return cl.logger.Info()
}

// Debug returns a debug level event
func (cl *ComponentLogger) Debug() *zerolog.Event {
	return cl.logger.Debug()
}

// Warn returns a warn level event
func (cl *ComponentLogger) Warn() *zerolog.Event {
	return cl.logger.Warn()
}

// Error returns an error level event
func (cl *ComponentLogger) Error() *zerolog.Event {
	return cl.logger.Error()
}

// With creates a child logger with additional context
func (cl *ComponentLogger) With() zerolog.Context {
	return cl.logger.With()
}

// StartupConfig holds configuration for startup logging
type StartupConfig struct {
	NetworkPassphrase   string
	ListenAddress       string
	CacheTTL            time.Duration
	ProcessSystemEvents bool
	MetricsEnabled      bool
}

// LogStartup logs startup configuration
func (cl *ComponentLogger) LogStartup(config StartupConfig) {
	cl.Info().
		Str("network", config.NetworkPassphrase).
		Str("listen_address", config.ListenAddress).
		Dur("cache_ttl", config.CacheTTL).
		Bool("process_system_events", config.ProcessSystemEvents).
		Bool("metrics_enabled", config.MetricsEnabled).
		Msg("Starting effects processor")
}

// AnalysisMetrics describes one analyzed transaction
type AnalysisMetrics struct {
	TxHash     string
	Operations int
	Effects    int
	Failed     bool
	Ephemeral  bool
	Duration   time.Duration
}

// LogAnalysis logs the outcome of one transaction analysis
func (cl *ComponentLogger) LogAnalysis(metrics AnalysisMetrics) {
	cl.Debug().
		Str("tx_hash", metrics.TxHash).
		Int("operations", metrics.Operations).
		Int("effects", metrics.Effects).
		Bool("failed", metrics.Failed).
		Bool("ephemeral", metrics.Ephemeral).
		Dur("duration", metrics.Duration).
		Msg("Analyzed transaction")
}

// SetLevel sets the global level. Unknown or disabled levels fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel || lvl > zerolog.ErrorLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, defaulting to info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
