// Package observability provides the structured logger, the Prometheus
// collector and the HTTP middleware shared by the courses service.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Log output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// LogOptions configures NewLogger.
type LogOptions struct {
	// Service is attached to every line as the "service" field.
	Service string
	// Level is one of debug, info, warn, error, fatal. Empty means info.
	Level string
	// Format is FormatJSON or FormatText. Empty means JSON.
	Format string
}

// NewLogger returns a logger writing one record per line to w.
func NewLogger(w io.Writer, opts LogOptions) (*log.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = l
	}

	var formatter log.Formatter
	switch strings.ToLower(opts.Format) {
	case "", FormatJSON:
		formatter = log.JSONFormatter
	case FormatText:
		formatter = log.TextFormatter
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
	})
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	return logger, nil
}
