package secureoverlay

import (
	"log/slog"

	"github.com/dep2p/go-secureoverlay/internal/logging"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

// options holds the fields Option functions may set, following the
// teacher's options.go convention: exported Option type, unexported
// options struct, With-prefixed constructors.
type options struct {
	logger        *slog.Logger
	extraInsecure []value.Type
}

func defaultOptions() *options {
	return &options{logger: logging.Logger("overlay")}
}

// Option configures an Overlay at construction time.
type Option func(*options)

// WithLogger overrides the *slog.Logger the Overlay uses, in place of the
// package default (internal/logging, subsystem "overlay"). The certstore
// keeps its own "certstore" subsystem logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInsecureType registers t as insecure (unsigned policy) alongside
// CERTIFICATE at construction time, for applications that need another
// bootstrap-style type exempt from signature enforcement.
func WithInsecureType(t value.Type) Option {
	return func(o *options) { o.extraInsecure = append(o.extraInsecure, t) }
}
