// Package logging builds the zerolog loggers used by the binaries.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configure New.
type Options struct {
	Debug   bool
	JSON    bool
	Service string
	Version string
	// UID adds a random instance id to every message.
	UID bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger writing to opts.Output, as JSON or for the console.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	if opts.UID {
		ctx = ctx.Str("uid", uuid.NewString())
	}
	return ctx.Logger()
}
