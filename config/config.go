package config

import "time"

type NET struct {
	// ReadBufferSize is the size of the scratch buffer used to read from the
	// socket.
	ReadBufferSize int
	// AcceptLoopInterruptPeriod controls how often the Accept() call is
	// interrupted in order to check whether it's time to stop.
	AcceptLoopInterruptPeriod time.Duration
}

// Config holds limits and knobs used across httc. Always modify values
// returned by Default() instead of constructing the struct manually, as
// zero-valued limits reject effectively everything.
type Config struct {
	// MaxHeaderSize is a hard cap on the total size of the request line plus
	// all header lines, including the line terminators.
	MaxHeaderSize int
	// MaxBodySize is a hard cap on the decoded body length. It applies to
	// both plain and chunked bodies.
	MaxBodySize int
	// RequestTimeout is the per-request deadline. It covers the whole read
	// of a single request, idle time included.
	RequestTimeout time.Duration
	// DefaultHeaders are included into every response unless the handler
	// sets a header with the same name.
	DefaultHeaders map[string]string
	NET            NET
}

// Default returns a well-balanced default config.
func Default() *Config {
	return &Config{
		MaxHeaderSize:  16 * 1024,
		MaxBodySize:    16 * 1024 * 1024,
		RequestTimeout: 30 * time.Second,
		NET: NET{
			ReadBufferSize:            8 * 1024,
			AcceptLoopInterruptPeriod: 5 * time.Second,
		},
	}
}

// Fill backfills zero values of the passed config with defaults.
func Fill(partial Config) *Config {
	defaults := Default()

	if partial.MaxHeaderSize == 0 {
		partial.MaxHeaderSize = defaults.MaxHeaderSize
	}
	if partial.MaxBodySize == 0 {
		partial.MaxBodySize = defaults.MaxBodySize
	}
	if partial.RequestTimeout == 0 {
		partial.RequestTimeout = defaults.RequestTimeout
	}
	if partial.NET.ReadBufferSize == 0 {
		partial.NET.ReadBufferSize = defaults.NET.ReadBufferSize
	}
	if partial.NET.AcceptLoopInterruptPeriod == 0 {
		partial.NET.AcceptLoopInterruptPeriod = defaults.NET.AcceptLoopInterruptPeriod
	}

	return &partial
}
