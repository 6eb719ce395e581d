package signer

import (
	"errors"
	"time"
)

// Config configures the signing server.
type Config struct {
	ListenAddr string

	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	GracefulShutdownDuration time.Duration
	// MaxBodySize bounds the size of request bodies, in bytes.
	MaxBodySize int64
	// Workers is the number of goroutines checking hierarchical share combinations.
	// If 0, combinations are checked on the request goroutine.
	Workers int
}

// DefaultConfig listens on 127.0.0.1:3000.
func DefaultConfig() Config {
	return Config{
		ListenAddr:               "127.0.0.1:3000",
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             60 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		MaxBodySize:              1 << 20,
	}
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("signer: missing listen address")
	}
	if c.MaxBodySize <= 0 {
		return errors.New("signer: max body size must be positive")
	}
	if c.Workers < 0 {
		return errors.New("signer: workers must not be negative")
	}
	return nil
}
