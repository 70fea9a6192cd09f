package table

import (
	"github.com/go-logr/logr"

	"github.com/dshills/gridstorm/internal/config"
	"github.com/dshills/gridstorm/internal/order"
	"github.com/dshills/gridstorm/internal/scheduler"
)

// Config configures a Table.
type Config struct {
	// Logger receives every component's diagnostics.
	Logger logr.Logger

	// SpaceName names the table's own data space.
	SpaceName string

	// RedistributeThreshold is handed to the order indexer.
	RedistributeThreshold int

	// QueueSize bounds the deferred-operation queue.
	QueueSize int

	// EnableMetrics enables command dispatch counters.
	EnableMetrics bool

	// OnPending is called when an operation is deferred while none were
	// pending. It must not block.
	OnPending func()
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logger:                logr.Discard(),
		SpaceName:             "table",
		RedistributeThreshold: order.DefaultRedistributeThreshold,
		QueueSize:             scheduler.DefaultQueueSize,
		EnableMetrics:         true,
	}
}

// FromConfig derives a table configuration from loaded settings.
func FromConfig(c *config.Config, log logr.Logger) Config {
	return DefaultConfig().
		WithLogger(log).
		WithSpaceName(c.Table.Name).
		WithRedistributeThreshold(c.Indexer.RedistributeThreshold).
		WithQueueSize(c.Scheduler.QueueSize)
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(log logr.Logger) Config {
	c.Logger = log
	return c
}

// WithSpaceName returns a copy of the config with the space name set.
func (c Config) WithSpaceName(name string) Config {
	if name != "" {
		c.SpaceName = name
	}
	return c
}

// WithRedistributeThreshold returns a copy of the config with the
// redistribution threshold set.
func (c Config) WithRedistributeThreshold(n int) Config {
	c.RedistributeThreshold = n
	return c
}

// WithOnPending returns a copy of the config with the pending callback set.
func (c Config) WithOnPending(fn func()) Config {
	c.OnPending = fn
	return c
}

// WithQueueSize returns a copy of the config with the queue size set.
func (c Config) WithQueueSize(n int) Config {
	c.QueueSize = n
	return c
}
