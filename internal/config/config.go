package config

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gridstorm/internal/config/loader"
	"github.com/dshills/gridstorm/internal/input/key"
	"github.com/dshills/gridstorm/internal/input/keymap"
	"github.com/dshills/gridstorm/internal/logging"
	"github.com/dshills/gridstorm/internal/order"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRIDSTORM_"

// Config holds every setting of a grid process.
type Config struct {
	Logging   Logging           `yaml:"logging"`
	Indexer   Indexer           `yaml:"indexer"`
	Keymap    map[string]string `yaml:"keymap"`
	Scheduler Scheduler         `yaml:"scheduler"`
	RestSync  RestSync          `yaml:"restsync"`
	Plugins   Plugins           `yaml:"plugins"`
	Table     Table             `yaml:"table"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Indexer configures order-key generation.
type Indexer struct {
	// RedistributeThreshold is the key length that triggers a rewrite of
	// every key. Zero disables redistribution.
	RedistributeThreshold int `yaml:"redistributeThreshold"`
}

// Scheduler configures the deferred-operation queue.
type Scheduler struct {
	QueueSize int `yaml:"queueSize"`
}

// RestSync configures the REST synchronisation plugin.
type RestSync struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxFailures opens the circuit breaker after that many consecutive
	// failed requests.
	MaxFailures uint32 `yaml:"maxFailures"`
	// IDField is the row payload field holding the remote record id.
	IDField string `yaml:"idField"`
}

// Plugins configures script plugin discovery.
type Plugins struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// Table configures the table's own space.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// DefaultKeymap binds key specifications to navigation bindings.
func DefaultKeymap() map[string]string {
	return map[string]string{
		"Up":      "navigate:up",
		"Down":    "navigate:down",
		"Left":    "navigate:left",
		"Right":   "navigate:right",
		"Tab":     "navigate:right",
		"Backtab": "navigate:left",
		"Enter":   "action:edit",
		"Ctrl+N":  "insert:bottom",
		"Ctrl+T":  "insert:top",
		"Ctrl+D":  "delete",
	}
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "info", Format: "console"},
		Indexer: Indexer{RedistributeThreshold: order.DefaultRedistributeThreshold},
		Keymap:  DefaultKeymap(),
		Scheduler: Scheduler{
			QueueSize: 256,
		},
		RestSync: RestSync{
			Timeout:     10 * time.Second,
			MaxFailures: 5,
			IDField:     "id",
		},
		Plugins: Plugins{Timeout: 2 * time.Second},
		Table: Table{
			Name:    "table",
			Columns: []string{"name", "value"},
		},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Keymap = maps.Clone(c.Keymap)
	out.Table.Columns = append([]string(nil), c.Table.Columns...)
	return &out
}

// Load builds a Config from the defaults, the file at path (skipped when
// path is empty or the file is missing) and the environment. environ may
// be nil to ignore the environment.
func Load(fsys loader.FileSystem, path string, environ func() []string) (*Config, error) {
	merged := make(map[string]any)

	if path != "" {
		data, err := loader.NewFileLoaderWithFS(fsys, path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, data)
	}

	if environ != nil {
		data, err := loader.NewEnvLoader(EnvPrefix).WithEnviron(environ).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, data)
	}

	cfg := Default()
	if err := decode(merged, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies a settings map over cfg. Fields absent from the map keep
// their value and maps are merged key by key.
func decode(data map[string]any, cfg *Config) error {
	if len(data) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Validate checks every setting and joins all failures.
func (c *Config) Validate() error {
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		fail("logging.level", "%v", err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		fail("logging.format", "unknown format %q", c.Logging.Format)
	}
	if c.Indexer.RedistributeThreshold < 0 {
		fail("indexer.redistributeThreshold", "must not be negative")
	}
	for spec, binding := range c.Keymap {
		if _, err := key.Parse(spec); err != nil {
			fail("keymap."+spec, "%v", err)
		}
		if binding == "" {
			continue
		}
		if _, err := keymap.ParseTarget(binding); err != nil {
			fail("keymap."+spec, "unknown binding %q", binding)
		}
	}
	if c.Scheduler.QueueSize <= 0 {
		fail("scheduler.queueSize", "must be positive")
	}
	if c.RestSync.Enabled && c.RestSync.BaseURL == "" {
		fail("restsync.baseUrl", "required when restsync is enabled")
	}
	if c.RestSync.Timeout < 0 {
		fail("restsync.timeout", "must not be negative")
	}
	if c.Plugins.Timeout < 0 {
		fail("plugins.timeout", "must not be negative")
	}
	if len(c.Table.Columns) == 0 {
		fail("table.columns", "at least one column is required")
	}

	return errors.Join(errs...)
}
