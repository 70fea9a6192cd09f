package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/config"
	"github.com/dshills/gridstorm/internal/config/loader"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "navigate:up", cfg.Keymap["Up"])
	assert.Equal(t, 24, cfg.Indexer.RedistributeThreshold)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := config.Load(loader.NewMemFS(), "/etc/gridstorm.toml", nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadTOMLMergesOverDefaults(t *testing.T) {
	fsys := loader.NewMemFS()
	fsys.AddFile("/cfg/grid.toml", `
[logging]
level = "debug"

[keymap]
"Ctrl+E" = "action:edit"
Tab = ""

[restsync]
enabled = true
baseUrl = "http://localhost:8080/rows"
timeout = "3s"

[table]
columns = ["sku", "qty", "price"]
`)

	cfg, err := config.Load(fsys, "/cfg/grid.toml", nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format, "untouched settings keep defaults")
	assert.Equal(t, "action:edit", cfg.Keymap["Ctrl+E"])
	assert.Equal(t, "", cfg.Keymap["Tab"], "a blank binding unbinds the key")
	assert.Equal(t, "navigate:up", cfg.Keymap["Up"], "default bindings survive")
	assert.True(t, cfg.RestSync.Enabled)
	assert.Equal(t, 3*time.Second, cfg.RestSync.Timeout)
	assert.Equal(t, uint32(5), cfg.RestSync.MaxFailures)
	assert.Equal(t, []string{"sku", "qty", "price"}, cfg.Table.Columns)
}

func TestLoadYAML(t *testing.T) {
	fsys := loader.NewMemFS()
	fsys.AddFile("grid.yaml", `
indexer:
  redistributeThreshold: 0
scheduler:
  queueSize: 8
plugins:
  dir: ./plugins
`)

	cfg, err := config.Load(fsys, "grid.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Indexer.RedistributeThreshold)
	assert.Equal(t, 8, cfg.Scheduler.QueueSize)
	assert.Equal(t, "./plugins", cfg.Plugins.Dir)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	fsys := loader.NewMemFS()
	fsys.AddFile("grid.toml", "[logging]\nlevel = \"debug\"\n")

	env := func() []string {
		return []string{
			"GRIDSTORM_LOGGING_LEVEL=warn",
			"GRIDSTORM_RESTSYNC_MAX_FAILURES=9",
			"GRIDSTORM_PLUGINS_TIMEOUT=500ms",
			"HOME=/root",
		}
	}

	cfg, err := config.Load(fsys, "grid.toml", env)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, uint32(9), cfg.RestSync.MaxFailures)
	assert.Equal(t, 500*time.Millisecond, cfg.Plugins.Timeout)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		is      error
	}{
		{name: "bad level", path: "a.toml", content: "[logging]\nlevel = \"loud\"\n", is: config.ErrInvalidValue},
		{name: "bad key spec", path: "a.toml", content: "[keymap]\n\"Hyper+Q\" = \"delete\"\n", is: config.ErrInvalidValue},
		{name: "bad binding", path: "a.yaml", content: "keymap:\n  Up: fly:away\n", is: config.ErrInvalidValue},
		{name: "restsync without url", path: "a.yaml", content: "restsync:\n  enabled: true\n", is: config.ErrInvalidValue},
		{name: "wrong shape", path: "a.yaml", content: "scheduler:\n  queueSize: [1, 2]\n", is: config.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := loader.NewMemFS()
			fsys.AddFile(tt.path, tt.content)
			_, err := config.Load(fsys, tt.path, nil)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestLoadParseError(t *testing.T) {
	fsys := loader.NewMemFS()
	fsys.AddFile("bad.toml", "[logging\nlevel = 1")

	_, err := config.Load(fsys, "bad.toml", nil)
	var pe *loader.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.toml", pe.Path)
}

func TestValidationErrorNamesPath(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.QueueSize = 0
	cfg.Table.Columns = nil

	err := cfg.Validate()
	var ve *config.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "scheduler.queueSize")
	assert.Contains(t, err.Error(), "table.columns")
}

func TestClone(t *testing.T) {
	a := config.Default()
	b := a.Clone()
	b.Keymap["Up"] = "delete"
	b.Table.Columns[0] = "changed"
	assert.Equal(t, "navigate:up", a.Keymap["Up"])
	assert.Equal(t, "name", a.Table.Columns[0])
}
