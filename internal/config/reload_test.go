package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/config"
	"github.com/dshills/gridstorm/internal/config/watcher"
)

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0o644))

	results := make(chan *config.Config, 4)
	w, err := config.Watch(path, nil, func(cfg *config.Config, err error) {
		if err == nil {
			results <- cfg
		}
	}, watcher.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644))

	select {
	case cfg := <-results:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after write")
	}
}
