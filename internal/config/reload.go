package config

import (
	"github.com/dshills/gridstorm/internal/config/loader"
	"github.com/dshills/gridstorm/internal/config/watcher"
)

// ReloadFunc receives a freshly loaded Config, or the error that prevented
// loading it. The previous Config stays in effect on error.
type ReloadFunc func(cfg *Config, err error)

// Watch reloads the file at path from disk whenever it changes. The
// returned watcher must be closed by the caller.
func Watch(path string, environ func() []string, fn ReloadFunc, opts ...watcher.Option) (*watcher.Watcher, error) {
	w, err := watcher.New(opts...)
	if err != nil {
		return nil, err
	}
	w.OnChange(func(watcher.Event) {
		fn(Load(loader.DefaultFS(), path, environ))
	})
	if err := w.Watch(path); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
