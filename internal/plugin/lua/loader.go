package lua

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/gridstorm/internal/plugin"
)

// Discover returns the manifests of every plugin directory under root,
// sorted by name. Directories without a manifest are skipped; invalid
// manifests are reported together.
func Discover(root string) ([]*Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var (
		manifests []*Manifest
		errs      []error
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
			continue
		}
		m, err := LoadManifest(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, errors.Join(errs...)
}

// LoadAll discovers and loads every plugin under root.
func LoadAll(root string, opts ...Option) ([]plugin.Plugin, error) {
	manifests, discoverErr := Discover(root)

	var (
		plugins []plugin.Plugin
		errs    []error
	)
	if discoverErr != nil {
		errs = append(errs, discoverErr)
	}
	for _, m := range manifests {
		p, err := New(m, opts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
			continue
		}
		plugins = append(plugins, p)
	}
	return plugins, errors.Join(errs...)
}
