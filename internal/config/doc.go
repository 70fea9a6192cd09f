// Package config loads the grid's settings.
//
// Settings are layered, higher layers overriding lower:
//
//	environment (GRIDSTORM_*)
//	config file (.toml or .yaml)
//	built-in defaults
//
// Maps are merged key by key, so a config file that binds one key keeps
// every other default binding. The watcher sub-package reloads the file
// when it changes on disk.
package config
