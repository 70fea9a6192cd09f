package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/config"
	"github.com/dshills/gridstorm/internal/config/loader"
	"github.com/dshills/gridstorm/internal/config/watcher"
	"github.com/dshills/gridstorm/internal/input/keymap"
	"github.com/dshills/gridstorm/internal/logging"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/plugin/lua"
	"github.com/dshills/gridstorm/internal/plugins/navigation"
	"github.com/dshills/gridstorm/internal/plugins/restsync"
	"github.com/dshills/gridstorm/internal/presenter"
	"github.com/dshills/gridstorm/internal/table"
)

type options struct {
	configPath string
	dataPath   string
	logPath    string
	logLevel   string
	noWatch    bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "gridstorm",
		Short:         "Gridstorm - pluggable terminal data grid",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file")
	cmd.Flags().StringVarP(&opts.dataPath, "data", "d", "", "JSON array of rows to load into the table")
	cmd.Flags().StringVar(&opts.logPath, "log-file", "", "write logs to this file (discarded when empty)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload the configuration file on change")

	cmd.AddCommand(newKeysCmd(&opts), newValidateCmd(&opts))
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(loader.DefaultFS(), path, os.Environ)
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	var out io.Writer = io.Discard
	if opts.logPath != "" {
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: out})
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Logr()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, log)

	st, err := buildPlugins(cfg, log)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	tbl, err := table.New(table.FromConfig(cfg, log).WithOnPending(presenter.FlushRequest(screen)), st.plugins...)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	defer func() {
		if err := tbl.Close(context.Background()); err != nil {
			log.Error(err, "table close failed")
		}
	}()

	if opts.dataPath != "" {
		if err := seedRows(tbl, opts.dataPath); err != nil {
			return err
		}
	}

	if opts.configPath != "" && !opts.noWatch {
		w, err := watchConfig(opts, logger, st.nav, log)
		if err != nil {
			log.Error(err, "config watch disabled")
		} else {
			defer w.Close()
		}
	}

	p := presenter.New(screen, tbl,
		presenter.WithLogger(log),
		presenter.WithColumns(cfg.Table.Columns...))
	if err := p.Mount(ctx); err != nil {
		return err
	}
	if st.sync != nil {
		if _, err := st.sync.Load(ctx); err != nil {
			log.Error(err, "initial load failed")
		}
		p.Draw()
	}
	return p.Run(ctx)
}

type stack struct {
	plugins []plugin.Plugin
	nav     *navigation.Plugin
	sync    *restsync.Plugin
}

// buildPlugins creates the built-in plugins and loads the script plugins.
// Script loading failures are logged; the remaining plugins still run.
func buildPlugins(cfg *config.Config, log logr.Logger) (stack, error) {
	km, err := keymap.FromMap("default", cfg.Keymap)
	if err != nil {
		return stack{}, fmt.Errorf("keymap: %w", err)
	}
	st := stack{nav: navigation.New(km)}
	st.plugins = append(st.plugins, st.nav)

	if cfg.Plugins.Dir != "" {
		scripts, err := lua.LoadAll(cfg.Plugins.Dir, lua.WithLogger(log), lua.WithTimeout(cfg.Plugins.Timeout))
		if err != nil {
			log.Error(err, "some script plugins failed to load", "dir", cfg.Plugins.Dir)
		}
		st.plugins = append(st.plugins, scripts...)
	}

	if rs := cfg.RestSync; rs.Enabled {
		hc := restsync.DefaultHTTPConfig(rs.BaseURL)
		hc.Timeout = rs.Timeout
		hc.MaxFailures = rs.MaxFailures
		hc.Logger = log
		st.sync = restsync.New(restsync.Config{
			Transport: restsync.NewHTTPTransport(hc),
			IDField:   rs.IDField,
			Timeout:   rs.Timeout,
			Button:    true,
		})
		st.plugins = append(st.plugins, st.sync)
	}
	return st, nil
}

// seedRows appends each element of a JSON array file to the table space.
func seedRows(tbl *table.Table, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		return fmt.Errorf("%s: expected a JSON array", path)
	}

	var errs []error
	res.ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			return true
		}
		if _, err := tbl.AddRow(tbl.TableSpace(), action.Bottom, []byte(row.Raw)); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// watchConfig applies the log level and key bindings of a changed file.
func watchConfig(opts options, logger *logging.Logger, nav *navigation.Plugin, log logr.Logger) (*watcher.Watcher, error) {
	return config.Watch(opts.configPath, os.Environ, func(cfg *config.Config, err error) {
		if err != nil {
			log.Error(err, "config reload rejected")
			return
		}
		if opts.logLevel == "" {
			if err := logger.SetLevel(cfg.Logging.Level); err != nil {
				log.Error(err, "log level not applied")
			}
		}
		if err := nav.SetBindings(cfg.Keymap); err != nil {
			log.Error(err, "key bindings not applied")
			return
		}
		log.Info("configuration reloaded")
	}, watcher.WithLogger(log))
}
