// Package app wires configuration into the registry and engine shared by
// the CLI and the watch daemon.
package app

import (
	"fmt"
	"log/slog"

	"github.com/itsthejuice/File-Converter/internal/config"
	"github.com/itsthejuice/File-Converter/internal/converter"
	"github.com/itsthejuice/File-Converter/internal/db"
	"github.com/itsthejuice/File-Converter/internal/deps"
	"github.com/itsthejuice/File-Converter/internal/engine"
	"github.com/itsthejuice/File-Converter/internal/ffprobe"
	"github.com/itsthejuice/File-Converter/internal/presets"
)

// NewRegistry registers the configured built-ins, loads plugins from
// cfg.PluginDir and applies cfg.DisabledPlugins.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *converter.Registry {
	reg := converter.NewRegistry(logger)
	builtins := reg.RegisterBuiltins(cfg.BuiltinConverters)
	loaded := 0
	if cfg.PluginDir != "" {
		loaded = reg.Load(cfg.PluginDir)
	}
	for _, name := range cfg.DisabledPlugins {
		if err := reg.Disable(name); err != nil {
			logger.Warn("cannot disable plugin", "plugin", name, "error", err)
		}
	}
	logger.Debug("plugins registered", "builtin", builtins, "loaded", loaded)
	return reg
}

// NewEngine builds an engine over reg. A nil recorder disables history.
func NewEngine(cfg *config.Config, reg *converter.Registry, rec engine.Recorder, logger *slog.Logger) (*engine.Engine, error) {
	store, err := presets.LoadFile(cfg.PresetsFile)
	if err != nil {
		return nil, err
	}
	e := &engine.Engine{
		Registry: reg,
		Presets:  store,
		Prober:   ffprobe.New(cfg.FFprobeBinary, cfg.ProbeTimeoutDuration()),
		Recorder: rec,
		Logger:   logger,
	}
	return e, nil
}

// OpenHistory opens the history database under the state dir.
func OpenHistory(cfg *config.Config) (*db.DB, error) {
	if err := cfg.EnsureStateDir(); err != nil {
		return nil, err
	}
	store, err := db.New(cfg.HistoryDB())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// WarnMissingTools logs one warning per missing required tool.
func WarnMissingTools(cfg *config.Config, logger *slog.Logger) {
	for _, s := range deps.CheckBinaries(deps.DefaultRequirements(cfg.FFprobeBinary)) {
		if s.Available {
			continue
		}
		if s.Optional {
			logger.Debug("optional tool missing", "tool", s.Name, "detail", s.Detail)
			continue
		}
		logger.Warn("tool missing", "tool", s.Name, "detail", s.Detail)
	}
}
