package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/itsthejuice/File-Converter/internal/app"
	"github.com/itsthejuice/File-Converter/internal/config"
	"github.com/itsthejuice/File-Converter/internal/converter"
	"github.com/itsthejuice/File-Converter/internal/db"
	"github.com/itsthejuice/File-Converter/internal/engine"
	"github.com/itsthejuice/File-Converter/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error

	registryOnce sync.Once
	registry     *converter.Registry
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if lvl := strings.TrimSpace(*c.logLevelFlag); lvl != "" {
			cfg.LogLevel = lvl
		}
		logger, _, err := logging.NewFromConfig(cfg, "")
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) registryValue() *converter.Registry {
	c.registryOnce.Do(func() {
		c.registry = app.NewRegistry(c.config, c.logger)
	})
	return c.registry
}

// newEngine builds an engine recording into the history database. When the
// database cannot be opened the engine runs without history.
func (c *commandContext) newEngine() (*engine.Engine, func(), error) {
	var rec engine.Recorder
	cleanup := func() {}
	store, err := app.OpenHistory(c.config)
	if err != nil {
		c.logger.Warn("history disabled", "error", err)
	} else {
		rec = store
		cleanup = func() { _ = store.Close() }
	}
	eng, err := app.NewEngine(c.config, c.registryValue(), rec, c.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

func (c *commandContext) openHistory() (*db.DB, error) {
	return app.OpenHistory(c.config)
}
