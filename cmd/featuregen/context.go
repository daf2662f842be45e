package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"featuregen/internal/config"
	"featuregen/internal/logging"
	"featuregen/internal/metrics"
	"featuregen/internal/resultcache"
	"featuregen/internal/services/ollama"
	"featuregen/internal/templates"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// loggerFor returns the process logger. Construction failures fall back to a
// plain stderr logger so a bad log file path never blocks a run.
func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: cfg.Logging.Level})
			logger.Warn("log file unavailable; logging to stderr only", logging.Error(err))
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) backend(cfg *config.Config) (*ollama.Client, error) {
	client, err := ollama.NewClient(ollama.Config{Host: cfg.Ollama.Host, Timeout: cfg.BackendTimeout()})
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return client, nil
}

func (c *commandContext) resolver(cfg *config.Config) *templates.Resolver {
	return templates.NewResolver(cfg.Output.TemplateDir)
}

func (c *commandContext) openCache(cfg *config.Config, recorder *metrics.Recorder) (*resultcache.Cache, error) {
	opts := []resultcache.Option{resultcache.WithLogger(c.loggerFor(cfg))}
	if recorder != nil {
		opts = append(opts, resultcache.WithObserver(recorder.ObserveCache))
	}
	cache, err := resultcache.Open(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return cache, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
