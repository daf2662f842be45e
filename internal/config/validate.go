package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModels() error {
	if strings.TrimSpace(c.Models.Vision) == "" {
		return errors.New("models.vision must be set")
	}
	if strings.TrimSpace(c.Models.LLM) == "" {
		return errors.New("models.llm must be set")
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		return errors.New("ollama.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.DefaultFormat {
	case "markdown", "json", "yaml":
	default:
		return fmt.Errorf("output.default_format %q is not supported (use markdown, json, or yaml)", c.Output.DefaultFormat)
	}
	if strings.TrimSpace(c.Output.DefaultTemplate) == "" {
		return errors.New("output.default_template must be set")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	switch c.Cache.Backend {
	case "sqlite", "file":
	default:
		return fmt.Errorf("cache.backend %q is not supported (use sqlite or file)", c.Cache.Backend)
	}
	if c.Cache.TTLHours <= 0 {
		return errors.New("cache.ttl_hours must be positive when cache.enabled is true")
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.max_parallel":           c.Pipeline.MaxParallel,
		"pipeline.frame_interval_seconds": c.Pipeline.FrameIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.Pipeline.MaxRetries > 10 {
		return errors.New("pipeline.max_retries must be 10 or less")
	}
	if c.Pipeline.RetryMaxMS < c.Pipeline.RetryBaseMS {
		return errors.New("pipeline.retry_max_ms must be greater than or equal to pipeline.retry_base_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported (use debug, info, warn, or error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
