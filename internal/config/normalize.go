package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeOllama()
	c.normalizeModels()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizePipeline()
	return c.normalizeLogging()
}

func (c *Config) normalizeOllama() {
	c.Ollama.Host = strings.TrimSpace(c.Ollama.Host)
	if c.Ollama.Host == "" {
		if value, ok := os.LookupEnv("OLLAMA_HOST"); ok {
			c.Ollama.Host = strings.TrimSpace(value)
		}
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = defaultOllamaHost
	}
	if !strings.Contains(c.Ollama.Host, "://") {
		c.Ollama.Host = "http://" + c.Ollama.Host
	}
	c.Ollama.Host = strings.TrimRight(c.Ollama.Host, "/")
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = defaultOllamaTimeoutSeconds
	}
}

func (c *Config) normalizeModels() {
	c.Models.Vision = strings.TrimSpace(c.Models.Vision)
	if c.Models.Vision == "" {
		if value, ok := os.LookupEnv("FEATUREGEN_VISION_MODEL"); ok {
			c.Models.Vision = strings.TrimSpace(value)
		}
	}
	if c.Models.Vision == "" {
		c.Models.Vision = defaultVisionModel
	}
	c.Models.LLM = strings.TrimSpace(c.Models.LLM)
	if c.Models.LLM == "" {
		if value, ok := os.LookupEnv("FEATUREGEN_LLM_MODEL"); ok {
			c.Models.LLM = strings.TrimSpace(value)
		}
	}
	if c.Models.LLM == "" {
		c.Models.LLM = defaultLLMModel
	}
}

func (c *Config) normalizeOutput() error {
	var err error
	c.Output.DefaultTemplate = strings.TrimSpace(c.Output.DefaultTemplate)
	if c.Output.DefaultTemplate == "" {
		c.Output.DefaultTemplate = defaultTemplate
	}
	c.Output.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Output.DefaultFormat))
	switch c.Output.DefaultFormat {
	case "":
		c.Output.DefaultFormat = defaultFormat
	case "md":
		c.Output.DefaultFormat = "markdown"
	case "yml":
		c.Output.DefaultFormat = "yaml"
	}
	if strings.TrimSpace(c.Output.TemplateDir) == "" {
		c.Output.TemplateDir = defaultTemplateDir
	}
	if c.Output.TemplateDir, err = expandPath(c.Output.TemplateDir); err != nil {
		return fmt.Errorf("output.template_dir: %w", err)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxParallel <= 0 {
		c.Pipeline.MaxParallel = 1
	}
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = 0
	}
	if c.Pipeline.RetryBaseMS < 0 {
		c.Pipeline.RetryBaseMS = 0
	}
	if c.Pipeline.RetryMaxMS <= 0 {
		c.Pipeline.RetryMaxMS = defaultRetryMaxMS
	}
	if c.Pipeline.FrameIntervalSeconds <= 0 {
		c.Pipeline.FrameIntervalSeconds = defaultFrameIntervalSeconds
	}
	if c.Pipeline.MaxImageSide < 0 {
		c.Pipeline.MaxImageSide = 0
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
