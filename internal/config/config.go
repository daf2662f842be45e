package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Ollama contains connection settings for the local model runtime.
type Ollama struct {
	Host           string `toml:"host"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Models names the backend models used for each pipeline stage.
type Models struct {
	Vision string `toml:"vision"`
	LLM    string `toml:"llm"`
}

// Output contains defaults for rendering requirements documents.
type Output struct {
	DefaultTemplate string `toml:"default_template"`
	DefaultFormat   string `toml:"default_format"`
	TemplateDir     string `toml:"template_dir"`
	Dir             string `toml:"dir"`
}

// Cache contains configuration for the analysis/synthesis result cache.
type Cache struct {
	Enabled  bool   `toml:"enabled"`
	TTLHours int    `toml:"ttl_hours"`
	Backend  string `toml:"backend"` // "sqlite" or "file"
	Dir      string `toml:"dir"`
}

// Pipeline contains concurrency and retry settings for a run.
type Pipeline struct {
	MaxParallel          int `toml:"max_parallel"`
	MaxRetries           int `toml:"max_retries"`
	RetryBaseMS          int `toml:"retry_base_ms"`
	RetryMaxMS           int `toml:"retry_max_ms"`
	FrameIntervalSeconds int `toml:"frame_interval_seconds"`
	// MaxImageSide bounds the long edge of images sent to the vision model.
	// Zero disables downscaling.
	MaxImageSide int `toml:"max_image_side"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for featuregen.
//
// Configuration sections by subsystem:
//   - Ollama: local model runtime host and request timeout
//   - Models: vision and text model names
//   - Output: default template, format, template directory, output directory
//   - Cache: result cache toggle, TTL, and storage backend
//   - Pipeline: parallelism, retry policy, video frame sampling
//   - Logging: log format, level, and optional file
//   - Metrics: optional Prometheus textfile path
type Config struct {
	Ollama   Ollama   `toml:"ollama"`
	Models   Models   `toml:"models"`
	Output   Output   `toml:"output"`
	Cache    Cache    `toml:"cache"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/featuregen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("featuregen.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories the CLI writes into.
func (c *Config) EnsureDirectories() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) != "" {
		if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
		}
	}
	if strings.TrimSpace(c.Output.Dir) != "" {
		if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", c.Output.Dir, err)
		}
	}
	return nil
}

// BackendTimeout returns the bounded wait applied to each model call.
func (c *Config) BackendTimeout() time.Duration {
	if c.Ollama.TimeoutSeconds <= 0 {
		return time.Duration(defaultOllamaTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}

// CacheTTL returns the configured result cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// RetryBackoff returns the base and maximum retry delays.
func (c *Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.Pipeline.RetryBaseMS) * time.Millisecond,
		time.Duration(c.Pipeline.RetryMaxMS) * time.Millisecond
}

// FrameInterval returns the sampling interval for video inputs.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Pipeline.FrameIntervalSeconds) * time.Second
}

// FFmpegBinary returns the ffmpeg executable name used for frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "featuregen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/featuregen"
	}
	return filepath.Join(home, ".cache", "featuregen")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
