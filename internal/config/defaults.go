package config

const (
	defaultOllamaHost           = "http://localhost:11434"
	defaultOllamaTimeoutSeconds = 300
	defaultVisionModel          = "llama3.2-vision:latest"
	defaultLLMModel             = "llama3:latest"
	defaultTemplate             = "web_app"
	defaultFormat               = "markdown"
	defaultTemplateDir          = "~/.config/featuregen/templates"
	defaultOutputDir            = "."
	defaultCacheEnabled         = true
	defaultCacheTTLHours        = 168
	defaultCacheBackend         = "sqlite"
	defaultMaxParallel          = 1
	defaultMaxRetries           = 2
	defaultRetryBaseMS          = 500
	defaultRetryMaxMS           = 8000
	defaultFrameIntervalSeconds = 5
	defaultMaxImageSide         = 2048
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults. Ollama host and
// model names are left blank so normalize can apply environment fallbacks
// before the built-in values.
func Default() Config {
	return Config{
		Ollama: Ollama{
			TimeoutSeconds: defaultOllamaTimeoutSeconds,
		},
		Output: Output{
			DefaultTemplate: defaultTemplate,
			DefaultFormat:   defaultFormat,
			TemplateDir:     defaultTemplateDir,
			Dir:             defaultOutputDir,
		},
		Cache: Cache{
			Enabled:  defaultCacheEnabled,
			TTLHours: defaultCacheTTLHours,
			Backend:  defaultCacheBackend,
			Dir:      defaultCacheDir(),
		},
		Pipeline: Pipeline{
			MaxParallel:          defaultMaxParallel,
			MaxRetries:           defaultMaxRetries,
			RetryBaseMS:          defaultRetryBaseMS,
			RetryMaxMS:           defaultRetryMaxMS,
			FrameIntervalSeconds: defaultFrameIntervalSeconds,
			MaxImageSide:         defaultMaxImageSide,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
