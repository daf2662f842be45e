package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"featuregen/internal/config"
	"featuregen/internal/metrics"
	"featuregen/internal/output"
	"featuregen/internal/resultcache"
	"featuregen/internal/templates"
)

// Options carries the per-run settings.
type Options struct {
	VisionModel  string
	TextModel    string
	Template     string
	Format       output.Format
	Title        string
	MaxParallel  int
	MaxRetries   int
	RetryBase    time.Duration
	RetryMax     time.Duration
	MaxImageSide int
}

// OptionsFromConfig fills Options from cfg. Callers override individual
// fields from flags afterwards.
func OptionsFromConfig(cfg *config.Config) Options {
	base, maxDelay := cfg.RetryBackoff()
	format, err := output.ParseFormat(cfg.Output.DefaultFormat)
	if err != nil {
		format = output.Markdown
	}
	return Options{
		VisionModel:  cfg.Models.Vision,
		TextModel:    cfg.Models.LLM,
		Template:     cfg.Output.DefaultTemplate,
		Format:       format,
		MaxParallel:  cfg.Pipeline.MaxParallel,
		MaxRetries:   cfg.Pipeline.MaxRetries,
		RetryBase:    base,
		RetryMax:     maxDelay,
		MaxImageSide: cfg.Pipeline.MaxImageSide,
	}
}

func (o Options) normalized() Options {
	o.VisionModel = strings.TrimSpace(o.VisionModel)
	o.TextModel = strings.TrimSpace(o.TextModel)
	o.Template = strings.TrimSpace(o.Template)
	if o.Template == "" {
		o.Template = templates.DefaultKey
	}
	if o.Format == "" {
		o.Format = output.Markdown
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryMax < o.RetryBase {
		o.RetryMax = o.RetryBase
	}
	return o
}

// Dependencies are the collaborators a Pipeline drives. Backend and
// Templates are required; the rest are optional.
type Dependencies struct {
	Backend   Backend
	Templates *templates.Resolver
	Cache     *resultcache.Cache
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	// Sleep waits between retries; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}
