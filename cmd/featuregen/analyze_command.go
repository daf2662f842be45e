package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"featuregen/internal/config"
	"featuregen/internal/frames"
	"featuregen/internal/metrics"
	"featuregen/internal/output"
	"featuregen/internal/pipeline"
	"featuregen/internal/resultcache"
)

type analyzeFlags struct {
	template      string
	format        string
	visionModel   string
	llmModel      string
	output        string
	title         string
	noCache       bool
	frameInterval time.Duration
	maxFrames     int
	parallel      int
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <image>... | <video>",
		Short: "Analyze mockups and write a requirements document",
		Long: "Analyze one or more UI images (or frames sampled from a single screen recording) " +
			"with the vision model and synthesize a requirements document with the text model.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg)
			if err != nil {
				return err
			}

			recorder := metrics.New()
			defer writeMetrics(cmd, cfg, recorder)

			p, cache, err := buildPipeline(ctx, cfg, opts, recorder, flags.noCache)
			if err != nil {
				return err
			}
			defer cache.Close()

			interval := cfg.FrameInterval()
			if flags.frameInterval > 0 {
				interval = flags.frameInterval
			}
			extractor := frames.NewExtractor(interval,
				frames.WithBinary(cfg.FFmpegBinary()),
				frames.WithMaxFrames(flags.maxFrames),
			)
			inputs, err := pipeline.CollectInputs(cmd.Context(), args, extractor)
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context(), inputs)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(flags.output)
			if target == "" {
				target = output.DefaultPath(cfg.Output.Dir, args[0], res.Format)
			}
			return emitResult(cmd, res, target, len(inputs))
		},
	}

	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "Requirements template (web_app, mobile_app, dashboard, or a user template)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: markdown, json, or yaml")
	cmd.Flags().StringVar(&flags.visionModel, "vision-model", "", "Vision model override")
	cmd.Flags().StringVar(&flags.llmModel, "llm-model", "", "Text model override")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (\"-\" for stdout; default <first-input>-requirements.<ext>)")
	cmd.Flags().StringVar(&flags.title, "title", "", "Document title override")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Bypass the result cache")
	cmd.Flags().DurationVar(&flags.frameInterval, "frame-interval", 0, "Sampling interval for video input (default pipeline.frame_interval_seconds)")
	cmd.Flags().IntVar(&flags.maxFrames, "max-frames", 0, "Maximum frames sampled from a video (0 = no limit)")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Concurrent vision analyses (default pipeline.max_parallel)")
	return cmd
}

// options applies flag overrides on top of the configured defaults. The
// format is validated here so a typo fails before any model call.
func (f analyzeFlags) options(cfg *config.Config) (pipeline.Options, error) {
	opts := pipeline.OptionsFromConfig(cfg)
	if v := strings.TrimSpace(f.template); v != "" {
		opts.Template = v
	}
	if v := strings.TrimSpace(f.format); v != "" {
		format, err := output.ParseFormat(v)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Format = format
	}
	if v := strings.TrimSpace(f.visionModel); v != "" {
		opts.VisionModel = v
	}
	if v := strings.TrimSpace(f.llmModel); v != "" {
		opts.TextModel = v
	}
	if f.parallel > 0 {
		opts.MaxParallel = f.parallel
	}
	opts.Title = strings.TrimSpace(f.title)
	return opts, nil
}

func buildPipeline(ctx *commandContext, cfg *config.Config, opts pipeline.Options, recorder *metrics.Recorder, noCache bool) (*pipeline.Pipeline, *resultcache.Cache, error) {
	backend, err := ctx.backend(cfg)
	if err != nil {
		return nil, nil, err
	}
	cache := resultcache.New(nil, 0)
	if !noCache {
		if cache, err = ctx.openCache(cfg, recorder); err != nil {
			return nil, nil, err
		}
	}
	p, err := pipeline.New(pipeline.Dependencies{
		Backend:   backend,
		Templates: ctx.resolver(cfg),
		Cache:     cache,
		Metrics:   recorder,
		Logger:    ctx.loggerFor(cfg),
	}, opts)
	if err != nil {
		_ = cache.Close()
		return nil, nil, err
	}
	return p, cache, nil
}

// emitResult writes the serialized document to target ("-" for stdout) and
// prints a short summary to stderr.
func emitResult(cmd *cobra.Command, res pipeline.Result, target string, inputs int) error {
	if res.TemplateWarning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", res.TemplateWarning)
	}
	if target == "-" {
		_, err := cmd.OutOrStdout().Write(res.Output)
		return err
	}
	if err := writeFileAtomic(target, res.Output); err != nil {
		return err
	}

	missing := 0
	for _, s := range res.Document.Sections {
		if !s.Generated {
			missing++
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", target)
	fmt.Fprintf(out, "  template: %s  format: %s  sections: %d  cache hits: %d  elapsed: %s\n",
		res.Template.Key, res.Format, len(res.Document.Sections), res.CacheHits, res.Elapsed.Round(time.Millisecond))
	if inputs > 0 {
		fmt.Fprintf(out, "  screens analyzed: %d\n", inputs)
	}
	if missing > 0 {
		fmt.Fprintf(out, "  %d section(s) had no generated content; try `featuregen refine %s`\n", missing, target)
	}
	return nil
}

func writeFileAtomic(target string, data []byte) error {
	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeMetrics(cmd *cobra.Command, cfg *config.Config, recorder *metrics.Recorder) {
	if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}

func readFeedback(inline, file string, stdin io.Reader) (string, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return inline, nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read feedback: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read feedback: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("feedback is required (use --feedback or --feedback-file)")
	}
}
