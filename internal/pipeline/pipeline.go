package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"featuregen/internal/imagefile"
	"featuregen/internal/logging"
	"featuregen/internal/output"
	"featuregen/internal/prompt"
	"featuregen/internal/requirements"
	"featuregen/internal/resultcache"
	"featuregen/internal/screens"
	"featuregen/internal/services"
	"featuregen/internal/templates"
	"featuregen/internal/vision"
)

// Result is everything a successful run produced.
type Result struct {
	RunID           string
	Template        templates.Template
	TemplateWarning string
	Analyses        []vision.ScreenAnalysis
	Merged          screens.MergedAnalysis
	Document        requirements.Document
	Format          output.Format
	Output          []byte
	CacheHits       int
	Elapsed         time.Duration
}

// Pipeline runs analyze and refine jobs. It is safe for sequential reuse.
type Pipeline struct {
	opts        Options
	deps        Dependencies
	analyzer    *vision.Analyzer
	synthesizer *requirements.Synthesizer
	logger      *slog.Logger
	sleep       func(context.Context, time.Duration) error
}

// New validates opts and wires the stage components around deps.Backend.
// An unsupported output format fails here, before any backend call.
func New(deps Dependencies, opts Options) (*Pipeline, error) {
	if deps.Backend == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "model backend is required", nil)
	}
	if deps.Templates == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "template resolver is required", nil)
	}
	opts = opts.normalized()
	format, err := output.ParseFormat(string(opts.Format))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, StageSerialization, "init", "", err)
	}
	opts.Format = format

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	backend := instrument(deps.Backend, deps.Metrics)
	p := &Pipeline{
		opts:        opts,
		deps:        deps,
		analyzer:    vision.NewAnalyzer(backend, vision.WithMaxImageSide(opts.MaxImageSide), vision.WithLogger(logger)),
		synthesizer: requirements.NewSynthesizer(backend, logger),
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		sleep:       deps.Sleep,
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p, nil
}

// Options returns the effective run options.
func (p *Pipeline) Options() Options { return p.opts }

// Run analyses inputs and returns the serialized requirements document.
func (p *Pipeline) Run(ctx context.Context, inputs []imagefile.Input) (Result, error) {
	start := time.Now()
	if len(inputs) == 0 {
		return Result{}, newStageError(StageInput, -1, "", "",
			services.Wrap(services.ErrValidation, StageInput, "run", "at least one image is required", screens.ErrInvalidInput))
	}

	res := Result{RunID: uuid.NewString(), Format: p.opts.Format}
	ctx = services.WithRunID(ctx, res.RunID)

	resolution := p.deps.Templates.Resolve(p.opts.Template)
	res.Template, res.TemplateWarning = resolution.Template, resolution.Warning
	ctx = services.WithTemplate(ctx, res.Template.Key)
	logger := logging.WithContext(ctx, p.logger)
	if res.TemplateWarning != "" {
		logging.WarnWithContext(logger, res.TemplateWarning, "template_fallback",
			logging.String("requested", p.opts.Template),
			logging.String(logging.FieldImpact, "document uses the default section layout"),
			logging.String(logging.FieldErrorHint, "run `featuregen templates` to list available templates"),
		)
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("images", len(inputs)),
		logging.String("vision_model", p.opts.VisionModel),
		logging.String("text_model", p.opts.TextModel),
		logging.String("format", string(p.opts.Format)),
	)

	var hits atomic.Int32
	err := p.stage(ctx, StageVision, func(ctx context.Context) error {
		analyses, err := p.analyzeAll(ctx, inputs, &hits)
		res.Analyses = analyses
		return err
	})
	if err == nil {
		err = p.stage(ctx, StageAggregation, func(context.Context) error {
			merged, err := screens.Aggregate(res.Analyses)
			if err != nil {
				return newStageError(StageAggregation, -1, "", "", err)
			}
			res.Merged = merged
			return nil
		})
	}
	if err == nil {
		err = p.stage(ctx, StageSynthesis, func(ctx context.Context) error {
			gp := prompt.Build(res.Merged, res.Template)
			km := resultcache.KeyMaterial{
				Kind:     resultcache.KindSynthesis,
				Model:    p.opts.TextModel,
				Template: res.Template.Key,
				Content:  []byte(gp.System + "\x00" + gp.User),
			}
			doc, hit, err := resultcache.Remember(ctx, p.deps.Cache, km, func(ctx context.Context) (requirements.Document, error) {
				return withRetry(ctx, p, StageSynthesis, func(ctx context.Context) (requirements.Document, error) {
					return p.synthesizer.Synthesize(ctx, gp, p.opts.TextModel)
				})
			})
			if err != nil {
				return p.backendFailure(ctx, StageSynthesis, -1, "", p.opts.TextModel, err)
			}
			if hit {
				hits.Add(1)
			}
			res.Document = p.titled(doc)
			return nil
		})
	}
	if err == nil {
		err = p.serialize(ctx, &res)
	}

	res.CacheHits = int(hits.Load())
	res.Elapsed = time.Since(start)
	return p.finish(ctx, res, err)
}

// Refine re-generates doc from feedback with the same section contract.
func (p *Pipeline) Refine(ctx context.Context, doc requirements.Document, feedback string) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), Format: p.opts.Format, Template: doc.ContractTemplate()}
	ctx = services.WithTemplate(services.WithRunID(ctx, res.RunID), doc.Template)
	logging.WithContext(ctx, p.logger).Info("refine started",
		logging.String(logging.FieldEventType, "refine_start"),
		logging.Int("sections", len(doc.Sections)),
		logging.String("text_model", p.opts.TextModel),
	)

	err := p.stage(ctx, StageRefine, func(ctx context.Context) error {
		km := resultcache.KeyMaterial{
			Kind:     resultcache.KindRefine,
			Model:    p.opts.TextModel,
			Template: doc.Template,
			Content:  []byte(doc.Markdown() + "\x00" + feedback),
		}
		refined, hit, err := resultcache.Remember(ctx, p.deps.Cache, km, func(ctx context.Context) (requirements.Document, error) {
			return withRetry(ctx, p, StageRefine, func(ctx context.Context) (requirements.Document, error) {
				return p.synthesizer.Refine(ctx, doc, feedback, p.opts.TextModel)
			})
		})
		if err != nil {
			return p.backendFailure(ctx, StageRefine, -1, "", p.opts.TextModel, err)
		}
		if hit {
			res.CacheHits++
		}
		res.Document = p.titled(refined)
		return nil
	})
	if err == nil {
		err = p.serialize(ctx, &res)
	}
	res.Elapsed = time.Since(start)
	return p.finish(ctx, res, err)
}

// analyzeAll analyzes the first image on its own so a backend that cannot
// serve the run (missing model, service down) fails before any other image is
// sent. The remaining images fan out under MaxParallel.
func (p *Pipeline) analyzeAll(ctx context.Context, inputs []imagefile.Input, hits *atomic.Int32) ([]vision.ScreenAnalysis, error) {
	results := make([]vision.ScreenAnalysis, len(inputs))
	run := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		analysis, hit, err := p.analyze(ctx, inputs[i])
		if err != nil {
			return err
		}
		if hit {
			hits.Add(1)
		}
		results[i] = analysis
		return nil
	}

	if err := run(ctx, 0); err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxParallel)
	for i := 1; i < len(inputs); i++ {
		g.Go(func() error { return run(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) analyze(ctx context.Context, in imagefile.Input) (vision.ScreenAnalysis, bool, error) {
	ctx = services.WithImage(ctx, in.Number())
	km := resultcache.KeyMaterial{
		Kind:    resultcache.KindVision,
		Model:   p.opts.VisionModel,
		Content: []byte(fmt.Sprintf("%s\x00%d", in.Digest(), p.opts.MaxImageSide)),
	}
	analysis, hit, err := resultcache.Remember(ctx, p.deps.Cache, km, func(ctx context.Context) (vision.ScreenAnalysis, error) {
		return withRetry(ctx, p, StageVision, func(ctx context.Context) (vision.ScreenAnalysis, error) {
			return p.analyzer.Analyze(ctx, in, p.opts.VisionModel)
		})
	})
	if err != nil {
		return vision.ScreenAnalysis{}, false, p.backendFailure(ctx, StageVision, in.Ordinal, in.Name, p.opts.VisionModel, err)
	}
	// Cache entries are keyed by content; identity comes from this run.
	analysis.Ordinal = in.Ordinal
	analysis.Name = in.Name
	analysis.Timestamp = in.Timestamp
	if hit {
		logging.WithContext(ctx, p.logger).Debug("vision analysis served from cache",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String("image_name", in.Name),
		)
	}
	return analysis, hit, nil
}

// backendFailure converts err into a StageError unless the run itself was
// cancelled, in which case the context error is returned unchanged.
func (p *Pipeline) backendFailure(ctx context.Context, stage string, ordinal int, name, model string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	return newStageError(stage, ordinal, name, model, err)
}

func (p *Pipeline) titled(doc requirements.Document) requirements.Document {
	if p.opts.Title != "" {
		doc.Title = p.opts.Title
	}
	return doc
}

func (p *Pipeline) serialize(ctx context.Context, res *Result) error {
	return p.stage(ctx, StageSerialization, func(context.Context) error {
		data, err := output.Serialize(res.Document, res.Format)
		if err != nil {
			return newStageError(StageSerialization, -1, "", "", err)
		}
		res.Output = data
		return nil
	})
}

// stage runs fn with the stage name on the context and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	start := time.Now()
	err := fn(stageCtx)
	p.deps.Metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) finish(ctx context.Context, res Result, err error) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	if err != nil {
		result := "failed"
		if errors.Is(err, context.Canceled) {
			result = "cancelled"
		}
		p.deps.Metrics.ObserveRun(result)
		attrs := []logging.Attr{logging.Error(err)}
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			attrs = append(attrs, logging.String(logging.FieldStage, stageErr.Stage))
			if hint := stageErr.Hint(); hint != "" {
				attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
			}
		}
		logging.ErrorWithContext(logger, "run failed", "run_failed", attrs...)
		return Result{RunID: res.RunID}, err
	}
	p.deps.Metrics.ObserveRun("success")
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("sections", len(res.Document.Sections)),
		logging.Int("cache_hits", res.CacheHits),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}
