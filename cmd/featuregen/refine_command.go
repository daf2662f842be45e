package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"featuregen/internal/metrics"
	"featuregen/internal/output"
	"featuregen/internal/pipeline"
)

func newRefineCommand(ctx *commandContext) *cobra.Command {
	var (
		feedback     string
		feedbackFile string
		llmModel     string
		format       string
		target       string
		noCache      bool
	)

	cmd := &cobra.Command{
		Use:   "refine <document>",
		Short: "Revise a saved requirements document with feedback",
		Long:  "Re-generate a document written by `analyze` (Markdown, JSON, or YAML) so it incorporates your feedback while keeping its sections.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			text, err := readFeedback(feedback, feedbackFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			source := args[0]
			srcFormat, err := output.FormatFromPath(source)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(source)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			doc, err := output.Parse(data, srcFormat)
			if err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}

			opts := pipeline.OptionsFromConfig(cfg)
			opts.Format = srcFormat
			if v := strings.TrimSpace(format); v != "" {
				if opts.Format, err = output.ParseFormat(v); err != nil {
					return err
				}
			}
			if v := strings.TrimSpace(llmModel); v != "" {
				opts.TextModel = v
			}

			recorder := metrics.New()
			defer writeMetrics(cmd, cfg, recorder)
			p, cache, err := buildPipeline(ctx, cfg, opts, recorder, noCache)
			if err != nil {
				return err
			}
			defer cache.Close()

			res, err := p.Refine(cmd.Context(), doc, text)
			if err != nil {
				return err
			}
			if strings.TrimSpace(target) == "" {
				target = refinedPath(source, res.Format)
			}
			return emitResult(cmd, res, target, 0)
		},
	}

	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback to apply")
	cmd.Flags().StringVar(&feedbackFile, "feedback-file", "", "Read feedback from a file (\"-\" for stdin)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "Text model override")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (default: same as the input document)")
	cmd.Flags().StringVarP(&target, "output", "o", "", "Output file (\"-\" for stdout; default <document>-refined.<ext>)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the result cache")
	return cmd
}

func refinedPath(source string, f output.Format) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(source), stem+"-refined."+output.FileExtension(f))
}
