package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"featuregen/internal/services/ollama"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var pull bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Check that Ollama is running and the configured models are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.backend(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if err := client.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ollama at %s is not reachable (start it with `ollama serve`): %w", client.Host(), err)
			}
			fmt.Fprintf(out, "Ollama reachable at %s\n", client.Host())

			var missing []string
			for _, check := range []struct{ role, model string }{
				{"vision", cfg.Models.Vision},
				{"llm", cfg.Models.LLM},
			} {
				ok, err := client.HasModel(cmd.Context(), check.model)
				if err != nil {
					return fmt.Errorf("list models: %w", err)
				}
				status := "available"
				if !ok {
					status = "missing"
					missing = append(missing, check.model)
				}
				fmt.Fprintf(out, "  %-6s %-28s %s\n", check.role, check.model, status)
			}
			if len(missing) == 0 {
				fmt.Fprintln(out, "Ready")
				return nil
			}
			if !pull {
				for _, name := range missing {
					fmt.Fprintf(out, "Run `ollama pull %s` or re-run with --pull\n", name)
				}
				return errors.New("required models are missing")
			}
			for _, name := range missing {
				fmt.Fprintf(out, "Pulling %s\n", name)
				if err := client.PullModel(cmd.Context(), name, pullProgress(out)); err != nil {
					return fmt.Errorf("pull %s: %w", name, err)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, "Ready")
			return nil
		},
	}

	cmd.Flags().BoolVar(&pull, "pull", false, "Pull missing models")
	return cmd
}

// pullProgress prints one line per status change and overwrites the line
// while a layer downloads.
func pullProgress(out io.Writer) func(ollama.Progress) {
	var last string
	return func(p ollama.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(out, "\r  %s %s / %s", p.Status, humanize.Bytes(uint64(p.Completed)), humanize.Bytes(uint64(p.Total)))
			last = p.Status
			return
		}
		if p.Status != last {
			fmt.Fprintf(out, "\n  %s", p.Status)
			last = p.Status
		}
	}
}
