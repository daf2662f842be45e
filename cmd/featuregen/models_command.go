package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"featuregen/internal/services/ollama"
)

type modelJSON struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	ModifiedAt    string `json:"modified_at"`
	Family        string `json:"family,omitempty"`
	ParameterSize string `json:"parameter_size,omitempty"`
	Configured    string `json:"configured_as,omitempty"`
}

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available to Ollama",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.backend(cfg)
			if err != nil {
				return err
			}
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}

			roles := map[string]string{}
			addRole := func(name, role string) {
				key := ollama.NormalizeModelName(name)
				if roles[key] != "" {
					roles[key] += ","
				}
				roles[key] += role
			}
			addRole(cfg.Models.Vision, "vision")
			addRole(cfg.Models.LLM, "llm")

			if asJSON {
				items := make([]modelJSON, 0, len(models))
				for _, m := range models {
					items = append(items, modelJSON{
						Name:          m.Name,
						Size:          m.Size,
						ModifiedAt:    m.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z"),
						Family:        m.Family,
						ParameterSize: m.ParameterSize,
						Configured:    roles[ollama.NormalizeModelName(m.Name)],
					})
				}
				return writeJSON(cmd, items)
			}

			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No models installed")
				return nil
			}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{
					m.Name,
					humanize.Bytes(uint64(m.Size)),
					humanize.Time(m.ModifiedAt),
					m.Family,
					m.ParameterSize,
					roles[ollama.NormalizeModelName(m.Name)],
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Size", "Modified", "Family", "Params", "Configured"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func joinNonEmpty(values []string, sep string) string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
