package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"featuregen/internal/templates"
)

type templateJSON struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source"`
	Path        string   `json:"path,omitempty"`
	Sections    []string `json:"sections"`
	TechStack   []string `json:"tech_stack_defaults,omitempty"`
}

func toTemplateJSON(t templates.Template) templateJSON {
	return templateJSON{
		Key:         t.Key,
		Name:        t.Name,
		Description: t.Description,
		Source:      string(t.Source),
		Path:        t.Path,
		Sections:    t.Sections,
		TechStack:   t.TechStackDefaults,
	}
}

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List requirements templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			list, warnings := ctx.resolver(cfg).List()
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}

			if asJSON {
				items := make([]templateJSON, 0, len(list))
				for _, t := range list {
					items = append(items, toTemplateJSON(t))
				}
				return writeJSON(cmd, items)
			}

			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{t.Key, t.Name, strconv.Itoa(len(t.Sections)), string(t.Source), t.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Name", "Sections", "Source", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.AddCommand(newTemplatesShowCommand(ctx))
	return cmd
}

func newTemplatesShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a template's sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			res := ctx.resolver(cfg).Resolve(args[0])
			if res.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", res.Warning)
			}
			t := res.Template
			if asJSON {
				return writeJSON(cmd, toTemplateJSON(t))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, %s)\n", t.Name, t.Key, t.Source)
			if t.Description != "" {
				fmt.Fprintf(out, "%s\n", t.Description)
			}
			if stack := joinNonEmpty(t.TechStackDefaults, ", "); stack != "" {
				fmt.Fprintf(out, "Tech stack defaults: %s\n", stack)
			}
			fmt.Fprintln(out, "Sections:")
			for i, s := range t.Sections {
				fmt.Fprintf(out, "  %d. %s\n", i+1, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
