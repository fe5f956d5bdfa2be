package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/extract"
)

func parseFormCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "parse-form [FILE]",
		Short: "Extract structured fields from an ED record",
		Long:  `Reads an ED record as text from FILE, or stdin when FILE is "-" or omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read form: %w", err)
			}

			parsed, summary := engine.SummarizeForm(extract.DefaultPipeline(), string(data))
			out := cmd.OutOrStdout()
			if jsonOut {
				fields := make(map[string]float64, len(parsed))
				for f, v := range parsed {
					fields[string(f)] = v
				}
				return printJSON(out, map[string]any{"parsed": fields, "summary": summary})
			}

			for _, name := range parsed.Fields() {
				fmt.Fprintf(out, "%-28s %g\n", name, parsed[clinical.Field(name)])
			}
			fmt.Fprintf(out, "\n%s\n", summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}
