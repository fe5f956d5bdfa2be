package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ofeng1/datathon/internal/replay"
)

var errMismatch = errors.New("replay expectations failed")

func replayCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "replay FIXTURE...",
		Short: "Replay conversation fixtures through the engine",
		Long: `Runs each fixture's turns against a fresh state and checks the recorded
expectations. Exits non-zero when any expectation fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			eng, h, err := openEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer h.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				results, sum, mismatches, err := replay.Run(cmd.Context(), eng, f)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printReplay(out, path, f, results, sum, mismatches, verbose)
				if len(mismatches) > 0 {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w in %d of %d fixtures", errMismatch, failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every turn")
	return cmd
}

func printReplay(out io.Writer, path string, f *replay.Fixture, results []replay.Result, sum replay.Summary, mismatches []replay.Mismatch, verbose bool) {
	status := "PASS"
	if len(mismatches) > 0 {
		status = "FAIL"
	}
	fmt.Fprintf(out, "%s  %s", status, path)
	if f.Description != "" {
		fmt.Fprintf(out, "  (%s)", f.Description)
	}
	fmt.Fprintln(out)

	if verbose {
		for _, r := range results {
			risk := "-"
			if r.Risk != nil {
				risk = fmt.Sprintf("%s %.1f%% %s", r.Risk.Task, r.Risk.Probability*100, r.Level)
			}
			fmt.Fprintf(out, "  %-6s %-8s %-18s fields=%-3d %s\n", r.TurnID, r.Intent, r.Outcome, len(r.Fields), risk)
		}
	}
	for _, m := range mismatches {
		fmt.Fprintf(out, "  - %s\n", m)
	}
	fmt.Fprintf(out, "  turns=%d assessed=%d answered=%d fixed=%d degraded=%d state_changes=%d\n",
		sum.TotalTurns, sum.Assessed, sum.Answered, sum.Fixed, sum.Degraded, sum.StateChanges)
}
