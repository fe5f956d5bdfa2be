package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ofeng1/datathon/internal/logging"
	"github.com/ofeng1/datathon/internal/replay"
	"github.com/ofeng1/datathon/internal/session"
)

const timeLayout = "2006-01-02T15:04:05Z"

var (
	dbFlag   string
	jsonFlag bool
	lastFlag int
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect stored sessions, state versions and the turn log",
	}
	cmd.PersistentFlags().StringVar(&dbFlag, "db", "", "database path (overrides config)")
	cmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output as JSON instead of a table")
	cmd.PersistentFlags().IntVar(&lastFlag, "last", 20, "show N most recent rows")

	cmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: withStore(func(store *session.Store, out io.Writer, args []string) error {
			infos, err := store.ListSessions(lastFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(out, infos)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tACTIVE\tVERSIONS\tTURNS\tUPDATED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					info.ID, shortID(info.ActiveVersion), info.Versions, info.Turns, info.UpdatedAt.Format(timeLayout))
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "versions SESSION",
		Short: "List a session's state versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(store *session.Store, out io.Writer, args []string) error {
			recs, err := store.ListVersions(args[0], lastFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(out, recs)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tPARENT\tFIELDS\tCREATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					shortID(r.VersionID), shortID(r.ParentID), len(r.Snapshot.Fields), r.CreatedAt.Format(timeLayout))
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version VERSION_ID",
		Short: "Show one state version in full",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(store *session.Store, out io.Writer, args []string) error {
			rec, err := store.GetVersion(args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(out, rec)
			}
			fmt.Fprintf(out, "Version:  %s\n", rec.VersionID)
			fmt.Fprintf(out, "Session:  %s\n", rec.SessionID)
			fmt.Fprintf(out, "Parent:   %s\n", rec.ParentID)
			fmt.Fprintf(out, "Created:  %s\n", rec.CreatedAt.Format(timeLayout))
			fmt.Fprintf(out, "Inferred: %v\n\nFields:\n", rec.Snapshot.InferredTriage)
			names := make([]string, 0, len(rec.Snapshot.Fields))
			for name := range rec.Snapshot.Fields {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-28s %g\n", name, rec.Snapshot.Fields[name])
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "turns SESSION",
		Short: "Show a session's turn log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(store *session.Store, out io.Writer, args []string) error {
			turns, err := logging.ListTurns(store.DB(), args[0], lastFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(out, turns)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tINTENT\tOUTCOME\tVERSION\tMS\tMESSAGE")
			for _, t := range turns {
				var rec logging.TurnRecord
				_ = json.Unmarshal([]byte(t.DetailJSON), &rec)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					t.CreatedAt.Format(timeLayout), t.Intent, t.Outcome, shortID(t.VersionID), t.DurationMS, truncate(rec.Message, 60))
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback SESSION VERSION_ID",
		Short: "Make an earlier version the session's active state",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(store *session.Store, out io.Writer, args []string) error {
			if err := store.Rollback(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "session %s now at %s\n", args[0], args[1])
			return nil
		}),
	})

	var outPath string
	export := &cobra.Command{
		Use:   "export SESSION",
		Short: "Write a session's turn log as a replay fixture",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(store *session.Store, out io.Writer, args []string) error {
			f, err := exportFixture(store, args[0], lastFlag)
			if err != nil {
				return err
			}
			if outPath == "" {
				return printJSON(out, f)
			}
			data, err := json.MarshalIndent(f, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal fixture: %w", err)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write fixture: %w", err)
			}
			fmt.Fprintf(out, "wrote %d turns to %s\n", len(f.Turns), outPath)
			return nil
		}),
	}
	export.Flags().StringVar(&outPath, "out", "", "output fixture path (default stdout)")
	cmd.AddCommand(export)

	return cmd
}

// withStore opens the configured database around fn.
func withStore(fn func(store *session.Store, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path := dbFlag
		if path == "" {
			cfg, _, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path = cfg.DBPath
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		store, err := session.NewStore(path)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		return fn(store, cmd.OutOrStdout(), args)
	}
}

// #region export

// exportFixture rebuilds a session as a replay fixture. Each turn expects
// its logged intent and outcome; turns that committed a version also expect
// that version's fields, and their merged fields are restored from it.
func exportFixture(store *session.Store, sessionID string, last int) (*replay.Fixture, error) {
	turns, err := logging.ListTurns(store.DB(), sessionID, last)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
	}
	slices.Reverse(turns)

	f := &replay.Fixture{
		Description: fmt.Sprintf("exported from session %s on %s", sessionID, time.Now().UTC().Format(timeLayout)),
		StartState:  map[string]float64{},
	}
	if n, err := countTurns(store, sessionID); err == nil && n > len(turns) {
		f.Description += fmt.Sprintf(" (last %d of %d turns; start state may differ)", len(turns), n)
	}

	for i, t := range turns {
		var rec logging.TurnRecord
		if err := json.Unmarshal([]byte(t.DetailJSON), &rec); err != nil {
			return nil, fmt.Errorf("turn %d detail: %w", i+1, err)
		}
		id := fmt.Sprintf("t%d", i+1)
		ft := replay.FixtureTurn{TurnID: id, Message: rec.Message}
		exp := replay.Expectation{TurnID: id, Intent: t.Intent, Outcome: t.Outcome}

		if t.VersionID != "" {
			v, err := store.GetVersion(t.VersionID)
			if err != nil {
				return nil, fmt.Errorf("turn %d version: %w", i+1, err)
			}
			exp.Fields = v.Snapshot.Fields
			for _, name := range rec.Merged {
				if val, ok := v.Snapshot.Fields[name]; ok {
					if ft.MergeState == nil {
						ft.MergeState = map[string]float64{}
					}
					ft.MergeState[name] = val
				}
			}
		}
		f.Turns = append(f.Turns, ft)
		f.Expected = append(f.Expected, exp)
	}
	return f, nil
}

func countTurns(store *session.Store, sessionID string) (int, error) {
	var n int
	err := store.DB().QueryRow(`SELECT COUNT(*) FROM turn_log WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// #endregion export

// #region output

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// #endregion output
