package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ofeng1/datathon/internal/session"
)

func chatCmd() *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive assistant on the terminal",
		Long: `Starts a single-patient conversation. Type "new patient" to reset,
and quit, exit or q to leave. With --persist the session is stored in the
configured database and can be inspected later.`,
		Args: cobra.NoArgs,
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

			var store *session.Store
			if persist {
				store, err = session.NewStore(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer store.Close()
			}
			mgr := session.NewManager(eng, store, logger)
			return runChat(cmd.Context(), mgr, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", false, "store the session in the configured database")
	return cmd
}

// #region repl

// runChat greets, then answers each line until a quit word or EOF.
func runChat(ctx context.Context, mgr *session.Manager, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := mgr.Turn(ctx, "", "hello", nil)
	if err != nil {
		return err
	}
	sessionID := res.SessionID
	fmt.Fprintf(out, "%s\n\n", res.Turn.Reply)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		res, err := mgr.Turn(ctx, sessionID, line, nil)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n\n", res.Turn.Reply)
	}
	fmt.Fprintln(out, "\nGoodbye!")
	return scanner.Err()
}

// #endregion repl
