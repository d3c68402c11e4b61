package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arnecode/dropsync/internal/audit"
)

func newConflictsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List recent conflict-skips recorded by sync passes",
		Long: `Display paths that the reconciler skipped as conflicts during recent
sync passes (§7 "Conflict") instead of attempting last-writer-wins.

This is a read-only history: the audit log does not feed back into
reconciliation, so nothing here requires resolution to unblock sync — a
later pass naturally resolves a conflict once one side stops changing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConflicts(cmd.Context(), mustCLIContext(cmd.Context()), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent conflict-skips to show")

	return cmd
}

func runConflicts(ctx context.Context, cc *CLIContext, limit int) error {
	store, err := openAudit(cc)
	if err != nil {
		return err
	}
	defer store.Close()

	conflicts, err := store.ListConflicts(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing conflicts: %w", err)
	}

	if cc.Flags.JSON {
		printJSON(conflicts)
		return nil
	}

	if len(conflicts) == 0 {
		fmt.Println("No recorded conflict-skips.")
		return nil
	}

	printConflictsTable(conflicts)

	return nil
}

func printConflictsTable(conflicts []audit.ConflictRecord) {
	headers := []string{"DETECTED", "PATH", "REASON", "RUN"}
	rows := make([][]string, len(conflicts))

	for i, c := range conflicts {
		runID := c.RunID
		if len(runID) > conflictIDPrefixLen {
			runID = runID[:conflictIDPrefixLen]
		}

		rows[i] = []string{formatTime(c.DetectedAt), c.Path, c.Reason, runID}
	}

	printTable(os.Stdout, headers, rows)
}

// conflictIDPrefixLen is how much of a run ID to show in table output — 8
// characters is plenty for visual uniqueness without cluttering the table.
const conflictIDPrefixLen = 8
