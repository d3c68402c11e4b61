package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arnecode/dropsync/internal/audit"
)

func newStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and the most recent sync passes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), mustCLIContext(cmd.Context()), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent runs to show")

	return cmd
}

// statusOutput is the JSON-serializable representation of `status`.
type statusOutput struct {
	LocalFolder   string            `json:"local_folder"`
	DropboxFolder string            `json:"dropbox_folder"`
	IntervalSecs  int               `json:"interval_seconds"`
	Debug         bool              `json:"debug"`
	Runs          []audit.RunRecord `json:"runs"`
}

func runStatus(ctx context.Context, cc *CLIContext, limit int) error {
	store, err := openAudit(cc)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if cc.Flags.JSON {
		printJSON(statusOutput{
			LocalFolder:   cc.Cfg.LocalFolder,
			DropboxFolder: cc.Cfg.DropboxFolder,
			IntervalSecs:  cc.Cfg.IntervalSeconds,
			Debug:         cc.Cfg.Debug,
			Runs:          runs,
		})

		return nil
	}

	printStatusText(cc, runs)

	return nil
}

func printStatusText(cc *CLIContext, runs []audit.RunRecord) {
	fmt.Printf("Local folder:   %s\n", cc.Cfg.LocalFolder)
	fmt.Printf("Remote folder:  %s\n", displayRemoteFolder(cc.Cfg.DropboxFolder))
	fmt.Printf("Interval:       %ds\n", cc.Cfg.IntervalSeconds)
	fmt.Printf("Debug mode:     %t\n", cc.Cfg.Debug)
	fmt.Println()

	if len(runs) == 0 {
		fmt.Println("No recorded sync passes yet.")
		return
	}

	headers := []string{"WHEN", "DUR", "UP", "DOWN", "RDEL", "LDEL", "CONFLICTS", "FAILED"}
	rows := make([][]string, len(runs))

	for i, r := range runs {
		rows[i] = []string{
			formatTime(r.StartedAt),
			r.RunSummary.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%d", r.RunSummary.Uploads),
			fmt.Sprintf("%d", r.RunSummary.Downloads),
			fmt.Sprintf("%d", r.RunSummary.RemoteDeletes),
			fmt.Sprintf("%d", r.RunSummary.LocalDeletes),
			fmt.Sprintf("%d", r.RunSummary.ConflictSkips),
			fmt.Sprintf("%d", r.RunSummary.Failed),
		}
	}

	printTable(os.Stdout, headers, rows)
}

func displayRemoteFolder(dropboxFolder string) string {
	if dropboxFolder == "" {
		return "/"
	}

	return dropboxFolder
}
