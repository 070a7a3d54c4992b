package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/cognitive/internal/models"
)

// NewHistoryCommand creates the 'cognitive history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dispatch runs",
		Long: `List the most recent dispatch runs recorded in the run history database
(history_db, default .cognitive/history.db), newest first, followed by a count
per status.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 = all)")
	cmd.Flags().String("history", "", "Run history database path")
	cmd.Flags().String("format", "text", "Output format: text or json")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format); err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("history") {
		cfg.HistoryDB, _ = cmd.Flags().GetString("history")
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("run history is disabled (history_db is empty)")
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	counts, err := store.CountByStatus(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), struct {
			Runs   []models.RunRecord    `json:"runs"`
			Counts map[models.Status]int `json:"counts"`
		}{Runs: runs, Counts: counts})
	}

	printRuns(cmd.OutOrStdout(), runs, counts)
	return nil
}

func printRuns(out io.Writer, runs []models.RunRecord, counts map[models.Status]int) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}

	fmt.Fprintf(out, "%-20s  %-12s  %-4s  %-8s  %-8s  %9s  %s\n", "TIME", "TOOL", "MODE", "STATUS", "PROVIDER", "DURATION", "ERROR")
	for _, r := range runs {
		fmt.Fprintf(out, "%-20s  %-12s  %-4s  %-8s  %-8s  %9s  %s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(r.Tool, 12),
			r.Mode,
			r.Status,
			dash(r.Provider),
			r.Duration.Round(time.Millisecond),
			r.Error,
		)
	}

	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", s, counts[models.Status(s)]))
	}
	fmt.Fprintf(out, "\nTotals: %s\n", strings.Join(parts, " "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
