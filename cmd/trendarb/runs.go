// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lafarch/trendArbitrage/internal/report"
	"github.com/lafarch/trendArbitrage/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse the run history",
	Long: `Runs lists past analysis runs from the local run history. Use 'runs show'
to re-read one run's full ranked results without re-fetching.`,
	RunE: runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run's ranked results",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list (0: all)")
	runsShowCmd.Flags().Bool("json", false, "output results as JSON")

	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.Runs(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %8s  %8s  %s\n",
		"Run ID", "Started", "Keywords", "Degraded", "Partial")
	fmt.Println(strings.Repeat("-", 88))
	for _, r := range runs {
		partial := ""
		if r.Partial {
			partial = "yes"
		}
		fmt.Printf("%-36s  %-20s  %8d  %8d  %s\n",
			r.RunID, r.StartedAt.Format(time.DateTime), r.Keywords, r.Degraded, partial)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	batch, err := s.Batch(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return report.FormatJSON(batch, os.Stdout)
	}
	report.FormatTable(batch, os.Stdout)
	return nil
}
