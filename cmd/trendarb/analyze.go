// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lafarch/trendArbitrage/internal/engine"
	"github.com/lafarch/trendArbitrage/internal/report"
	"github.com/lafarch/trendArbitrage/internal/store"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [keywords...]",
	Short: "Score keywords by demand-versus-supply opportunity",
	Long: `Analyze fetches search-interest history and marketplace listing counts
for each keyword, scores the opportunity, and prints the ranked results.
Keywords are passed as arguments or comma-separated via --keywords.

Results are persisted to the run history; see 'trendarb runs'.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("keywords", "", "keywords to analyze (comma-separated)")
	analyzeCmd.Flags().String("geo", "", "two-letter region code (default from config)")
	addAnalyzeOutputFlags(analyzeCmd)

	rootCmd.AddCommand(analyzeCmd)
}

// addAnalyzeOutputFlags registers the flags runAnalyze reads, so every
// command that forwards to it (trending --analyze) offers the same
// output controls.
func addAnalyzeOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("timeframe", "", "interest history window (default from config, e.g. \"today 3-m\")")
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().Bool("yaml", false, "output results as YAML")
	cmd.Flags().String("csv", "", "also write a CSV report to this path (empty: skip)")
	cmd.Flags().Int("top", 5, "number of opportunities in the summary")
	cmd.Flags().Bool("no-store", false, "skip persisting the run")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	keywords := args
	if flagKeywords, _ := cmd.Flags().GetString("keywords"); flagKeywords != "" {
		keywords = append(keywords, strings.Split(flagKeywords, ",")...)
	}
	if len(engine.NormalizeKeywords(keywords)) == 0 {
		return fmt.Errorf("no keywords given: pass them as arguments or via --keywords")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, _, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	timeframe, _ := cmd.Flags().GetString("timeframe")
	if timeframe == "" {
		timeframe = cfg.Trends.Timeframe
	}
	geo, _ := cmd.Flags().GetString("geo")
	if geo == "" {
		geo = cfg.Trends.Geo
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := eng.Run(ctx, types.RunRequest{
		Keywords:  keywords,
		Timeframe: timeframe,
		Geo:       geo,
	})
	if err != nil && !errors.Is(err, engine.ErrPartialRun) {
		return err
	}
	if batch.Partial {
		fmt.Fprintln(os.Stderr, "Interrupted: reporting the keywords that finished.")
	}

	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		if err := saveBatch(batch, cfg.Store); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: run not persisted: %v\n", err)
		}
	}

	if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
		if csvPath == "auto" {
			csvPath = report.ReportPath("reports", time.Now().UTC())
		}
		if err := report.WriteCSV(batch, csvPath); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "CSV report written:", csvPath)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return report.FormatJSON(batch, os.Stdout)
	}
	if yamlOutput, _ := cmd.Flags().GetBool("yaml"); yamlOutput {
		return report.WriteYAML(batch, os.Stdout)
	}

	report.FormatTable(batch, os.Stdout)
	if top, _ := cmd.Flags().GetInt("top"); top > 0 {
		fmt.Println()
		report.Summary(batch, top, os.Stdout)
	}
	return nil
}

func saveBatch(batch types.Batch, cfg types.StoreConfig) error {
	s, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(context.Background(), batch)
}
