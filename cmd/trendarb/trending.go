// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Discover trending search keywords",
	Long: `Trending lists the demand provider's currently trending searches for a
region. Use --analyze to immediately score them instead of just listing.`,
	RunE: runTrending,
}

func init() {
	trendingCmd.Flags().String("geo", "", "two-letter region code (default from config)")
	trendingCmd.Flags().Bool("analyze", false, "score the trending keywords instead of listing them")
	addAnalyzeOutputFlags(trendingCmd)

	rootCmd.AddCommand(trendingCmd)
}

func runTrending(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, trends, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	geo, _ := cmd.Flags().GetString("geo")
	if geo == "" {
		geo = cfg.Trends.Geo
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keywords, err := trends.Trending(ctx, geo)
	if err != nil {
		return fmt.Errorf("fetching trending searches: %w", err)
	}
	if len(keywords) == 0 {
		fmt.Println("No trending searches found.")
		return nil
	}

	if doAnalyze, _ := cmd.Flags().GetBool("analyze"); doAnalyze {
		return runAnalyze(cmd, keywords)
	}

	for i, kw := range keywords {
		fmt.Printf("%2d. %s\n", i+1, kw)
	}
	return nil
}
