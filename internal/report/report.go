// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders ranked opportunity batches for humans and
// machines: console tables, top-N summaries, JSON, YAML, and CSV files.
// See docs/ARCHITECTURE § Reporting.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

// FormatTable writes the batch as a human-readable table to w. Degraded
// results are flagged with an asterisk next to the score.
func FormatTable(batch types.Batch, w io.Writer) {
	if len(batch.Results) == 0 {
		fmt.Fprintln(w, "No opportunities found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-32s  %-7s  %-10s  %-10s  %8s  %8s\n",
		"Rank", "Keyword", "Score", "Verdict", "Tier", "Supply", "Momentum")
	fmt.Fprintln(w, strings.Repeat("-", 92))

	for i, r := range batch.Results {
		keyword := r.Keyword
		if len(keyword) > 32 {
			keyword = keyword[:29] + "..."
		}
		score := fmt.Sprintf("%.1f", r.Score)
		if r.Degraded() {
			score += "*"
		}
		fmt.Fprintf(w, "%-4d  %-32s  %-7s  %-10s  %-10s  %8d  %8.2f\n",
			i+1, keyword, score, r.Verdict, r.Tier, r.TotalSupply, r.Stats.Momentum)
	}

	fmt.Fprintf(w, "\n%d keywords analyzed", len(batch.Results))
	if batch.Degraded > 0 {
		fmt.Fprintf(w, " (* %d with incomplete data)", batch.Degraded)
	}
	if batch.Partial {
		fmt.Fprint(w, " [partial run]")
	}
	fmt.Fprintln(w)
}

// Summary writes the top n opportunities with their diagnoses to w. It
// never lists results that scored zero for lack of data.
func Summary(batch types.Batch, n int, w io.Writer) {
	var top []types.OpportunityResult
	for _, r := range batch.Results {
		if r.Verdict == types.VerdictInsufficientData {
			continue
		}
		top = append(top, r)
		if len(top) == n {
			break
		}
	}
	if len(top) == 0 {
		fmt.Fprintln(w, "No opportunities to summarize.")
		return
	}

	fmt.Fprintf(w, "Top %d opportunities:\n\n", len(top))
	for i, r := range top {
		fmt.Fprintf(w, "%d. %s — %.1f (%s)\n", i+1, r.Keyword, r.Score, r.Verdict)
		fmt.Fprintf(w, "   %s\n", r.Diagnosis)
	}
}

// FormatJSON writes the batch as indented JSON to w.
func FormatJSON(batch types.Batch, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}

// WriteYAML writes the batch as YAML to w.
func WriteYAML(batch types.Batch, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(batch)
}

var csvHeader = []string{
	"rank", "keyword", "score", "verdict", "tier", "total_supply",
	"supply_unknown", "mean_interest", "momentum", "velocity",
	"degraded", "diagnosis",
}

// WriteCSV writes the batch as a CSV report at path, one row per result
// in rank order. Intermediate directories are created automatically.
func WriteCSV(batch types.Batch, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for i, r := range batch.Results {
		row := []string{
			strconv.Itoa(i + 1),
			r.Keyword,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			string(r.Verdict),
			string(r.Tier),
			strconv.Itoa(r.TotalSupply),
			strings.Join(r.SupplyUnknown, ";"),
			strconv.FormatFloat(r.Stats.MeanInterest, 'f', 2, 64),
			strconv.FormatFloat(r.Stats.Momentum, 'f', 4, 64),
			strconv.FormatFloat(r.Stats.Velocity, 'f', 4, 64),
			strconv.FormatBool(r.Degraded()),
			r.Diagnosis,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReportPath builds the default CSV report filename for a run, e.g.
// reports/opportunities_20260501_153000.csv.
func ReportPath(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("opportunities_%s.csv", at.Format("20060102_150405")))
}
