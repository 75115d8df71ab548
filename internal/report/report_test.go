// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

func sampleBatch() types.Batch {
	return types.Batch{
		RunID:      "run-1",
		StartedAt:  time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 5, 1, 15, 31, 0, 0, time.UTC),
		Results: []types.OpportunityResult{
			{
				Keyword:     "bluey toys",
				Score:       72.4,
				Verdict:     types.VerdictStrongBuy,
				Tier:        types.TierBlueOcean,
				TotalSupply: 57,
				Stats:       types.DemandStats{MeanInterest: 61.5, Momentum: 1.10, Velocity: 0.42},
				Diagnosis:   "strong demand with little competition",
			},
			{
				Keyword:        "pokemon plush",
				Score:          31.2,
				Verdict:        types.VerdictRisky,
				Tier:           types.TierExtreme,
				TotalSupply:    48000,
				SupplyUnknown:  []string{"amazon"},
				DegradedSupply: true,
				Stats:          types.DemandStats{MeanInterest: 80, Momentum: 0.02},
				Diagnosis:      "market saturation is the dominant limiting factor",
			},
			{
				Keyword:   "mystery gadget",
				Verdict:   types.VerdictInsufficientData,
				Tier:      types.TierBlueOcean,
				Stats:     types.DemandStats{InsufficientData: true},
				Diagnosis: "no interest history available for this keyword",
			},
		},
		Degraded: 2,
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleBatch(), &buf)
	s := buf.String()

	assert.Contains(t, s, "bluey toys")
	assert.Contains(t, s, "pokemon plush")
	assert.Contains(t, s, "72.4")
	// Degraded results are starred.
	assert.Contains(t, s, "31.2*")
	assert.Contains(t, s, "3 keywords analyzed")
	assert.Contains(t, s, "2 with incomplete data")
	assert.NotContains(t, s, "[partial run]")
}

func TestFormatTablePartial(t *testing.T) {
	batch := sampleBatch()
	batch.Partial = true

	var buf bytes.Buffer
	FormatTable(batch, &buf)
	assert.Contains(t, buf.String(), "[partial run]")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.Batch{}, &buf)
	assert.Contains(t, buf.String(), "No opportunities found.")
}

func TestSummarySkipsInsufficientData(t *testing.T) {
	var buf bytes.Buffer
	Summary(sampleBatch(), 5, &buf)
	s := buf.String()

	assert.Contains(t, s, "Top 2 opportunities:")
	assert.Contains(t, s, "1. bluey toys — 72.4 (strong_buy)")
	assert.Contains(t, s, "strong demand with little competition")
	assert.NotContains(t, s, "mystery gadget")
}

func TestSummaryLimit(t *testing.T) {
	var buf bytes.Buffer
	Summary(sampleBatch(), 1, &buf)
	s := buf.String()

	assert.Contains(t, s, "bluey toys")
	assert.NotContains(t, s, "pokemon plush")
}

func TestSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	Summary(types.Batch{}, 5, &buf)
	assert.Contains(t, buf.String(), "No opportunities to summarize.")
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleBatch(), &buf))

	var decoded types.Batch
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, "bluey toys", decoded.Results[0].Keyword)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(sampleBatch(), &buf))

	assert.Contains(t, buf.String(), "run_id: run-1")
	assert.Contains(t, buf.String(), "keyword: bluey toys")
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.csv")
	require.NoError(t, WriteCSV(sampleBatch(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 results

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "bluey toys", rows[1][1])
	assert.Equal(t, "72.40", rows[1][2])
	assert.Equal(t, "amazon", rows[2][6])
	assert.Equal(t, "true", rows[2][10])
}

func TestReportPath(t *testing.T) {
	at := time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)
	got := ReportPath("reports", at)
	assert.Equal(t, filepath.Join("reports", "opportunities_20260501_153000.csv"), got)
	assert.True(t, strings.HasSuffix(got, ".csv"))
}
