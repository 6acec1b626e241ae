package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
	"github.com/warp/residency-engine/store/sqlite"
)

const testLedger = `
meta:
  count_method: inclusive
stays:
  - {country: GB, entry: 2024-01-01, exit: 2024-06-30}
  - {country: CN, entry: 2024-07-05, exit: 2024-08-31}
thresholds:
  uk:
    rolling_days_window: 365
    rolling_day_threshold: 183
    tax_year: {starts_month: 4, starts_day: 6}
  cn:
    calendar_year_day_threshold: 183
    six_year_rule: {enabled: true}
`

func writeLedger(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "presence_ledger.v3.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLedger), 0o644))
	return dir, path
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.toml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCmd_WritesFourDocuments(t *testing.T) {
	dir, ledger := writeLedger(t)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, dir, "report", "--ledger", ledger, "--as-of", "2024-06-30", "--out", outDir)
	require.NoError(t, err)

	for _, name := range []string{FileKPI, FileThresholds, FileAdvisor, FileAutopilot} {
		assert.Contains(t, out, name)
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	data, err := os.ReadFile(filepath.Join(outDir, FileAutopilot))
	require.NoError(t, err)

	var autopilot struct {
		Assumptions struct {
			StartDay    string `json:"start_day"`
			CountMethod string `json:"count_method"`
		} `json:"assumptions"`
		Jurisdictions []struct {
			Country   string                    `json:"country"`
			Threshold presence.SimulationResult `json:"threshold"`
		} `json:"jurisdictions"`
	}
	require.NoError(t, json.Unmarshal(data, &autopilot))
	assert.Equal(t, "2024-07-01", autopilot.Assumptions.StartDay)
	assert.Equal(t, "inclusive", autopilot.Assumptions.CountMethod)

	// 182 GB days by 2024-06-30; presence from 2024-07-01 makes it 183.
	require.Len(t, autopilot.Jurisdictions, 2)
	gb := autopilot.Jurisdictions[0].Threshold
	require.True(t, gb.Reached)
	assert.Equal(t, generic.NewDate(2024, time.July, 1), *gb.TriggerDate)
	assert.Equal(t, 0, gb.DaysForward)
}

func TestCountCmd(t *testing.T) {
	dir, ledger := writeLedger(t)

	// Jurisdiction window
	out, err := run(t, dir, "count", "--ledger", ledger, "--country", "gb", "--as-of", "2024-06-30")
	require.NoError(t, err)

	var counted struct {
		Days       int `json:"days"`
		Evaluation struct {
			Status string `json:"status"`
		} `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &counted))
	assert.Equal(t, 182, counted.Days)
	assert.Equal(t, "APPROACHING", counted.Evaluation.Status)

	// Explicit range
	out, err = run(t, dir, "count", "--ledger", ledger, "--country", "CN", "--from", "2024-08-01", "--to", "2024-09-15")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &counted))
	assert.Equal(t, 31, counted.Days)
}

func TestCountCmd_Errors(t *testing.T) {
	dir, ledger := writeLedger(t)

	_, err := run(t, dir, "count", "--ledger", ledger, "--country", "GB", "--as-of", "2024-02-30")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)

	_, err = run(t, dir, "count", "--ledger", ledger, "--country", "FR")
	assert.True(t, generic.IsNotFound(err))

	_, err = run(t, dir, "count", "--ledger", ledger)
	assert.Error(t, err, "country is required")

	_, err = run(t, dir, "count", "--ledger", filepath.Join(dir, "nope.yaml"), "--country", "GB")
	assert.Error(t, err)
}

func TestSimulateCmd(t *testing.T) {
	dir, ledger := writeLedger(t)

	out, err := run(t, dir, "simulate", "--ledger", ledger, "--country", "GB",
		"--from", "2024-07-01", "--target", "184")
	require.NoError(t, err)

	var result presence.SimulationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.True(t, result.Reached)
	assert.Equal(t, generic.NewDate(2024, time.July, 2), *result.TriggerDate)
	assert.Equal(t, 1, result.DaysForward)

	// Buffer target, tiny horizon: not reached is still a successful run
	out, err = run(t, dir, "simulate", "--ledger", ledger, "--country", "CN",
		"--from", "2024-09-01", "--buffer", "--horizon", "3")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Reached)
	assert.Equal(t, presence.DefaultBuffer, result.Target)
	assert.Equal(t, 3, result.HorizonDays)
}

func TestImportCmd(t *testing.T) {
	dir, ledger := writeLedger(t)
	dbPath := filepath.Join(dir, "presence.db")

	out, err := run(t, dir, "import", "--ledger", ledger, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 stays, 2 jurisdictions")

	// Re-import with reset does not duplicate
	_, err = run(t, dir, "import", "--ledger", ledger, "--db", dbPath, "--reset")
	require.NoError(t, err)

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	stays, err := store.ListStays(context.Background())
	require.NoError(t, err)
	assert.Len(t, stays, 2)

	records, err := store.ListJurisdictions(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
