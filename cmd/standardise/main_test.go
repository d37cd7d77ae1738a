// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Date Column\n ana ,2024-02-03\nANA,2024-02-03\n"), 0o600))
	return path
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "standardise ")
}

func TestRun_UnknownSubcommand(t *testing.T) {
	code, _, errOut := runCLI(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "Unknown subcommand: frobnicate")
}

func TestRun_BadFlag(t *testing.T) {
	code, _, _ := runCLI(t, "run", "-no-such-flag")
	assert.Equal(t, exitUsage, code)
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.jsonl")
	ledger := filepath.Join(dir, "runs.db")
	t.Setenv("STANDARDISE_RUN_STORE", ledger)

	code, _, _ := runCLI(t, "-in", in, "-out", out, "-log-level", "error")
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"ANA"`)
	assert.Equal(t, 1, bytes.Count(data, []byte("\n")))

	code, hist, _ := runCLI(t, "history", "-n", "5")
	require.Equal(t, exitOK, code)
	assert.Contains(t, hist, "RUN ID")
	assert.Contains(t, hist, "success")
	assert.Contains(t, hist, in)
}

func TestRun_MissingInputExitsOne(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := runCLI(t, "run",
		"-in", filepath.Join(dir, "missing.csv"),
		"-out", filepath.Join(dir, "out.parquet"),
		"-log-level", "error")
	assert.Equal(t, exitFailure, code)
	assert.NoFileExists(t, filepath.Join(dir, "out.parquet"))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "standardise.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("input:\n  path: in.csv\noutput:\n  path: out.jsonl\n"), 0o600))

	code, out, _ := runCLI(t, "validate", "-config", cfgPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "configuration OK: in.csv -> out.jsonl")

	require.NoError(t, os.WriteFile(cfgPath, []byte("input:\n  path: in.csv\nbogus: 1\n"), 0o600))
	code, _, errOut := runCLI(t, "validate", "-config", cfgPath)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "Configuration error")

	code, _, _ = runCLI(t, "validate", "-out-format", "xlsx")
	assert.Equal(t, exitFailure, code)
}

func TestHistory_NoLedger(t *testing.T) {
	t.Setenv("STANDARDISE_RUN_STORE", "")
	code, _, errOut := runCLI(t, "history")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "no run ledger configured")
}
