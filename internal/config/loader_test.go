// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	assert.Equal(t, "v-test", cfg.Version)
	assert.Equal(t, "files/input.parquet", cfg.Input.Path)
	assert.Equal(t, "files/output.parquet", cfg.Output.Path)
	assert.Equal(t, []string{"NULL", "N/A", ""}, cfg.Stages.NullValues)
	assert.Equal(t, []string{"date_column"}, cfg.Stages.TimestampColumns)
	assert.Equal(t, "UNSPECIFIED", cfg.Stages.DataSource)
	assert.Equal(t, AllStages, cfg.Stages.Enabled)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
logLevel: debug
input:
  path: in.csv
output:
  path: out.db
  table: cleaned
stages:
  enabled: [rename, strings]
  nullValues: ["-", ""]
  timestampColumns: [created_at, updated_at]
  dataSource: CRM
  stringConcurrency: 2
previewRows: 3
watch:
  debounce: 2s
  listen: ":9100"
`)
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "in.csv", cfg.Input.Path)
	assert.Equal(t, "cleaned", cfg.Output.Table)
	assert.Equal(t, []string{"rename", "strings"}, cfg.Stages.Enabled)
	assert.Equal(t, []string{"-", ""}, cfg.Stages.NullValues)
	assert.Equal(t, []string{"created_at", "updated_at"}, cfg.Stages.TimestampColumns)
	assert.Equal(t, "CRM", cfg.Stages.DataSource)
	assert.Equal(t, 2, cfg.Stages.StringConcurrency)
	assert.Equal(t, 3, cfg.PreviewRows)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, ":9100", cfg.Watch.Listen)
	assert.Equal(t, "*.parquet", cfg.Watch.Pattern)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "cfg.toml", `
logFormat = "console"

[input]
path = "data.jsonl"

[stages]
dataSource = "ERP"
nullValues = ["NULL"]
`)
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "data.jsonl", cfg.Input.Path)
	assert.Equal(t, "ERP", cfg.Stages.DataSource)
	assert.Equal(t, []string{"NULL"}, cfg.Stages.NullValues)
}

func TestLoad_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "cfg.yaml", "input:\n  path: a.csv\n  bogus: 1\n"},
		{"toml", "cfg.toml", "[input]\npath = \"a.csv\"\nbogus = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeFile(t, tt.file, tt.content), "dev").Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownConfigField)
		})
	}
}

func TestLoad_YAMLMultipleDocuments(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "cfg.json", "{}")
	_, err := NewLoader(path, "dev").Load()
	assert.ErrorIs(t, err, ErrUnsupportedConfigFormat)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "input:\n  path: from-file.csv\nstages:\n  dataSource: FILE\n")
	t.Setenv(EnvInput, "from-env.parquet")
	t.Setenv(EnvNullValues, `NULL, N/A, ""`)
	t.Setenv(EnvStringConcurrency, "8")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.parquet", cfg.Input.Path)
	assert.Equal(t, "FILE", cfg.Stages.DataSource)
	assert.Equal(t, []string{"NULL", "N/A", ""}, cfg.Stages.NullValues)
	assert.Equal(t, 8, cfg.Stages.StringConcurrency)
}

func TestLoad_OverrideWins(t *testing.T) {
	t.Setenv(EnvOutput, "env.parquet")
	cfg, err := NewLoader("", "dev").WithOverride(func(c *AppConfig) {
		c.Output.Path = "flag.csv"
	}).Load()
	require.NoError(t, err)
	assert.Equal(t, "flag.csv", cfg.Output.Path)
}

func TestLoad_InvalidDebounce(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "watch:\n  debounce: soon\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch.debounce")
}

func TestParseList(t *testing.T) {
	t.Setenv("TEST_LIST", ` a ,, b ,"" `)
	assert.Equal(t, []string{"a", "b", ""}, ParseList("TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, ParseList("TEST_LIST_UNSET", []string{"x"}))
}
