// SPDX-License-Identifier: MIT

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*AppConfig) {}},
		{name: "bad log level", mutate: func(c *AppConfig) { c.LogLevel = "loud" }, wantErr: "LogLevel"},
		{name: "bad log format", mutate: func(c *AppConfig) { c.LogFormat = "xml" }, wantErr: "LogFormat"},
		{name: "empty input", mutate: func(c *AppConfig) { c.Input.Path = "" }, wantErr: "Input.Path"},
		{name: "undetectable format", mutate: func(c *AppConfig) { c.Output.Path = "out.xlsx" }, wantErr: "Output.Format"},
		{name: "explicit format wins", mutate: func(c *AppConfig) { c.Output.Path = "out.dat"; c.Output.Format = "csv" }},
		{name: "bad sqlite table", mutate: func(c *AppConfig) { c.Output.Path = "out.db"; c.Output.Table = "x; drop" }, wantErr: "Output.Table"},
		{name: "unknown stage", mutate: func(c *AppConfig) { c.Stages.Enabled = []string{"rename", "explode"} }, wantErr: "unknown stage"},
		{name: "duplicate stage", mutate: func(c *AppConfig) { c.Stages.Enabled = []string{"rename", "rename"} }, wantErr: "listed twice"},
		{name: "no stages", mutate: func(c *AppConfig) { c.Stages.Enabled = []string{} }},
		{name: "concurrency zero", mutate: func(c *AppConfig) { c.Stages.StringConcurrency = 0 }, wantErr: "StringConcurrency"},
		{name: "bad delimiter", mutate: func(c *AppConfig) { c.Input.CSVDelimiter = ";;" }, wantErr: "CSVDelimiter"},
		{name: "bad listen", mutate: func(c *AppConfig) { c.Watch.Listen = "nope" }, wantErr: "Watch.Listen"},
		{name: "ledger parent missing", mutate: func(c *AppConfig) { c.RunStore = "/nonexistent-standardise-dir/runs.db" }, wantErr: "RunStore"},
		{name: "textfile parent missing", mutate: func(c *AppConfig) { c.MetricsTextfile = "/nonexistent-standardise-dir/x.prom" }, wantErr: "MetricsTextfile"},
		{name: "watch dir missing", mutate: func(c *AppConfig) { c.Watch.Dir = "/nonexistent-standardise-dir" }, wantErr: "Watch.Dir"},
		{name: "bad pattern", mutate: func(c *AppConfig) { c.Watch.Pattern = "[" }, wantErr: "Watch.Pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
