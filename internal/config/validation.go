// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/standardise/internal/dataio"
	"github.com/ManuGH/standardise/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package.
// It does not require the input to exist: a missing input is a run failure,
// not a configuration error.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("LogLevel", cfg.LogLevel)
	v.OneOf("LogFormat", cfg.LogFormat, []string{"json", "console"})

	validateDataset(v, "Input", cfg.Input)
	validateDataset(v, "Output", cfg.Output)

	known := make(map[string]struct{}, len(AllStages))
	for _, s := range AllStages {
		known[s] = struct{}{}
	}
	seen := make(map[string]struct{}, len(cfg.Stages.Enabled))
	for _, s := range cfg.Stages.Enabled {
		if _, ok := known[s]; !ok {
			v.AddError("Stages.Enabled", fmt.Sprintf("unknown stage %q (known: %s)", s, strings.Join(AllStages, ", ")), s)
			continue
		}
		if _, dup := seen[s]; dup {
			v.AddError("Stages.Enabled", fmt.Sprintf("stage %q listed twice", s), s)
		}
		seen[s] = struct{}{}
	}
	for _, c := range cfg.Stages.TimestampColumns {
		v.NotEmpty("Stages.TimestampColumns", c)
	}
	v.Range("Stages.StringConcurrency", cfg.Stages.StringConcurrency, 1, 256)
	v.NonNegative("PreviewRows", cfg.PreviewRows)

	if cfg.Watch.Listen != "" {
		v.ListenAddr("Watch.Listen", cfg.Watch.Listen)
	}
	if cfg.Watch.Pattern != "" {
		if _, err := filepath.Match(cfg.Watch.Pattern, "x"); err != nil {
			v.AddError("Watch.Pattern", err.Error(), cfg.Watch.Pattern)
		}
	}
	v.FileParent("RunStore", cfg.RunStore)
	v.FileParent("MetricsTextfile", cfg.MetricsTextfile)
	if cfg.Watch.Dir != "" {
		v.Directory("Watch.Dir", cfg.Watch.Dir, true)
	}
	if cfg.Watch.Debounce < 0 {
		v.AddError("Watch.Debounce", "must not be negative", cfg.Watch.Debounce)
	}

	return v.Err()
}

func validateDataset(v *validate.Validator, field string, ds DatasetConfig) {
	v.NotEmpty(field+".Path", ds.Path)
	format, err := resolveFormat(ds)
	if err != nil {
		v.AddError(field+".Format", err.Error(), ds.Format)
		return
	}
	if format == dataio.FormatSQLite {
		v.Identifier(field+".Table", ds.Table)
	}
	if ds.CSVDelimiter != "" && utf8.RuneCountInString(ds.CSVDelimiter) != 1 {
		v.AddError(field+".CSVDelimiter", "must be a single character", ds.CSVDelimiter)
	}
}

func resolveFormat(ds DatasetConfig) (dataio.Format, error) {
	if ds.Format != "" {
		return dataio.ParseFormat(ds.Format)
	}
	return dataio.DetectFormat(ds.Path)
}

// ResolveFormat returns the effective format of a dataset.
func (d DatasetConfig) ResolveFormat() (dataio.Format, error) {
	return resolveFormat(d)
}
