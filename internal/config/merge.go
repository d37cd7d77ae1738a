// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"
)

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogFormat != "" {
		dst.LogFormat = src.LogFormat
	}
	mergeDataset(&dst.Input, src.Input)
	mergeDataset(&dst.Output, src.Output)

	if s := src.Stages; s != nil {
		if s.Enabled != nil {
			dst.Stages.Enabled = s.Enabled
		}
		if s.NullValues != nil {
			dst.Stages.NullValues = s.NullValues
		}
		if s.TimestampColumns != nil {
			dst.Stages.TimestampColumns = s.TimestampColumns
		}
		if s.TimestampLayouts != nil {
			dst.Stages.TimestampLayouts = s.TimestampLayouts
		}
		if s.DataSource != nil {
			dst.Stages.DataSource = *s.DataSource
		}
		if s.StringConcurrency != nil {
			dst.Stages.StringConcurrency = *s.StringConcurrency
		}
	}

	if src.PreviewRows != nil {
		dst.PreviewRows = *src.PreviewRows
	}
	if src.RunStore != nil {
		dst.RunStore = *src.RunStore
	}
	if src.MetricsTextfile != nil {
		dst.MetricsTextfile = *src.MetricsTextfile
	}

	if w := src.Watch; w != nil {
		if w.Dir != "" {
			dst.Watch.Dir = w.Dir
		}
		if w.OutputDir != "" {
			dst.Watch.OutputDir = w.OutputDir
		}
		if w.Pattern != "" {
			dst.Watch.Pattern = w.Pattern
		}
		if w.Listen != "" {
			dst.Watch.Listen = w.Listen
		}
		if w.Debounce != "" {
			d, err := time.ParseDuration(w.Debounce)
			if err != nil {
				return fmt.Errorf("watch.debounce: %w", err)
			}
			dst.Watch.Debounce = d
		}
	}
	return nil
}

func mergeDataset(dst *DatasetConfig, src *DatasetFileConfig) {
	if src == nil {
		return
	}
	if src.Path != "" {
		dst.Path = src.Path
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.Table != "" {
		dst.Table = src.Table
	}
	if src.CSVDelimiter != "" {
		dst.CSVDelimiter = src.CSVDelimiter
	}
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = ParseString(EnvLogFormat, cfg.LogFormat)

	cfg.Input.Path = ParseString(EnvInput, cfg.Input.Path)
	cfg.Input.Format = ParseString(EnvInputFormat, cfg.Input.Format)
	cfg.Input.Table = ParseString(EnvInputTable, cfg.Input.Table)
	cfg.Output.Path = ParseString(EnvOutput, cfg.Output.Path)
	cfg.Output.Format = ParseString(EnvOutputFormat, cfg.Output.Format)
	cfg.Output.Table = ParseString(EnvOutputTable, cfg.Output.Table)

	cfg.Stages.Enabled = ParseList(EnvStages, cfg.Stages.Enabled)
	cfg.Stages.NullValues = ParseList(EnvNullValues, cfg.Stages.NullValues)
	cfg.Stages.TimestampColumns = ParseList(EnvTimestampColumns, cfg.Stages.TimestampColumns)
	cfg.Stages.DataSource = ParseString(EnvDataSource, cfg.Stages.DataSource)
	cfg.Stages.StringConcurrency = ParseInt(EnvStringConcurrency, cfg.Stages.StringConcurrency)

	cfg.PreviewRows = ParseInt(EnvPreviewRows, cfg.PreviewRows)
	cfg.RunStore = ParseString(EnvRunStore, cfg.RunStore)
	cfg.MetricsTextfile = ParseString(EnvMetricsTextfile, cfg.MetricsTextfile)

	cfg.Watch.Dir = ParseString(EnvWatchDir, cfg.Watch.Dir)
	cfg.Watch.OutputDir = ParseString(EnvWatchOutputDir, cfg.Watch.OutputDir)
	cfg.Watch.Listen = ParseString(EnvWatchListen, cfg.Watch.Listen)
}
