// SPDX-License-Identifier: MIT

package config

import "time"

// Stage names accepted in stages.enabled, in execution order.
const (
	StageRename     = "rename"
	StageNulls      = "nulls"
	StageTimestamps = "timestamps"
	StageStrings    = "strings"
	StageDedupe     = "dedupe"
	StageMetadata   = "metadata"
)

// AllStages lists every stage in its fixed execution order.
var AllStages = []string{StageRename, StageNulls, StageTimestamps, StageStrings, StageDedupe, StageMetadata}

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string

	LogLevel  string
	LogFormat string

	Input  DatasetConfig
	Output DatasetConfig
	Stages StagesConfig

	PreviewRows     int
	RunStore        string
	MetricsTextfile string

	Watch WatchConfig
}

// DatasetConfig locates one tabular dataset.
type DatasetConfig struct {
	Path   string
	Format string // empty means detect from the path extension
	Table  string // sqlite only
	// CSVDelimiter is a single character; empty means ','.
	CSVDelimiter string
}

// StagesConfig parameterises the standardisation stages.
type StagesConfig struct {
	Enabled           []string
	NullValues        []string
	TimestampColumns  []string
	TimestampLayouts  []string
	DataSource        string
	StringConcurrency int
}

// WatchConfig drives the directory watch mode.
type WatchConfig struct {
	Dir       string
	OutputDir string
	Pattern   string
	Debounce  time.Duration
	Listen    string // empty disables the HTTP listener
}

// FileConfig represents the on-disk configuration structure (YAML or TOML).
// Pointer and slice fields distinguish "absent" from "zero".
type FileConfig struct {
	LogLevel        string             `yaml:"logLevel,omitempty" toml:"logLevel"`
	LogFormat       string             `yaml:"logFormat,omitempty" toml:"logFormat"`
	Input           *DatasetFileConfig `yaml:"input,omitempty" toml:"input"`
	Output          *DatasetFileConfig `yaml:"output,omitempty" toml:"output"`
	Stages          *StagesFileConfig  `yaml:"stages,omitempty" toml:"stages"`
	PreviewRows     *int               `yaml:"previewRows,omitempty" toml:"previewRows"`
	RunStore        *string            `yaml:"runStore,omitempty" toml:"runStore"`
	MetricsTextfile *string            `yaml:"metricsTextfile,omitempty" toml:"metricsTextfile"`
	Watch           *WatchFileConfig   `yaml:"watch,omitempty" toml:"watch"`
}

// DatasetFileConfig is the file form of DatasetConfig.
type DatasetFileConfig struct {
	Path         string `yaml:"path,omitempty" toml:"path"`
	Format       string `yaml:"format,omitempty" toml:"format"`
	Table        string `yaml:"table,omitempty" toml:"table"`
	CSVDelimiter string `yaml:"csvDelimiter,omitempty" toml:"csvDelimiter"`
}

// StagesFileConfig is the file form of StagesConfig.
type StagesFileConfig struct {
	Enabled           []string `yaml:"enabled,omitempty" toml:"enabled"`
	NullValues        []string `yaml:"nullValues,omitempty" toml:"nullValues"`
	TimestampColumns  []string `yaml:"timestampColumns,omitempty" toml:"timestampColumns"`
	TimestampLayouts  []string `yaml:"timestampLayouts,omitempty" toml:"timestampLayouts"`
	DataSource        *string  `yaml:"dataSource,omitempty" toml:"dataSource"`
	StringConcurrency *int     `yaml:"stringConcurrency,omitempty" toml:"stringConcurrency"`
}

// WatchFileConfig is the file form of WatchConfig.
type WatchFileConfig struct {
	Dir       string `yaml:"dir,omitempty" toml:"dir"`
	OutputDir string `yaml:"outputDir,omitempty" toml:"outputDir"`
	Pattern   string `yaml:"pattern,omitempty" toml:"pattern"`
	Debounce  string `yaml:"debounce,omitempty" toml:"debounce"` // e.g. "500ms"
	Listen    string `yaml:"listen,omitempty" toml:"listen"`
}
