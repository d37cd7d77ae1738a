// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	overrides  []func(*AppConfig)
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// WithOverride registers a function applied after ENV, before validation.
// The CLI uses it for flags, which take precedence over everything else.
func (l *Loader) WithOverride(fn func(*AppConfig)) *Loader {
	if fn != nil {
		l.overrides = append(l.overrides, fn)
	}
	return l
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:  "info",
		LogFormat: "json",
		Input:     DatasetConfig{Path: "files/input.parquet", Table: "input"},
		Output:    DatasetConfig{Path: "files/output.parquet", Table: "standardised"},
		Stages: StagesConfig{
			Enabled:           append([]string(nil), AllStages...),
			NullValues:        []string{"NULL", "N/A", ""},
			TimestampColumns:  []string{"date_column"},
			DataSource:        "UNSPECIFIED",
			StringConcurrency: 4,
		},
		PreviewRows: 10,
		Watch: WatchConfig{
			Pattern:  "*.parquet",
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Overrides -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	for _, fn := range l.overrides {
		fn(&cfg)
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML or TOML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".toml":
		return decodeTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s (yaml or toml)", ErrUnsupportedConfigFormat, ext)
	}
}

func decodeYAML(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func decodeTOML(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	md, err := toml.Decode(string(data), &fileCfg)
	if err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("strict config parse error: %w: %s", ErrUnknownConfigField, strings.Join(keys, ", "))
	}
	return &fileCfg, nil
}
