// SPDX-License-Identifier: MIT

package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrUnsupportedConfigFormat is returned for config files that are neither YAML nor TOML.
	ErrUnsupportedConfigFormat = errors.New("unsupported config format")
)
