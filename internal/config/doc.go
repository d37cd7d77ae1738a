// SPDX-License-Identifier: MIT

// Package config provides configuration management for the standardise tool.
//
// Precedence is ENV > file > defaults. Files are YAML (strict: unknown keys and
// trailing documents are rejected) or TOML (undecoded keys are rejected).
package config
