// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ManuGH/standardise/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys. All are optional.
const (
	EnvLogLevel          = "STANDARDISE_LOG_LEVEL"
	EnvLogFormat         = "STANDARDISE_LOG_FORMAT"
	EnvInput             = "STANDARDISE_INPUT"
	EnvInputFormat       = "STANDARDISE_INPUT_FORMAT"
	EnvInputTable        = "STANDARDISE_INPUT_TABLE"
	EnvOutput            = "STANDARDISE_OUTPUT"
	EnvOutputFormat      = "STANDARDISE_OUTPUT_FORMAT"
	EnvOutputTable       = "STANDARDISE_OUTPUT_TABLE"
	EnvStages            = "STANDARDISE_STAGES"
	EnvNullValues        = "STANDARDISE_NULL_VALUES"
	EnvTimestampColumns  = "STANDARDISE_TIMESTAMP_COLUMNS"
	EnvDataSource        = "STANDARDISE_DATA_SOURCE"
	EnvStringConcurrency = "STANDARDISE_STRING_CONCURRENCY"
	EnvPreviewRows       = "STANDARDISE_PREVIEW_ROWS"
	EnvRunStore          = "STANDARDISE_RUN_STORE"
	EnvMetricsTextfile   = "STANDARDISE_METRICS_TEXTFILE"
	EnvWatchDir          = "STANDARDISE_WATCH_DIR"
	EnvWatchOutputDir    = "STANDARDISE_WATCH_OUTPUT_DIR"
	EnvWatchListen       = "STANDARDISE_WATCH_LISTEN"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if value == "" {
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		logger.Debug().
			Str("key", key).
			Int("value", i).
			Str("source", "environment").
			Msg("using environment variable")
		return i
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Int("default", defaultValue).
		Msg("invalid integer in environment variable, using default")
	return defaultValue
}

// ParseList reads a comma separated list. Items are trimmed, empty items are
// dropped and the literal item "" stands for the empty string, so
// `NULL,N/A,""` yields ["NULL", "N/A", ""].
func ParseList(key string, defaultValue []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	return splitList(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "":
			continue
		case `""`, `''`:
			out = append(out, "")
		default:
			out = append(out, p)
		}
	}
	logger := log.WithComponent("config")
	logger.Debug().Strs("items", out).Msg("parsed list from environment")
	return out
}
