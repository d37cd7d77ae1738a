// SPDX-License-Identifier: MIT

package validate

import "github.com/rs/zerolog"

// LogLevel accepts the zerolog level names from trace up to error, the range
// the logger can be configured with.
func (v *Validator) LogLevel(field, value string) {
	lvl, err := zerolog.ParseLevel(value)
	if err != nil || lvl < zerolog.TraceLevel || lvl > zerolog.ErrorLevel {
		v.AddError(field, "invalid log level (must be: trace, debug, info, warn, error)", value)
	}
}
