// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldColumn    = "column"
	FieldFormat    = "format"

	// Counters
	FieldRowsIn     = "rows_in"
	FieldRowsOut    = "rows_out"
	FieldDuplicates = "duplicates"

	// Path fields
	FieldPath       = "path"
	FieldInputPath  = "input_path"
	FieldOutputPath = "output_path"
)
