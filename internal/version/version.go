// SPDX-License-Identifier: MIT

// Package version carries build metadata injected through ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the release version, set with -ldflags "-X ...version.Version=...".
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	v, commit := Version, Commit
	if commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					commit = s.Value[:7]
				}
			}
		}
	}
	return fmt.Sprintf("standardise %s (commit %s, built %s)", v, commit, Date)
}
