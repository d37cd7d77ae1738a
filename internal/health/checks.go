// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// CheckerFunc adapts a function into a named Checker.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewChecker returns a Checker named name that calls fn.
func NewChecker(name string, fn func(ctx context.Context) CheckResult) CheckerFunc {
	return CheckerFunc{name: name, fn: fn}
}

func (c CheckerFunc) Name() string { return c.name }

func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// DirChecker reports whether path is an existing directory and, when
// writable is set, whether a file can be created in it.
func DirChecker(name, path string, writable bool) Checker {
	return NewChecker(name, func(context.Context) CheckResult {
		if err := CheckDir(path, writable); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy, Message: path}
	})
}

// CheckDir validates a directory. It is also used as a pre-flight check
// before the watcher starts.
func CheckDir(path string, writable bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	if !writable {
		return nil
	}
	f, err := os.CreateTemp(path, ".write_test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}
