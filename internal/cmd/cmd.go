// Package cmd implements the gnupg command line tool.
package cmd

import (
	"errors"
	"fmt"
	"os"
)

// A VersionInfo contains a version.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// An ErrExitCode indicates the main program should exit with the given code.
type ErrExitCode int

func (e ErrExitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// Main runs the command and returns an exit code.
func Main(versionInfo VersionInfo, args []string) int {
	c := newConfig(withVersionInfo(versionInfo))
	if err := c.execute(args); err != nil {
		var errExitCode ErrExitCode
		if errors.As(err, &errExitCode) {
			return int(errExitCode)
		}
		fmt.Fprintf(os.Stderr, "gnupg: %v\n", err)
		return 1
	}
	return 0
}
