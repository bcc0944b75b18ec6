// Package gnupgtest provides helpers for tests that need a real gpg binary.
package gnupgtest

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	vfs "github.com/twpayne/go-vfs"
	"github.com/twpayne/go-vfs/vfst"

	"github.com/kflux/python-gnupg/internal/gnupglog"
)

// Passphrase protects every key generated by GenerateKey.
const Passphrase = "gnupg-test-passphrase"

var (
	revocationCertificateRx        = regexp.MustCompile(`revocation certificate stored as '.*[/\\]([0-9A-F]{16,40})\.rev'`)
	keyMarkedAsUltimatelyTrustedRx = regexp.MustCompile(`(?m)^gpg: key ([0-9A-F]+) marked as ultimately trusted$`)
)

// Command returns the path of the gpg binary, skipping the test if it is not
// in $PATH.
func Command(t *testing.T) string {
	t.Helper()
	command, err := exec.LookPath("gpg")
	if errors.Is(err, exec.ErrNotFound) {
		t.Skip("gpg not found in $PATH")
	}
	require.NoError(t, err)
	return command
}

// GenerateKey generates a passphrase-protected key in homeDir directly with
// gpg and returns its id.
func GenerateKey(homeDir string) (string, error) {
	cmd := exec.Command(
		"gpg",
		"--batch",
		"--homedir", homeDir,
		"--no-tty",
		"--passphrase", Passphrase,
		"--pinentry-mode", "loopback",
		"--quick-generate-key", "gnupg-test-key",
	)
	output, err := gnupglog.LogCmdCombinedOutput(log.Logger, cmd)
	if err != nil {
		return "", err
	}
	return keyFromGenerateOutput(output)
}

// keyFromGenerateOutput extracts the generated key's identifier from gpg's
// diagnostics. gpg >= 2.1 names the revocation certificate after the full
// fingerprint; older gpg only reports the ultimate trust mark with the key
// id.
func keyFromGenerateOutput(output []byte) (string, error) {
	if submatch := revocationCertificateRx.FindSubmatch(output); submatch != nil {
		return string(submatch[1]), nil
	}
	if submatch := keyMarkedAsUltimatelyTrustedRx.FindSubmatch(output); submatch != nil {
		return string(submatch[1]), nil
	}
	return "", fmt.Errorf("key not found in %q", output)
}

// JoinLines joins lines with newlines.
func JoinLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// WithTestFS calls f with a test filesystem populated with root.
func WithTestFS(t *testing.T, root interface{}, f func(fs vfs.FS)) {
	t.Helper()
	fs, cleanup, err := vfst.NewTestFS(root)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	f(fs)
}
