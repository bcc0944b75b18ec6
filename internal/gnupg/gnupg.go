// Package gnupg provides an interface to an external GnuPG binary. It runs
// gpg as a child process, feeds it input and passphrases over dedicated
// pipes, and parses its machine-readable status protocol into typed results.
// See https://gnupg.org/.
package gnupg

import (
	"context"
	"os"
	"os/exec"
	"regexp"

	"github.com/coreos/go-semver/semver"
	"github.com/rs/zerolog"
	vfs "github.com/twpayne/go-vfs"

	"github.com/kflux/python-gnupg/internal/gnupglog"
)

// The number of simultaneous key ids accepted by operations like ListSigs.
const batchLimit = 25

// minLoopbackPinentryVersion is the first version of gpg that supports
// --pinentry-mode loopback, which is required for --passphrase-fd to work
// without an agent on modern gpg.
var minLoopbackPinentryVersion = semver.Version{Major: 2, Minor: 1}

var versionRx = regexp.MustCompile(`(?m)^gpg \(GnuPG.*?\) (\d+\.\d+\.\d+)`)

// A Config configures a GPG engine. The zero value of every field has a
// sensible default: the binary is looked up in $PATH as "gpg" and the home
// directory, keyring, and secret keyring are left to gpg's own defaults.
type Config struct {
	// Binary is the name or path of the gpg executable.
	Binary string
	// HomeDir is the gpg home directory. If non-empty it is created with
	// mode 0700 if it does not exist and passed to gpg as --homedir.
	HomeDir string
	// Keyring is an alternative public keyring file. Setting it implies
	// --no-default-keyring.
	Keyring string
	// Secring is an alternative secret keyring file.
	Secring string
	// UseAgent allows gpg to use a running agent for passphrases instead of
	// the engine's passphrase channel.
	UseAgent bool
	// AlwaysTrust skips trust checks on recipient keys during encryption.
	AlwaysTrust bool
	// Options are extra arguments appended to every invocation.
	Options []string
	// FS is the filesystem used for home directory creation and batch file
	// persistence. Defaults to vfs.OSFS.
	FS vfs.FS
	// Logger is the logger for all engine events. Defaults to a disabled
	// logger.
	Logger *zerolog.Logger
}

// Capabilities describes what the probed gpg binary supports. Callers use it
// to decide between direct passphrase supply and an interactive agent.
type Capabilities struct {
	// LoopbackPinentry reports whether the binary accepts
	// --pinentry-mode loopback, which gpg >= 2.1 requires for reading
	// passphrases from a file descriptor.
	LoopbackPinentry bool
}

// A GPG runs an external GnuPG binary. It is safe for concurrent use as long
// as the underlying gpg version tolerates concurrent access to the same
// keyring; callers serialize otherwise.
type GPG struct {
	fs           vfs.FS
	binary       string
	homeDir      string
	keyring      string
	secring      string
	useAgent     bool
	alwaysTrust  bool
	options      []string
	logger       zerolog.Logger
	version      *semver.Version
	capabilities Capabilities
}

// New returns a new GPG using config. It resolves and probes the binary once
// with --version; a missing or non-executable binary is reported as a
// *LaunchError. Subsequent invocations assume the binary remains valid.
func New(ctx context.Context, config Config) (*GPG, error) {
	binary := config.Binary
	if binary == "" {
		binary = "gpg"
	}
	binary, err := exec.LookPath(binary)
	if err != nil {
		return nil, &LaunchError{Binary: config.Binary, Err: err}
	}

	fileSystem := config.FS
	if fileSystem == nil {
		fileSystem = vfs.OSFS
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	g := &GPG{
		fs:          fileSystem,
		binary:      binary,
		homeDir:     config.HomeDir,
		keyring:     config.Keyring,
		secring:     config.Secring,
		useAgent:    config.UseAgent,
		alwaysTrust: config.AlwaysTrust,
		options:     config.Options,
		logger:      logger,
	}

	if g.homeDir != "" {
		if err := vfs.MkdirAll(g.fs, g.homeDir, 0o700); err != nil {
			return nil, err
		}
	}

	if err := g.probe(ctx); err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("binary", g.binary).
		Str("homeDir", g.homeDir).
		Str("keyring", g.keyring).
		Str("secring", g.secring).
		Bool("useAgent", g.useAgent).
		Stringer("version", g.version).
		Msg("initialized")
	return g, nil
}

// Binary returns the resolved path of the gpg executable.
func (g *GPG) Binary() string {
	return g.binary
}

// Version returns the version reported by the binary's --version probe.
func (g *GPG) Version() semver.Version {
	return *g.version
}

// Capabilities returns the capabilities detected by the --version probe.
func (g *GPG) Capabilities() Capabilities {
	return g.capabilities
}

// probe runs the binary once with --version to validate that it is usable
// and to detect its capabilities.
func (g *GPG) probe(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, g.binary, "--version")
	cmd.Env = g.childEnv()
	output, err := gnupglog.LogCmdOutput(g.logger, cmd)
	if err != nil {
		return &LaunchError{Binary: g.binary, Err: err}
	}
	match := versionRx.FindSubmatch(output)
	if match == nil {
		return &LaunchError{Binary: g.binary, Err: errVersionNotFound}
	}
	version, err := semver.NewVersion(string(match[1]))
	if err != nil {
		return &LaunchError{Binary: g.binary, Err: err}
	}
	g.version = version
	g.capabilities = Capabilities{
		LoopbackPinentry: !version.LessThan(minLoopbackPinentryVersion),
	}
	return nil
}

// commonArgs returns the fixed protocol-enabling argument prefix shared by
// every invocation. The status channel is the pipe passed as descriptor 3.
func (g *GPG) commonArgs() []string {
	args := []string{
		"--no-options",
		"--no-emit-version",
		"--no-tty",
		"--batch",
		"--yes",
		"--status-fd", statusFd,
	}
	if g.homeDir != "" {
		args = append(args, "--homedir", g.homeDir)
	}
	if g.keyring != "" {
		args = append(args, "--no-default-keyring", "--keyring", g.keyring)
	}
	if g.secring != "" {
		args = append(args, "--secret-keyring", g.secring)
	}
	if !g.useAgent && g.version.LessThan(minLoopbackPinentryVersion) {
		args = append(args, "--no-use-agent")
	}
	return args
}

// childEnv returns the minimal environment for the child process. Only an
// explicit allow-list of variables is inherited so that the caller's
// environment does not leak into gpg.
func (g *GPG) childEnv() []string {
	env := make([]string, 0, 8)
	for _, key := range []string{"PATH", "HOME", "LANG", "LANGUAGE", "TZ", "DISPLAY", "GPG_TTY", "GPG_AGENT_INFO"} {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}
