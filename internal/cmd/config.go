package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs"
	"golang.org/x/term"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

// A Config represents a configuration.
type Config struct {
	versionInfo VersionInfo
	versionStr  string

	logger zerolog.Logger

	fs         vfs.FS
	configFile string
	gpg        *gnupg.GPG

	// Global configuration, settable in the config file.
	Binary      string   `mapstructure:"binary"`
	HomeDir     string   `mapstructure:"homeDir"`
	Keyring     string   `mapstructure:"keyring"`
	AlwaysTrust bool     `mapstructure:"alwaysTrust"`
	Options     []string `mapstructure:"options"`

	// Global configuration, not settable in the config file.
	debug          bool
	verbose        bool
	output         string
	passphraseFile string

	// Command configurations.
	encrypt  encryptCmdConfig
	decrypt  decryptCmdConfig
	sign     signCmdConfig
	export   exportCmdConfig
	genKey   genKeyCmdConfig
	listKeys listKeysCmdConfig
	verify   verifyCmdConfig

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// A configOption sets an option on a Config.
type configOption func(*Config)

// newConfig creates a new Config with the given options.
func newConfig(options ...configOption) *Config {
	c := &Config{
		fs:     vfs.OSFS,
		Binary: "gpg",
		encrypt: encryptCmdConfig{
			EncryptOptions: gnupg.EncryptOptions{
				CipherAlgo:   "AES256",
				DigestAlgo:   "SHA512",
				CompressAlgo: "ZLIB",
			},
		},
		genKey: genKeyCmdConfig{
			keyType:   "RSA",
			keyLength: 4096,
		},
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Config) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.stderr, "gnupg: "+format, args...)
}

func (c *Config) execute(args []string) error {
	rootCmd, err := c.newRootCmd()
	if err != nil {
		return err
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func (c *Config) newRootCmd() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:               "gnupg",
		Short:             "Drive a GnuPG binary over its machine-readable status protocol",
		Version:           c.versionStr,
		PersistentPreRunE: c.persistentPreRunRootE,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	persistentFlags := rootCmd.PersistentFlags()

	persistentFlags.StringVarP(&c.Binary, "binary", "b", c.Binary, "gpg binary")
	persistentFlags.StringVar(&c.HomeDir, "homedir", c.HomeDir, "gpg home directory")
	persistentFlags.StringVar(&c.Keyring, "keyring", c.Keyring, "keyring file")
	persistentFlags.BoolVar(&c.AlwaysTrust, "always-trust", c.AlwaysTrust, "skip key validity checks")
	for _, key := range []string{
		"binary",
		"homedir",
		"keyring",
		"always-trust",
	} {
		if err := viper.BindPFlag(key, persistentFlags.Lookup(key)); err != nil {
			return nil, err
		}
	}

	persistentFlags.StringVarP(&c.configFile, "config", "c", c.configFile, "config file")
	persistentFlags.StringVarP(&c.output, "output", "o", c.output, "output file")
	persistentFlags.StringVar(&c.passphraseFile, "passphrase-file", c.passphraseFile, "read the passphrase from file")
	persistentFlags.BoolVarP(&c.verbose, "verbose", "v", c.verbose, "verbose")
	persistentFlags.BoolVar(&c.debug, "debug", c.debug, "write debug logs")

	for _, err := range []error{
		rootCmd.MarkPersistentFlagFilename("config"),
		rootCmd.MarkPersistentFlagFilename("output"),
		rootCmd.MarkPersistentFlagFilename("passphrase-file"),
		rootCmd.MarkPersistentFlagDirname("homedir"),
	} {
		if err != nil {
			return nil, err
		}
	}

	for _, newCmdFunc := range []func() *cobra.Command{
		c.newDecryptCmd,
		c.newEncryptCmd,
		c.newExportCmd,
		c.newGenKeyCmd,
		c.newImportCmd,
		c.newListKeysCmd,
		c.newSignCmd,
		c.newVerifyCmd,
		c.newVersionCmd,
	} {
		rootCmd.AddCommand(newCmdFunc())
	}

	return rootCmd, nil
}

func (c *Config) persistentPreRunRootE(cmd *cobra.Command, args []string) error {
	if err := c.readConfig(); err != nil {
		return fmt.Errorf("invalid config: %s: %w", c.configFile, err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        c.stderr,
		TimeFormat: time.RFC3339,
	}).Level(zerolog.WarnLevel)
	if c.verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}
	if c.debug {
		logger = logger.Level(zerolog.DebugLevel)
	}
	c.logger = logger.With().Timestamp().Logger()

	gpg, err := gnupg.New(cmd.Context(), gnupg.Config{
		Binary:      c.Binary,
		HomeDir:     c.HomeDir,
		Keyring:     c.Keyring,
		AlwaysTrust: c.AlwaysTrust,
		Options:     c.Options,
		FS:          c.fs,
		Logger:      &c.logger,
	})
	if err != nil {
		return err
	}
	c.gpg = gpg

	return nil
}

func (c *Config) readConfig() error {
	if c.configFile == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(c.configFile)
	switch err := v.ReadInConfig(); {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	return v.Unmarshal(c)
}

// readInput returns the contents of the first argument, or of stdin if no
// arguments were given or the argument is "-".
func (c *Config) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(c.stdin)
	}
	return c.fs.ReadFile(args[0])
}

// passphrase returns the passphrase from --passphrase-file if set, otherwise
// prompts on the terminal. A non-terminal stdin with no passphrase file yields
// an empty passphrase.
func (c *Config) passphrase(prompt string) (string, error) {
	if c.passphraseFile != "" {
		data, err := c.fs.ReadFile(c.passphraseFile)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	if stdin, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(stdin.Fd())) {
		fmt.Fprintf(c.stderr, "%s: ", prompt)
		passphrase, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(c.stderr)
		if err != nil {
			return "", err
		}
		return string(passphrase), nil
	}
	return "", nil
}

func (c *Config) writeOutput(data []byte) error {
	if c.output == "" || c.output == "-" {
		_, err := c.stdout.Write(data)
		return err
	}
	return c.fs.WriteFile(c.output, data, 0o666)
}

// resultErr converts an unsuccessful result into an error carrying the
// protocol-reported problem.
func resultErr(result gnupg.Result, what string) error {
	if result.Success() {
		return nil
	}
	problem := result.Problem()
	if problem == "" {
		problem = fmt.Sprintf("exit code %d", result.ExitCode())
	}
	return fmt.Errorf("%s failed: %s", what, problem)
}

// withVersionInfo sets the version information.
func withVersionInfo(versionInfo VersionInfo) configOption {
	return func(c *Config) {
		var versionElems []string
		if versionInfo.Version != "" {
			versionElems = append(versionElems, strings.TrimPrefix(versionInfo.Version, "v"))
		} else {
			versionElems = append(versionElems, "dev")
		}
		if versionInfo.Commit != "" {
			versionElems = append(versionElems, "commit "+versionInfo.Commit)
		}
		if versionInfo.Date != "" {
			versionElems = append(versionElems, "built at "+versionInfo.Date)
		}
		c.versionInfo = versionInfo
		c.versionStr = strings.Join(versionElems, ", ")
	}
}
