package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type encryptCmdConfig struct {
	gnupg.EncryptOptions
}

func (c *Config) newEncryptCmd() *cobra.Command {
	encryptCmd := &cobra.Command{
		Use:   "encrypt [file]",
		Short: "Encrypt a file or standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runEncryptCmd,
	}

	flags := encryptCmd.Flags()
	flags.StringSliceVarP(&c.encrypt.Recipients, "recipient", "r", c.encrypt.Recipients, "encrypt to key id or fingerprint")
	flags.BoolVar(&c.encrypt.Symmetric, "symmetric", c.encrypt.Symmetric, "use symmetric encryption")
	flags.StringVar(&c.encrypt.Sign, "sign-key", c.encrypt.Sign, "also sign the message with this key id")
	flags.BoolVar(&c.encrypt.Binary, "binary", c.encrypt.Binary, "emit binary output instead of ASCII armor")
	flags.StringVar(&c.encrypt.CipherAlgo, "cipher-algo", c.encrypt.CipherAlgo, "symmetric cipher algorithm")
	flags.StringVar(&c.encrypt.DigestAlgo, "digest-algo", c.encrypt.DigestAlgo, "digest algorithm")
	flags.StringVar(&c.encrypt.CompressAlgo, "compress-algo", c.encrypt.CompressAlgo, "compression algorithm")

	return encryptCmd
}

func (c *Config) runEncryptCmd(cmd *cobra.Command, args []string) error {
	plaintext, err := c.readInput(args)
	if err != nil {
		return err
	}

	options := c.encrypt.EncryptOptions
	if options.Symmetric || options.Sign != "" {
		if options.Passphrase, err = c.passphrase("Passphrase"); err != nil {
			return err
		}
	}

	result, err := c.gpg.Encrypt(cmd.Context(), plaintext, options)
	if err != nil {
		return err
	}
	if err := resultErr(result, "encrypt"); err != nil {
		return err
	}
	return c.writeOutput(result.Data())
}
