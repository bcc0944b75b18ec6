package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type signCmdConfig struct {
	gnupg.SignOptions
}

func (c *Config) newSignCmd() *cobra.Command {
	signCmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Sign a file or standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runSignCmd,
	}

	flags := signCmd.Flags()
	flags.StringVarP(&c.sign.DefaultKey, "default-key", "u", c.sign.DefaultKey, "key id or fingerprint to sign with")
	flags.BoolVar(&c.sign.Clearsign, "clearsign", c.sign.Clearsign, "make a clear text signature")
	flags.BoolVar(&c.sign.Detach, "detach-sign", c.sign.Detach, "make a detached signature")
	flags.BoolVar(&c.sign.Binary, "binary", c.sign.Binary, "emit binary output instead of ASCII armor")

	return signCmd
}

func (c *Config) runSignCmd(cmd *cobra.Command, args []string) error {
	data, err := c.readInput(args)
	if err != nil {
		return err
	}

	options := c.sign.SignOptions
	if options.Passphrase, err = c.passphrase("Passphrase"); err != nil {
		return err
	}

	result, err := c.gpg.Sign(cmd.Context(), data, options)
	if err != nil {
		return err
	}
	if err := resultErr(result, "sign"); err != nil {
		return err
	}
	return c.writeOutput(result.Data())
}
