package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type decryptCmdConfig struct {
	promptPassphrase bool
}

func (c *Config) newDecryptCmd() *cobra.Command {
	decryptCmd := &cobra.Command{
		Use:   "decrypt [file]",
		Short: "Decrypt a file or standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runDecryptCmd,
	}

	flags := decryptCmd.Flags()
	flags.BoolVar(&c.decrypt.promptPassphrase, "prompt-passphrase", c.decrypt.promptPassphrase, "always prompt for a passphrase")

	return decryptCmd
}

func (c *Config) runDecryptCmd(cmd *cobra.Command, args []string) error {
	message, err := c.readInput(args)
	if err != nil {
		return err
	}

	// Packet inspection tells us up front whether the message needs a
	// passphrase, so the prompt only appears when it will be used.
	var options gnupg.DecryptOptions
	packets, err := c.gpg.ListPackets(cmd.Context(), message)
	if err != nil {
		return err
	}
	if c.decrypt.promptPassphrase || packets.Symmetric || packets.NeedPassphrase {
		if options.Passphrase, err = c.passphrase("Passphrase"); err != nil {
			return err
		}
	}

	result, err := c.gpg.Decrypt(cmd.Context(), message, options)
	if err != nil {
		return err
	}
	if err := resultErr(result, "decrypt"); err != nil {
		return err
	}
	return c.writeOutput(result.Data())
}
