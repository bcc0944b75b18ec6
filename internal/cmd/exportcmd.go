package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type exportCmdConfig struct {
	gnupg.ExportOptions
}

func (c *Config) newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export key-id...",
		Short: "Export keys",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runExportCmd,
	}

	flags := exportCmd.Flags()
	flags.BoolVar(&c.export.Secret, "secret", c.export.Secret, "export secret keys")
	flags.BoolVar(&c.export.Subkeys, "subkeys", c.export.Subkeys, "export secret subkeys only")
	flags.BoolVar(&c.export.Binary, "binary", c.export.Binary, "emit binary output instead of ASCII armor")

	return exportCmd
}

func (c *Config) runExportCmd(cmd *cobra.Command, args []string) error {
	options := c.export.ExportOptions
	if options.Secret || options.Subkeys {
		var err error
		if options.Passphrase, err = c.passphrase("Passphrase"); err != nil {
			return err
		}
	}

	keyData, err := c.gpg.ExportKeys(cmd.Context(), args, options)
	if err != nil {
		return err
	}
	return c.writeOutput(keyData)
}
