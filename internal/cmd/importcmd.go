package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *Config) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import keys from a file or standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runImportCmd,
	}
}

func (c *Config) runImportCmd(cmd *cobra.Command, args []string) error {
	keyData, err := c.readInput(args)
	if err != nil {
		return err
	}

	result, err := c.gpg.ImportKeys(cmd.Context(), keyData)
	if err != nil {
		return err
	}
	if err := resultErr(result, "import"); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "processed %d, imported %d, unchanged %d\n", result.Count, result.Imported, result.Unchanged)
	for _, fingerprint := range result.Fingerprints() {
		fmt.Fprintln(c.stdout, fingerprint)
	}
	return nil
}
