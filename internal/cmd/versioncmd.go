package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *Config) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Write version information to standard output",
		Args:  cobra.NoArgs,
		RunE:  c.runVersionCmd,
	}
}

func (c *Config) runVersionCmd(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(c.stdout, "gnupg version %s\n", c.versionStr)
	fmt.Fprintf(c.stdout, "%s version %s (loopback pinentry: %t)\n", c.gpg.Binary(), c.gpg.Version(), c.gpg.Capabilities().LoopbackPinentry)
	return nil
}
