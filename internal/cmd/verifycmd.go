package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type verifyCmdConfig struct {
	signatureFile string
}

func (c *Config) newVerifyCmd() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a signature",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runVerifyCmd,
	}

	flags := verifyCmd.Flags()
	flags.StringVar(&c.verify.signatureFile, "signature", c.verify.signatureFile, "detached signature file")
	if err := verifyCmd.MarkFlagFilename("signature"); err != nil {
		panic(err)
	}

	return verifyCmd
}

func (c *Config) runVerifyCmd(cmd *cobra.Command, args []string) error {
	data, err := c.readInput(args)
	if err != nil {
		return err
	}

	var result *gnupg.VerifyResult
	if c.verify.signatureFile != "" {
		result, err = c.gpg.VerifyDetached(cmd.Context(), bytes.NewReader(data), c.verify.signatureFile)
	} else {
		result, err = c.gpg.Verify(cmd.Context(), data)
	}
	if err != nil {
		return err
	}

	if !result.Success() {
		c.errorf("%s signature from %s\n", result.Status, result.KeyID)
		return ErrExitCode(1)
	}
	fmt.Fprintf(c.stdout, "%s signature from %q (key %s)\n", result.Status, result.Username, result.Fingerprint)
	return nil
}
