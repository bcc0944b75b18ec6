package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type genKeyCmdConfig struct {
	keyType   string
	keyLength int
	nameReal  string
	nameEmail string
	expire    string
	batchFile string
}

func (c *Config) newGenKeyCmd() *cobra.Command {
	genKeyCmd := &cobra.Command{
		Use:   "gen-key",
		Short: "Generate a new key pair",
		Args:  cobra.NoArgs,
		RunE:  c.runGenKeyCmd,
	}

	flags := genKeyCmd.Flags()
	flags.StringVar(&c.genKey.keyType, "key-type", c.genKey.keyType, "key type")
	flags.IntVar(&c.genKey.keyLength, "key-length", c.genKey.keyLength, "key length in bits")
	flags.StringVar(&c.genKey.nameReal, "name", c.genKey.nameReal, "real name for the user id")
	flags.StringVar(&c.genKey.nameEmail, "email", c.genKey.nameEmail, "email for the user id")
	flags.StringVar(&c.genKey.expire, "expire", c.genKey.expire, "expiration date")
	flags.StringVar(&c.genKey.batchFile, "batch-file", c.genKey.batchFile, "use an existing batch input file")
	if err := genKeyCmd.MarkFlagFilename("batch-file"); err != nil {
		panic(err)
	}

	return genKeyCmd
}

func (c *Config) runGenKeyCmd(cmd *cobra.Command, args []string) error {
	var input string
	if c.genKey.batchFile != "" {
		data, err := c.fs.ReadFile(c.genKey.batchFile)
		if err != nil {
			return err
		}
		input = string(data)
	} else {
		passphrase, err := c.passphrase("Passphrase for the new key")
		if err != nil {
			return err
		}
		input = gnupg.GenKeyParams{
			KeyType:    c.genKey.keyType,
			KeyLength:  c.genKey.keyLength,
			NameReal:   c.genKey.nameReal,
			NameEmail:  c.genKey.nameEmail,
			ExpireDate: c.genKey.expire,
			Passphrase: passphrase,
		}.BatchInput()
	}

	result, err := c.gpg.GenKey(cmd.Context(), input)
	if err != nil {
		return err
	}
	if err := resultErr(result, "gen-key"); err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, result.Fingerprint)
	return nil
}
