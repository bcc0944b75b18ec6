package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kflux/python-gnupg/internal/gnupg"
)

type listKeysCmdConfig struct {
	secret bool
	sigs   bool
}

func (c *Config) newListKeysCmd() *cobra.Command {
	listKeysCmd := &cobra.Command{
		Use:   "list-keys [key-id]...",
		Short: "List keys in the keyring",
		RunE:  c.runListKeysCmd,
	}

	flags := listKeysCmd.Flags()
	flags.BoolVar(&c.listKeys.secret, "secret", c.listKeys.secret, "list secret keys")
	flags.BoolVar(&c.listKeys.sigs, "sigs", c.listKeys.sigs, "include signatures")

	return listKeysCmd
}

func (c *Config) runListKeysCmd(cmd *cobra.Command, args []string) error {
	var result *gnupg.ListResult
	var err error
	if c.listKeys.sigs {
		result, err = c.gpg.ListSigs(cmd.Context(), args...)
	} else {
		result, err = c.gpg.ListKeys(cmd.Context(), c.listKeys.secret)
	}
	if err != nil {
		return err
	}
	if err := resultErr(result, "list keys"); err != nil {
		return err
	}

	for _, key := range result.Keys {
		fmt.Fprintf(c.stdout, "%s %s%d/%s %s\n", key.Type, key.Algo, key.Length, key.KeyID, key.CreationDate)
		fmt.Fprintf(c.stdout, "    %s\n", key.Fingerprint)
		for _, userID := range key.UserIDs {
			fmt.Fprintf(c.stdout, "uid %s\n", userID)
		}
		for _, subkey := range key.Subkeys {
			fmt.Fprintf(c.stdout, "%s %s%d/%s %s\n", subkey.Type, subkey.Algo, subkey.Length, subkey.KeyID, subkey.CreationDate)
		}
		fmt.Fprintln(c.stdout, strings.Repeat("-", 40))
	}
	return nil
}
