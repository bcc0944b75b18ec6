package gnupg

import "context"

// ExportOptions control key export.
type ExportOptions struct {
	// Secret exports the secret keys instead of the public ones.
	Secret bool
	// Subkeys exports the secret subkeys.
	Subkeys bool
	// Binary disables ASCII armor.
	Binary bool
	// Passphrase unlocks secret keys for export. Modern gpg requires it
	// when exporting protected secret keys.
	Passphrase string
}

// An exportResult carries exported key material. --export emits no
// operation-specific status lines, so only the generic failure keywords and
// the accumulated payload matter.
type exportResult struct {
	resultBase
}

func (r *exportResult) Success() bool {
	return r.ok()
}

func (r *exportResult) consumeStatusLine(line statusLine) error {
	r.consumeGeneric(line)
	return nil
}

// ExportKeys exports the indicated keys and returns the exported key
// material. gpg produces no status output for --export, so failure is
// observable only as empty output.
func (g *GPG) ExportKeys(ctx context.Context, keyIDs []string, options ExportOptions) ([]byte, error) {
	if _, err := sanitizeAll(keyIDs); err != nil {
		return nil, err
	}
	which := "--export"
	switch {
	case options.Subkeys:
		which = "--export-secret-subkeys"
	case options.Secret:
		which = "--export-secret-keys"
	}
	var args []string
	if !options.Binary {
		args = append(args, "--armor")
	}
	args = append(args, which)
	args = append(args, keyIDs...)

	result := &exportResult{}
	if err := g.run(ctx, args, nil, options.Passphrase, result); err != nil {
		return nil, err
	}
	return result.Data(), nil
}
