package gnupg

import (
	"bytes"
	"context"
)

// A PacketListResult accumulates the outcome of a packet listing: the keys a
// message is encrypted to and whether it is symmetrically encrypted.
type PacketListResult struct {
	resultBase

	// KeyIDs are the recipient key ids from ENC_TO lines, in emission
	// order.
	KeyIDs []string
	// Symmetric is set when the message needs a symmetric passphrase.
	Symmetric bool
	// NeedPassphrase is set when gpg asked for any passphrase.
	NeedPassphrase bool
}

// Success reports whether the packet listing completed.
func (r *PacketListResult) Success() bool {
	return r.ok()
}

func (r *PacketListResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	switch line.keyword {
	case "ENC_TO":
		if len(line.fields) < 1 {
			return line.errTooFewFields(1)
		}
		r.KeyIDs = append(r.KeyIDs, line.field(0))
	case "NEED_PASSPHRASE":
		r.NeedPassphrase = true
	case "NEED_PASSPHRASE_SYM":
		r.NeedPassphrase = true
		r.Symmetric = true
	case "NO_SECKEY", "USERID_HINT", "NODATA":
	}
	return nil
}

// ListPackets lists the packet contents of rawData without decrypting it.
func (g *GPG) ListPackets(ctx context.Context, rawData []byte) (*PacketListResult, error) {
	result := &PacketListResult{}
	if err := g.run(ctx, []string{"--list-packets"}, bytes.NewReader(rawData), "", result); err != nil {
		return nil, err
	}
	return result, nil
}

// IsEncryptedSym reports whether rawData is symmetrically encrypted.
func (g *GPG) IsEncryptedSym(ctx context.Context, rawData []byte) (bool, error) {
	result, err := g.ListPackets(ctx, rawData)
	if err != nil {
		return false, err
	}
	return result.Symmetric, nil
}

// IsEncryptedAsym reports whether rawData is encrypted to at least one key.
func (g *GPG) IsEncryptedAsym(ctx context.Context, rawData []byte) (bool, error) {
	result, err := g.ListPackets(ctx, rawData)
	if err != nil {
		return false, err
	}
	return len(result.KeyIDs) > 0, nil
}

// IsEncrypted reports whether rawData is encrypted, symmetrically or to a
// key.
func (g *GPG) IsEncrypted(ctx context.Context, rawData []byte) (bool, error) {
	result, err := g.ListPackets(ctx, rawData)
	if err != nil {
		return false, err
	}
	return result.Symmetric || len(result.KeyIDs) > 0, nil
}
