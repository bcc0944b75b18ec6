package gnupg

import (
	"context"
	"fmt"
	"strings"
)

// FindKeyByEmail returns the first key whose user ids contain email.
func (g *GPG) FindKeyByEmail(ctx context.Context, email string, secret bool) (*KeyRecord, error) {
	listing, err := g.ListKeys(ctx, secret)
	if err != nil {
		return nil, err
	}
	for i, key := range listing.Keys {
		for _, uid := range key.UserIDs {
			if strings.Contains(uid, email) {
				return &listing.Keys[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no key found for email %s", email)
}

// FindKeyBySubkey returns the key owning the subkey with the given key id or
// fingerprint.
func (g *GPG) FindKeyBySubkey(ctx context.Context, subkeyID string) (*KeyRecord, error) {
	listing, err := g.ListKeys(ctx, false)
	if err != nil {
		return nil, err
	}
	for i, key := range listing.Keys {
		for _, subkey := range key.Subkeys {
			if keyIDMatches(subkey.KeyID, subkeyID) || keyIDMatches(subkey.Fingerprint, subkeyID) {
				return &listing.Keys[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no key found for subkey %s", subkeyID)
}

// EncryptedTo returns the key rawData is encrypted to, searching primary key
// ids first and subkeys second.
func (g *GPG) EncryptedTo(ctx context.Context, rawData []byte) (*KeyRecord, error) {
	packets, err := g.ListPackets(ctx, rawData)
	if err != nil {
		return nil, err
	}
	if len(packets.KeyIDs) == 0 {
		return nil, fmt.Errorf("content is not encrypted to a key")
	}
	keyID := packets.KeyIDs[0]

	listing, err := g.ListKeys(ctx, false)
	if err != nil {
		return nil, err
	}
	for i, key := range listing.Keys {
		if keyIDMatches(key.KeyID, keyID) || keyIDMatches(key.Fingerprint, keyID) {
			return &listing.Keys[i], nil
		}
	}
	return g.FindKeyBySubkey(ctx, keyID)
}

// keyIDMatches compares two key identifiers, tolerating the short (8), long
// (16), and fingerprint (40) forms by comparing trailing hex digits.
func keyIDMatches(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	if len(a) > len(b) {
		a, b = b, a
	}
	return strings.HasSuffix(b, a)
}
