package gnupg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Positions of the fields in a --with-colons record.
const (
	colType         = 0
	colValidity     = 1
	colLength       = 2
	colAlgo         = 3
	colKeyID        = 4
	colCreation     = 5
	colExpiration   = 6
	colOwnerTrust   = 8
	colUserID       = 9
	colCapabilities = 11
)

// A Subkey is a subordinate key of a key record.
type Subkey struct {
	Type         string
	KeyID        string
	Fingerprint  string
	Length       int
	Algo         string
	CreationDate string
	Expires      string
	Capabilities string
}

// A KeyRecord is one key in a listing: the primary key plus its user ids and
// subkeys. Fingerprints are 40 hex characters for v4 keys.
type KeyRecord struct {
	Type         string // "pub" or "sec"
	Trust        string
	Length       int
	Algo         string
	KeyID        string
	Fingerprint  string
	CreationDate string
	Expires      string
	OwnerTrust   string
	Capabilities string
	UserIDs      []string
	Subkeys      []Subkey
}

// A ListResult accumulates an ordered sequence of key records from a colon
// listing. The order is gpg's listing order and is not guaranteed stable
// across calls.
type ListResult struct {
	resultBase

	Keys []KeyRecord

	// curKey is the most recently opened pub/sec record; fpr and uid lines
	// attach to it. curSubkey tracks whether the last opened record was a
	// subkey, because fpr always refers to the most recently opened one.
	curKey    *KeyRecord
	curSubkey bool
}

// Fingerprints returns the primary fingerprints of all listed keys.
func (r *ListResult) Fingerprints() []string {
	fingerprints := make([]string, 0, len(r.Keys))
	for _, key := range r.Keys {
		fingerprints = append(fingerprints, key.Fingerprint)
	}
	return fingerprints
}

// Success reports whether the listing completed. An empty keyring lists
// successfully.
func (r *ListResult) Success() bool {
	return r.ok()
}

func (r *ListResult) consumeStatusLine(line statusLine) error {
	r.consumeGeneric(line)
	return nil
}

// consumeColonLine parses one --with-colons record. Records with unknown
// types are ignored, and a truncated record is skipped without discarding
// the records already collected.
func (r *ListResult) consumeColonLine(line string) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) <= colUserID {
		return
	}
	switch fields[colType] {
	case "pub", "sec":
		length, _ := strconv.Atoi(fields[colLength])
		r.Keys = append(r.Keys, KeyRecord{
			Type:         fields[colType],
			Trust:        fields[colValidity],
			Length:       length,
			Algo:         fields[colAlgo],
			KeyID:        fields[colKeyID],
			CreationDate: fields[colCreation],
			Expires:      fields[colExpiration],
			OwnerTrust:   fields[colOwnerTrust],
			Capabilities: colField(fields, colCapabilities),
		})
		r.curKey = &r.Keys[len(r.Keys)-1]
		r.curSubkey = false
	case "fpr":
		if r.curKey == nil {
			return
		}
		if r.curSubkey && len(r.curKey.Subkeys) > 0 {
			r.curKey.Subkeys[len(r.curKey.Subkeys)-1].Fingerprint = fields[colUserID]
		} else {
			r.curKey.Fingerprint = fields[colUserID]
		}
	case "uid":
		if r.curKey == nil {
			return
		}
		r.curKey.UserIDs = append(r.curKey.UserIDs, fields[colUserID])
	case "sub", "ssb":
		if r.curKey == nil {
			return
		}
		length, _ := strconv.Atoi(fields[colLength])
		r.curKey.Subkeys = append(r.curKey.Subkeys, Subkey{
			Type:         fields[colType],
			KeyID:        fields[colKeyID],
			Length:       length,
			Algo:         fields[colAlgo],
			CreationDate: fields[colCreation],
			Expires:      fields[colExpiration],
			Capabilities: colField(fields, colCapabilities),
		})
		r.curSubkey = true
	}
}

func colField(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// parseColons feeds every accumulated output line through the colon-record
// parser.
func (r *ListResult) parseColons() {
	for _, line := range strings.Split(string(r.Data()), "\n") {
		if line == "" {
			continue
		}
		r.consumeColonLine(line)
	}
}

// ListKeys lists the keys currently in the keyring. If secret is true, the
// secret keyring is listed instead of the public one.
func (g *GPG) ListKeys(ctx context.Context, secret bool) (*ListResult, error) {
	which := "--list-public-keys"
	if secret {
		which = "--list-secret-keys"
	}
	args := []string{
		which,
		"--fixed-list-mode",
		"--fingerprint",
		"--with-colons",
		"--list-options", "no-show-photos",
	}
	result := &ListResult{}
	if err := g.run(ctx, args, nil, "", result); err != nil {
		return nil, err
	}
	result.parseColons()
	return result, nil
}

// ListSigs lists keys with their signatures. It accepts at most batchLimit
// key ids per call.
func (g *GPG) ListSigs(ctx context.Context, keyIDs ...string) (*ListResult, error) {
	if len(keyIDs) > batchLimit {
		return nil, fmt.Errorf("list sigs is limited to %d key ids, got %d", batchLimit, len(keyIDs))
	}
	if _, err := sanitizeAll(keyIDs); err != nil {
		return nil, err
	}
	args := append([]string{"--with-colons", "--fixed-list-mode", "--list-sigs"}, keyIDs...)
	result := &ListResult{}
	if err := g.run(ctx, args, nil, "", result); err != nil {
		return nil, err
	}
	result.parseColons()
	return result, nil
}
