package gnupg

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// A GenKeyResult accumulates the outcome of a batch key generation.
type GenKeyResult struct {
	resultBase

	// Fingerprint is the fingerprint of the newly created key, empty on
	// failure.
	Fingerprint string
	// KeyType is the KEY_CREATED type field: "P" primary, "S" subkey, "B"
	// both.
	KeyType string
	// Handle is the caller-supplied handle echoed back by gpg, if any.
	Handle string
}

// Success reports whether a key was created.
func (r *GenKeyResult) Success() bool {
	return r.ok() && r.Fingerprint != ""
}

func (r *GenKeyResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	switch line.keyword {
	case "KEY_CREATED":
		if len(line.fields) < 2 {
			return line.errTooFewFields(2)
		}
		r.KeyType = line.field(0)
		r.Fingerprint = line.field(1)
		r.Handle = line.field(2)
	case "KEY_NOT_CREATED":
		r.Fingerprint = ""
		r.problem = "key not created"
	case "PROGRESS", "GOOD_PASSPHRASE", "NODATA", "KEY_CONSIDERED":
	}
	return nil
}

// GenKeyParams describe a key to generate unattended. Zero fields take the
// defaults documented on each field.
type GenKeyParams struct {
	// KeyType is RSA, DSA, ELG-E, or default. Defaults to "default"; in
	// that case the subkey type is forced to "default" too and the usage
	// fields are dropped, as gpg requires.
	KeyType string
	// KeyLength in bits. Defaults to 4096.
	KeyLength int
	// KeyUsage is a comma-delimited usage list (encrypt, sign, auth).
	KeyUsage string
	// SubkeyType, SubkeyLength, SubkeyUsage describe an optional subkey.
	SubkeyType   string
	SubkeyLength int
	SubkeyUsage  string
	// NameReal defaults to "Autogenerated Key".
	NameReal string
	// NameComment is the comment part of the user id.
	NameComment string
	// NameEmail defaults to $USER@$(hostname).
	NameEmail string
	// ExpireDate is an ISO date or <n>[d|w|m|y]. Defaults to one year from
	// now.
	ExpireDate string
	// Passphrase protects the new key. gpg >= 2.1 ignores it in batch mode;
	// Testing adds %no-protection instead.
	Passphrase string
	// Keyserver is the preferred keyserver URL stored in the key.
	Keyserver string
	// Handle associates the parameter block with KEY_CREATED status lines.
	Handle string
	// Testing uses a faster, insecure random number generator and no
	// passphrase protection. Only for keys that are created and soon after
	// destroyed.
	Testing bool
}

// BatchInput renders params as a gpg batch-mode key generation file. The
// Key-Type and Key-Length fields must come first; the remaining parameter
// order is not significant but is kept deterministic.
func (p GenKeyParams) BatchInput() string {
	keyType := p.KeyType
	if keyType == "" {
		keyType = "default"
	}
	keyLength := p.KeyLength
	if keyLength == 0 {
		keyLength = 4096
	}

	parms := map[string]string{}
	setIfNonZero := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			parms[key] = value
		}
	}
	setIfNonZero("Key-Usage", p.KeyUsage)
	setIfNonZero("Subkey-Usage", p.SubkeyUsage)
	setIfNonZero("Name-Comment", p.NameComment)
	setIfNonZero("Passphrase", p.Passphrase)
	setIfNonZero("Keyserver", p.Keyserver)
	setIfNonZero("Handle", p.Handle)

	nameReal := p.NameReal
	if nameReal == "" {
		nameReal = "Autogenerated Key"
	}
	parms["Name-Real"] = nameReal
	parms["Name-Email"] = defaultUIDEmail(p.NameEmail)

	expireDate := p.ExpireDate
	if expireDate == "" {
		expireDate = time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	}
	parms["Expire-Date"] = expireDate

	if p.Testing {
		// This specific comment string is required for gpg to use the
		// insecure PRNG.
		parms["Name-Comment"] = "insecure!"
	}

	subkeyType := p.SubkeyType
	if keyType == "default" {
		// A default primary key requires a default subkey and no explicit
		// usage fields.
		subkeyType = "default"
		delete(parms, "Key-Usage")
		delete(parms, "Subkey-Usage")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Key-Type: %s\n", keyType)
	fmt.Fprintf(&b, "Key-Length: %d\n", keyLength)
	if subkeyType != "" {
		fmt.Fprintf(&b, "Subkey-Type: %s\n", subkeyType)
	}
	if p.SubkeyLength != 0 {
		fmt.Fprintf(&b, "Subkey-Length: %d\n", p.SubkeyLength)
	}

	keys := make([]string, 0, len(parms))
	for key := range parms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\n", key, parms[key])
	}

	if p.Testing {
		b.WriteString("%no-protection\n")
		b.WriteString("%transient-key\n")
	}
	b.WriteString("%commit\n")
	return b.String()
}

// SaveBatchInput writes input to a batch file under dir, named after
// nameHint with unsafe characters stripped, and returns the path written.
func (g *GPG) SaveBatchInput(dir, nameHint, input string) (string, error) {
	if err := mkdirAll(g.fs, dir); err != nil {
		return "", err
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.', r == '@':
			return r
		default:
			return -1
		}
	}, nameHint)
	if name == "" {
		name = "key"
	}
	path := filepath.Join(dir, name+"_"+time.Now().UTC().Format("20060102T150405")+".batch")
	if err := g.fs.WriteFile(path, []byte(input), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// GenKey generates a key from a batch input produced by
// GenKeyParams.BatchInput.
func (g *GPG) GenKey(ctx context.Context, input string) (*GenKeyResult, error) {
	result := &GenKeyResult{}
	args := []string{"--gen-key"}
	if err := g.run(ctx, args, strings.NewReader(input), "", result); err != nil {
		return nil, err
	}
	g.logger.Info().Str("fingerprint", result.Fingerprint).Msg("key generation finished")
	return result, nil
}
