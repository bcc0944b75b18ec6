package gnupg

import (
	"bytes"
	"context"
	"strconv"
	"strings"
)

// importOKReasons decodes the reason bit field of an IMPORT_OK line.
var importOKReasons = []struct {
	bit  int
	text string
}{
	{1, "entirely new key"},
	{2, "new user ids"},
	{4, "new signatures"},
	{8, "new subkeys"},
	{16, "contains secret key"},
}

// importProblemReasons decodes the reason field of an IMPORT_PROBLEM line.
var importProblemReasons = map[string]string{
	"0": "no specific reason given",
	"1": "invalid certificate",
	"2": "issuer certificate missing",
	"3": "certificate chain too long",
	"4": "error storing certificate",
}

// A KeyOutcome records what happened to one key during an import.
type KeyOutcome struct {
	Fingerprint string
	Status      string
	Problem     string
}

// An ImportResult accumulates per-key outcomes and the summary counts from
// IMPORT_RES.
type ImportResult struct {
	resultBase

	// Outcomes holds one entry per IMPORT_OK or IMPORT_PROBLEM line, in
	// emission order.
	Outcomes []KeyOutcome

	// Summary counts, in the fixed field order of IMPORT_RES.
	Count           int
	NoUserID        int
	Imported        int
	ImportedRSA     int
	Unchanged       int
	SecretRead      int
	SecretImported  int
	SecretUnchanged int
	NotImported     int
	SkippedNew      int
}

// Fingerprints returns the fingerprints of all keys that were considered.
func (r *ImportResult) Fingerprints() []string {
	fingerprints := make([]string, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		if outcome.Fingerprint != "" {
			fingerprints = append(fingerprints, outcome.Fingerprint)
		}
	}
	return fingerprints
}

// Success reports whether at least one key was processed and none were
// rejected.
func (r *ImportResult) Success() bool {
	return r.ok() && r.Count > 0 && r.NotImported == 0
}

var importHandlers = map[string]func(*ImportResult, statusLine) error{
	"IMPORTED": func(r *ImportResult, l statusLine) error {
		return nil
	},
	"IMPORT_OK": func(r *ImportResult, l statusLine) error {
		if len(l.fields) < 2 {
			return l.errTooFewFields(2)
		}
		reason, err := strconv.Atoi(l.field(0))
		if err != nil {
			return err
		}
		outcome := KeyOutcome{Fingerprint: l.field(1)}
		if reason == 0 {
			outcome.Status = "not changed"
		} else {
			var texts []string
			for _, known := range importOKReasons {
				if reason&known.bit != 0 {
					texts = append(texts, known.text)
				}
			}
			outcome.Status = strings.Join(texts, ", ")
		}
		r.Outcomes = append(r.Outcomes, outcome)
		return nil
	},
	"IMPORT_PROBLEM": func(r *ImportResult, l statusLine) error {
		if len(l.fields) < 1 {
			return l.errTooFewFields(1)
		}
		problem, ok := importProblemReasons[l.field(0)]
		if !ok {
			problem = "unknown problem " + l.field(0)
		}
		r.Outcomes = append(r.Outcomes, KeyOutcome{
			Fingerprint: l.field(1),
			Problem:     problem,
		})
		return nil
	},
	// IMPORT_RES carries ten numeric fields in a fixed protocol order.
	"IMPORT_RES": func(r *ImportResult, l statusLine) error {
		if len(l.fields) < 10 {
			return l.errTooFewFields(10)
		}
		counts := make([]int, 10)
		for i := range counts {
			n, err := strconv.Atoi(l.field(i))
			if err != nil {
				return err
			}
			counts[i] = n
		}
		r.Count = counts[0]
		r.NoUserID = counts[1]
		r.Imported = counts[2]
		r.ImportedRSA = counts[3]
		r.Unchanged = counts[4]
		r.SecretRead = counts[5]
		r.SecretImported = counts[6]
		r.SecretUnchanged = counts[7]
		r.NotImported = counts[8]
		r.SkippedNew = counts[9]
		return nil
	},
	"NODATA": func(r *ImportResult, l statusLine) error {
		return nil
	},
	"KEYEXPIRED": func(r *ImportResult, l statusLine) error {
		return nil
	},
	"SIGEXPIRED": func(r *ImportResult, l statusLine) error {
		return nil
	},
	"KEY_CONSIDERED": func(r *ImportResult, l statusLine) error {
		return nil
	},
}

func (r *ImportResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	if handler, ok := importHandlers[line.keyword]; ok {
		return handler(r, line)
	}
	return nil
}

// ImportKeys imports keyData into the keyring.
func (g *GPG) ImportKeys(ctx context.Context, keyData []byte) (*ImportResult, error) {
	result := &ImportResult{}
	if err := g.run(ctx, []string{"--import"}, bytes.NewReader(keyData), "", result); err != nil {
		return nil, err
	}
	return result, nil
}

// RecvKeys imports keys with the given ids from a keyserver.
func (g *GPG) RecvKeys(ctx context.Context, keyserver string, keyIDs ...string) (*ImportResult, error) {
	keyserver, err := sanitize(keyserver)
	if err != nil {
		return nil, err
	}
	if _, err := sanitizeAll(keyIDs); err != nil {
		return nil, err
	}
	args := append([]string{"--keyserver", keyserver, "--recv-keys"}, keyIDs...)
	result := &ImportResult{}
	if err := g.run(ctx, args, nil, "", result); err != nil {
		return nil, err
	}
	return result, nil
}

// SendKeys publishes keys with the given ids to a keyserver.
func (g *GPG) SendKeys(ctx context.Context, keyserver string, keyIDs ...string) (*ImportResult, error) {
	keyserver, err := sanitize(keyserver)
	if err != nil {
		return nil, err
	}
	if _, err := sanitizeAll(keyIDs); err != nil {
		return nil, err
	}
	args := append([]string{"--keyserver", keyserver, "--send-keys"}, keyIDs...)
	result := &ImportResult{}
	if err := g.run(ctx, args, nil, "", result); err != nil {
		return nil, err
	}
	return result, nil
}

// deleteProblemReasons decodes the reason field of a DELETE_PROBLEM line.
var deleteProblemReasons = map[string]string{
	"1": "no such key",
	"2": "must delete secret key first",
	"3": "ambiguous specification",
}

// A DeleteResult accumulates the outcome of a key deletion.
type DeleteResult struct {
	resultBase

	// Status is "ok" unless gpg reported a deletion problem.
	Status string
}

// Success reports whether the deletion completed without a problem.
func (r *DeleteResult) Success() bool {
	return r.ok() && r.Status == "ok"
}

func (r *DeleteResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	if line.keyword == "DELETE_PROBLEM" {
		reason, ok := deleteProblemReasons[line.field(0)]
		if !ok {
			reason = "unknown problem " + line.field(0)
		}
		r.Status = reason
	}
	return nil
}

func (r *DeleteResult) finalize(state exitState) {
	r.resultBase.finalize(state)
	if r.Status == "" && r.ok() {
		r.Status = "ok"
	}
}

// DeleteOptions control key deletion.
type DeleteOptions struct {
	// Secret deletes the secret key.
	Secret bool
	// Subkeys deletes the secret subkey first, then the public key.
	Subkeys bool
}

// DeleteKeys deletes keys from the keyring. Keys must be referred to by
// their full fingerprints.
func (g *GPG) DeleteKeys(ctx context.Context, fingerprints []string, options DeleteOptions) (*DeleteResult, error) {
	if _, err := sanitizeAll(fingerprints); err != nil {
		return nil, err
	}
	which := "--delete-keys"
	switch {
	case options.Subkeys:
		which = "--delete-secret-and-public-key"
	case options.Secret:
		which = "--delete-secret-keys"
	}
	args := append([]string{which}, fingerprints...)
	result := &DeleteResult{}
	if err := g.run(ctx, args, nil, "", result); err != nil {
		return nil, err
	}
	return result, nil
}
