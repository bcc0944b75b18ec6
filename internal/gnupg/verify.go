package gnupg

import (
	"bytes"
	"context"
	"io"
)

// Trust levels reported on TRUST_* status lines, in increasing order.
const (
	TrustUndefined = iota
	TrustNever
	TrustMarginal
	TrustFully
	TrustUltimate
)

// A VerifyResult accumulates the outcome of a signature verification.
type VerifyResult struct {
	resultBase

	// Valid is true only if a GOODSIG line was seen and not superseded.
	Valid bool
	// Status is a short human-readable verification status.
	Status string
	// KeyID is the long key id of the signing key.
	KeyID string
	// Fingerprint is the signer fingerprint from VALIDSIG.
	Fingerprint string
	// PrimaryFingerprint is the primary key fingerprint from VALIDSIG, when
	// the signature was made by a subkey.
	PrimaryFingerprint string
	// Username is the user id on the signing key.
	Username string
	// CreationDate and Timestamp are the signature creation date and epoch
	// timestamp from VALIDSIG.
	CreationDate string
	Timestamp    string
	// TrustLevel is one of the Trust* constants, or -1 if no TRUST_* line
	// was seen.
	TrustLevel int
	// TrustText is the raw TRUST_* keyword, without the prefix.
	TrustText string
}

// NewVerifyResult returns an empty VerifyResult.
func NewVerifyResult() *VerifyResult {
	return &VerifyResult{TrustLevel: -1}
}

// Success reports whether exactly a GOODSIG-class outcome was recorded and no
// generic failure followed it.
func (r *VerifyResult) Success() bool {
	return r.ok() && r.Valid
}

var verifyTrustLevels = map[string]int{
	"TRUST_UNDEFINED": TrustUndefined,
	"TRUST_NEVER":     TrustNever,
	"TRUST_MARGINAL":  TrustMarginal,
	"TRUST_FULLY":     TrustFully,
	"TRUST_ULTIMATE":  TrustUltimate,
}

// The signature-class keywords are mutually exclusive: normally exactly one
// appears, but if gpg emits several, the last one wins.
var verifyHandlers = map[string]func(*VerifyResult, statusLine) error{
	"GOODSIG": func(r *VerifyResult, l statusLine) error {
		if len(l.fields) < 1 {
			return l.errTooFewFields(1)
		}
		r.Valid = true
		r.Status = "signature valid"
		r.KeyID = l.field(0)
		r.Username = l.rest(1)
		return nil
	},
	"BADSIG": func(r *VerifyResult, l statusLine) error {
		if len(l.fields) < 1 {
			return l.errTooFewFields(1)
		}
		r.Valid = false
		r.Status = "signature bad"
		r.KeyID = l.field(0)
		r.Username = l.rest(1)
		return nil
	},
	"EXPSIG": func(r *VerifyResult, l statusLine) error {
		r.Valid = false
		r.Status = "signature expired"
		r.KeyID = l.field(0)
		r.Username = l.rest(1)
		return nil
	},
	"EXPKEYSIG": func(r *VerifyResult, l statusLine) error {
		r.Valid = false
		r.Status = "signature valid but key expired"
		r.KeyID = l.field(0)
		r.Username = l.rest(1)
		return nil
	},
	"REVKEYSIG": func(r *VerifyResult, l statusLine) error {
		r.Valid = false
		r.Status = "signature valid but key revoked"
		r.KeyID = l.field(0)
		r.Username = l.rest(1)
		return nil
	},
	"ERRSIG": func(r *VerifyResult, l statusLine) error {
		r.Valid = false
		r.Status = "signature error"
		r.KeyID = l.field(0)
		return nil
	},
	"VALIDSIG": func(r *VerifyResult, l statusLine) error {
		if len(l.fields) < 3 {
			return l.errTooFewFields(3)
		}
		r.Fingerprint = l.field(0)
		r.CreationDate = l.field(1)
		r.Timestamp = l.field(2)
		r.PrimaryFingerprint = l.field(9)
		return nil
	},
	"NODATA": func(r *VerifyResult, l statusLine) error {
		r.Status = "no data"
		return nil
	},
	"KEYEXPIRED": func(r *VerifyResult, l statusLine) error {
		r.Status = "key expired"
		return nil
	},
	"SIGEXPIRED": func(r *VerifyResult, l statusLine) error {
		r.Status = "signature expired"
		return nil
	},
}

func (r *VerifyResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	if level, ok := verifyTrustLevels[line.keyword]; ok {
		r.TrustLevel = level
		r.TrustText = line.keyword
		return nil
	}
	if handler, ok := verifyHandlers[line.keyword]; ok {
		return handler(r, line)
	}
	return nil
}

// Verify verifies the embedded or clearsigned signature on signed.
func (g *GPG) Verify(ctx context.Context, signed []byte) (*VerifyResult, error) {
	return g.verify(ctx, []string{"--verify"}, bytes.NewReader(signed))
}

// VerifyDetached verifies data against the detached signature in sigFile.
func (g *GPG) VerifyDetached(ctx context.Context, data io.Reader, sigFile string) (*VerifyResult, error) {
	return g.verify(ctx, []string{"--verify", sigFile, "-"}, data)
}

func (g *GPG) verify(ctx context.Context, args []string, input io.Reader) (*VerifyResult, error) {
	result := NewVerifyResult()
	if err := g.run(ctx, args, input, "", result); err != nil {
		return nil, err
	}
	return result, nil
}
