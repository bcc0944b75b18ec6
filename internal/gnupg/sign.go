package gnupg

import (
	"bytes"
	"context"
	"io"
)

// SignOptions control signature creation.
type SignOptions struct {
	// DefaultKey selects the signing key. Empty uses the first key on the
	// secret keyring.
	DefaultKey string
	// Passphrase unlocks the signing key. It is supplied over the dedicated
	// passphrase channel, never on the command line.
	Passphrase string
	// Clearsign produces a cleartext signature. It takes precedence over
	// Detach if both are set, matching gpg's own behavior.
	Clearsign bool
	// Detach produces a detached signature.
	Detach bool
	// Binary disables ASCII armor.
	Binary bool
}

// A SignResult accumulates the outcome of a signing operation. The signature
// itself is available from Data.
type SignResult struct {
	resultBase

	// Fingerprint is the fingerprint of the key that made the signature.
	Fingerprint string
	// SigType is the signature type field from SIG_CREATED ("D" detached,
	// "C" clearsign, "S" standard).
	SigType string
	// PubkeyAlgo and HashAlgo are the numeric algorithm fields.
	PubkeyAlgo string
	HashAlgo   string
	// SigClass and Timestamp are the remaining SIG_CREATED fields.
	SigClass  string
	Timestamp string
	// Status is set by passphrase and expiry status lines.
	Status string
}

// Success reports whether a signature was created.
func (r *SignResult) Success() bool {
	return r.ok() && r.Fingerprint != ""
}

var signHandlers = map[string]func(*SignResult, statusLine) error{
	"SIG_CREATED": func(r *SignResult, l statusLine) error {
		if len(l.fields) < 6 {
			return l.errTooFewFields(6)
		}
		r.SigType = l.field(0)
		r.PubkeyAlgo = l.field(1)
		r.HashAlgo = l.field(2)
		r.SigClass = l.field(3)
		r.Timestamp = l.field(4)
		r.Fingerprint = l.field(5)
		return nil
	},
	"NEED_PASSPHRASE": func(r *SignResult, l statusLine) error {
		r.Status = "need passphrase"
		return nil
	},
	"GOOD_PASSPHRASE": func(r *SignResult, l statusLine) error {
		r.Status = "good passphrase"
		return nil
	},
	"BAD_PASSPHRASE": func(r *SignResult, l statusLine) error {
		r.Status = "bad passphrase"
		return nil
	},
	"MISSING_PASSPHRASE": func(r *SignResult, l statusLine) error {
		r.Status = "missing passphrase"
		return nil
	},
	"KEYEXPIRED": func(r *SignResult, l statusLine) error {
		r.Status = "key expired"
		return nil
	},
	"SIGEXPIRED": func(r *SignResult, l statusLine) error {
		r.Status = "signature expired"
		return nil
	},
	"USERID_HINT": func(r *SignResult, l statusLine) error {
		return nil
	},
}

func (r *SignResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	if handler, ok := signHandlers[line.keyword]; ok {
		return handler(r, line)
	}
	return nil
}

// Sign creates a signature for data.
func (g *GPG) Sign(ctx context.Context, data []byte, options SignOptions) (*SignResult, error) {
	return g.SignReader(ctx, bytes.NewReader(data), options)
}

// SignReader creates a signature for the contents of input.
func (g *GPG) SignReader(ctx context.Context, input io.Reader, options SignOptions) (*SignResult, error) {
	args := []string{"--sign"}
	if !options.Binary {
		args = append(args, "--armor")
	}
	switch {
	case options.Clearsign:
		if options.Detach {
			g.logger.Warn().Msg("cannot use both clearsign and detach, using clearsign only")
		}
		args = append(args, "--clearsign")
	case options.Detach:
		args = append(args, "--detach-sign")
	}
	if options.DefaultKey != "" {
		keyID, err := sanitize(options.DefaultKey)
		if err != nil {
			return nil, err
		}
		args = append(args, "--default-key", keyID)
	}

	result := &SignResult{}
	if err := g.run(ctx, args, input, options.Passphrase, result); err != nil {
		return nil, err
	}
	return result, nil
}
