package gnupg

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// EncryptOptions control encryption.
type EncryptOptions struct {
	// Recipients are key ids or fingerprints to encrypt to. At least one
	// recipient is required unless Symmetric is set.
	Recipients []string
	// Sign additionally signs the message with this key id.
	Sign string
	// Passphrase unlocks the signing key, or protects the message when
	// Symmetric is set.
	Passphrase string
	// Symmetric uses passphrase-based symmetric encryption. It can be
	// combined with Recipients for output decryptable either way.
	Symmetric bool
	// Binary disables ASCII armor.
	Binary bool
	// CipherAlgo, DigestAlgo, and CompressAlgo select algorithms; empty
	// fields use AES256, SHA512, and ZLIB respectively.
	CipherAlgo   string
	DigestAlgo   string
	CompressAlgo string
}

// DecryptOptions control decryption.
type DecryptOptions struct {
	// Passphrase unlocks the secret key, or is the symmetric passphrase.
	Passphrase string
}

// A CryptResult accumulates the outcome of an encryption or decryption. The
// output payload is available from Data.
type CryptResult struct {
	resultBase

	// OK is set by DECRYPTION_OKAY or END_ENCRYPTION. Its absence is a
	// failure even without an explicit DECRYPTION_FAILED.
	OK bool
	// Status is a short human-readable status.
	Status string
	// KeyID is the id of the key the message is encrypted to, from ENC_TO.
	KeyID string
	// Fingerprint, Valid, and Username describe an embedded signature
	// encountered while decrypting.
	Fingerprint string
	Valid       bool
	Username    string
	// NeedPassphrase is set when gpg asked for a passphrase.
	NeedPassphrase bool
}

// Success reports whether the operation completed: encryption ended or
// decryption was confirmed okay, with no generic failure recorded.
func (r *CryptResult) Success() bool {
	return r.ok() && r.OK
}

var cryptHandlers = map[string]func(*CryptResult, statusLine) error{
	"ENC_TO": func(r *CryptResult, l statusLine) error {
		if len(l.fields) < 1 {
			return l.errTooFewFields(1)
		}
		r.KeyID = l.field(0)
		return nil
	},
	"NEED_PASSPHRASE": func(r *CryptResult, l statusLine) error {
		r.NeedPassphrase = true
		return nil
	},
	"NEED_PASSPHRASE_SYM": func(r *CryptResult, l statusLine) error {
		r.NeedPassphrase = true
		return nil
	},
	"MISSING_PASSPHRASE": func(r *CryptResult, l statusLine) error {
		r.Status = "missing passphrase"
		return nil
	},
	"BAD_PASSPHRASE": func(r *CryptResult, l statusLine) error {
		r.OK = false
		r.Status = "bad passphrase"
		return nil
	},
	"GOOD_PASSPHRASE": func(r *CryptResult, l statusLine) error {
		r.Status = "good passphrase"
		return nil
	},
	"BEGIN_DECRYPTION": func(r *CryptResult, l statusLine) error {
		r.Status = "decryption started"
		return nil
	},
	"DECRYPTION_OKAY": func(r *CryptResult, l statusLine) error {
		r.OK = true
		r.Status = "decryption ok"
		return nil
	},
	"DECRYPTION_FAILED": func(r *CryptResult, l statusLine) error {
		r.OK = false
		r.Status = "decryption failed"
		return nil
	},
	"END_DECRYPTION": func(r *CryptResult, l statusLine) error {
		return nil
	},
	"BEGIN_ENCRYPTION": func(r *CryptResult, l statusLine) error {
		r.Status = "encryption started"
		return nil
	},
	"END_ENCRYPTION": func(r *CryptResult, l statusLine) error {
		r.OK = true
		r.Status = "encryption ok"
		return nil
	},
	"NO_SECKEY": func(r *CryptResult, l statusLine) error {
		r.Status = "no secret key"
		return nil
	},
	"KEYEXPIRED": func(r *CryptResult, l statusLine) error {
		r.Status = "key expired"
		return nil
	},
	"SIGEXPIRED": func(r *CryptResult, l statusLine) error {
		r.Status = "signature expired"
		return nil
	},
	"SIG_CREATED": func(r *CryptResult, l statusLine) error {
		return nil
	},
	"USERID_HINT": func(r *CryptResult, l statusLine) error {
		return nil
	},
	"GOODSIG": func(r *CryptResult, l statusLine) error {
		if len(l.fields) < 1 {
			return l.errTooFewFields(1)
		}
		r.Valid = true
		r.Username = l.rest(1)
		return nil
	},
	"BADSIG": func(r *CryptResult, l statusLine) error {
		r.Valid = false
		return nil
	},
	"VALIDSIG": func(r *CryptResult, l statusLine) error {
		if len(l.fields) < 1 {
			return l.errTooFewFields(1)
		}
		r.Fingerprint = l.field(0)
		return nil
	},
}

func (r *CryptResult) consumeStatusLine(line statusLine) error {
	if r.consumeGeneric(line) {
		return nil
	}
	if handler, ok := cryptHandlers[line.keyword]; ok {
		return handler(r, line)
	}
	return nil
}

// Encrypt encrypts data to the given recipients.
func (g *GPG) Encrypt(ctx context.Context, data []byte, options EncryptOptions) (*CryptResult, error) {
	return g.EncryptReader(ctx, bytes.NewReader(data), options)
}

// EncryptReader encrypts the contents of input to the given recipients.
func (g *GPG) EncryptReader(ctx context.Context, input io.Reader, options EncryptOptions) (*CryptResult, error) {
	if !options.Symmetric && len(options.Recipients) == 0 {
		return nil, errors.New("encryption needs at least one recipient or symmetric mode")
	}

	var args []string
	if !options.Binary {
		args = append(args, "--armor")
	}
	if g.alwaysTrust {
		args = append(args, "--always-trust")
	}

	cipherAlgo := options.CipherAlgo
	if cipherAlgo == "" {
		cipherAlgo = "AES256"
	}
	compressAlgo := options.CompressAlgo
	if compressAlgo == "" {
		compressAlgo = "ZLIB"
	}
	for _, pair := range [][2]string{
		{"--cipher-algo", cipherAlgo},
		{"--compress-algo", compressAlgo},
	} {
		algo, err := sanitize(pair[1])
		if err != nil {
			return nil, err
		}
		args = append(args, pair[0], algo)
	}

	if options.Sign != "" {
		keyID, err := sanitize(options.Sign)
		if err != nil {
			return nil, err
		}
		digestAlgo := options.DigestAlgo
		if digestAlgo == "" {
			digestAlgo = "SHA512"
		}
		if _, err := sanitize(digestAlgo); err != nil {
			return nil, err
		}
		args = append(args, "--sign", "--default-key", keyID, "--digest-algo", digestAlgo)
	}

	// Symmetric and asymmetric encryption can be combined: the output is
	// then decryptable with either the passphrase or a secret key.
	if options.Symmetric {
		args = append(args, "--symmetric")
	}
	if len(options.Recipients) > 0 {
		args = append(args, "--encrypt")
		for _, recipient := range options.Recipients {
			recipient, err := sanitize(recipient)
			if err != nil {
				return nil, err
			}
			args = append(args, "--recipient", recipient)
		}
	}

	passphrase := options.Passphrase
	result := &CryptResult{}
	if err := g.run(ctx, args, input, passphrase, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Decrypt decrypts message.
func (g *GPG) Decrypt(ctx context.Context, message []byte, options DecryptOptions) (*CryptResult, error) {
	return g.DecryptReader(ctx, bytes.NewReader(message), options)
}

// DecryptReader decrypts the contents of input.
func (g *GPG) DecryptReader(ctx context.Context, input io.Reader, options DecryptOptions) (*CryptResult, error) {
	args := []string{"--decrypt"}
	if g.alwaysTrust {
		args = append(args, "--always-trust")
	}
	result := &CryptResult{}
	if err := g.run(ctx, args, input, options.Passphrase, result); err != nil {
		return nil, err
	}
	return result, nil
}
