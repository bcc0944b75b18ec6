package gnupg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed runs raw status lines through a result the way the collector would,
// then freezes it with a successful exit.
func feed(t *testing.T, result Result, lines ...string) {
	t.Helper()
	for _, raw := range lines {
		line, ok := parseStatusLine(raw)
		require.True(t, ok, "not a status line: %q", raw)
		// Malformed lines are skipped, not fatal, so the error is ignored
		// here just as the dispatcher ignores it.
		_ = result.consumeStatusLine(line)
	}
	result.finalize(exitState{code: 0})
}

func TestParseStatusLine(t *testing.T) {
	line, ok := parseStatusLine("[GNUPG:] IMPORT_RES 5 0 3 0 2 0 0 0 0 0")
	require.True(t, ok)
	assert.Equal(t, "IMPORT_RES", line.keyword)
	assert.Len(t, line.fields, 10)
	assert.Equal(t, "5", line.field(0))
	assert.Equal(t, "", line.field(10))

	_, ok = parseStatusLine("gpg: keyring created")
	assert.False(t, ok)

	_, ok = parseStatusLine("[GNUPG:] ")
	assert.False(t, ok)
}

func TestImportResultCounts(t *testing.T) {
	result := &ImportResult{}
	feed(t, result, "[GNUPG:] IMPORT_RES 5 0 3 0 2 0 0 0 0 0")
	assert.Equal(t, 5, result.Count)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 2, result.Unchanged)
	assert.Equal(t, 0, result.NotImported)
}

func TestImportResultUnchanged(t *testing.T) {
	result := &ImportResult{}
	feed(t, result,
		"[GNUPG:] IMPORT_OK 0 A3E2F1D4C5B6978800112233445566778899AABB",
		"[GNUPG:] IMPORT_RES 1 0 0 0 1 0 0 0 0 0",
	)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "not changed", result.Outcomes[0].Status)
	assert.Equal(t, 1, result.Unchanged)
	assert.True(t, result.Success())
}

func TestImportResultNotImported(t *testing.T) {
	result := &ImportResult{}
	feed(t, result, "[GNUPG:] IMPORT_RES 1 0 0 0 0 0 0 0 1 0")
	assert.False(t, result.Success())
}

func TestImportResultEmptyIsFailure(t *testing.T) {
	result := &ImportResult{}
	result.finalize(exitState{code: 0})
	assert.False(t, result.Success())
}

func TestVerifyResultGoodSignature(t *testing.T) {
	result := NewVerifyResult()
	feed(t, result,
		"[GNUPG:] GOODSIG 3FF0DB166A7476EA Alice <alice@inter.net>",
		"[GNUPG:] VALIDSIG A3E2F1D4C5B6978800112233445566778899AABB 2026-01-02 1767312000 0 4 0 1 10 00 A3E2F1D4C5B6978800112233445566778899AABB",
		"[GNUPG:] TRUST_ULTIMATE",
	)
	assert.True(t, result.Success())
	assert.Equal(t, "3FF0DB166A7476EA", result.KeyID)
	assert.Equal(t, "Alice <alice@inter.net>", result.Username)
	assert.Equal(t, "A3E2F1D4C5B6978800112233445566778899AABB", result.Fingerprint)
	assert.Equal(t, TrustUltimate, result.TrustLevel)
}

func TestVerifyResultErrSigNoData(t *testing.T) {
	result := NewVerifyResult()
	feed(t, result,
		"[GNUPG:] ERRSIG ABCD1234ABCD1234 1 10 00 1767312000 9",
		"[GNUPG:] NODATA 1",
	)
	assert.False(t, result.Success())
	assert.Empty(t, result.Fingerprint)
}

func TestVerifyResultLastSignatureClassWins(t *testing.T) {
	result := NewVerifyResult()
	feed(t, result,
		"[GNUPG:] GOODSIG 3FF0DB166A7476EA Alice",
		"[GNUPG:] BADSIG 3FF0DB166A7476EA Alice",
	)
	assert.False(t, result.Valid)
	assert.Equal(t, "signature bad", result.Status)
}

func TestVerifyResultErrorAfterGoodSig(t *testing.T) {
	result := NewVerifyResult()
	feed(t, result,
		"[GNUPG:] GOODSIG 3FF0DB166A7476EA Alice",
		"[GNUPG:] ERROR verify.signature 1",
	)
	assert.False(t, result.Success())
	assert.Equal(t, "verify.signature 1", result.Problem())
}

func TestUnknownKeywordIgnored(t *testing.T) {
	result := NewVerifyResult()
	feed(t, result,
		"[GNUPG:] GOODSIG 3FF0DB166A7476EA Alice",
		"[GNUPG:] FUTURE_KEYWORD_XYZ arg1 arg2",
	)
	assert.True(t, result.Success())
	assert.Equal(t, "3FF0DB166A7476EA", result.KeyID)
}

func TestMalformedLineSkipped(t *testing.T) {
	result := &SignResult{}
	line, ok := parseStatusLine("[GNUPG:] SIG_CREATED D 1")
	require.True(t, ok)
	err := result.consumeStatusLine(line)
	require.Error(t, err)
	assert.Empty(t, result.Fingerprint)

	// A later well-formed line still lands.
	feed(t, result, "[GNUPG:] SIG_CREATED D 1 10 00 1767312000 A3E2F1D4C5B6978800112233445566778899AABB")
	assert.True(t, result.Success())
	assert.Equal(t, "A3E2F1D4C5B6978800112233445566778899AABB", result.Fingerprint)
}

func TestCryptResultDecryption(t *testing.T) {
	okResult := &CryptResult{}
	feed(t, okResult,
		"[GNUPG:] ENC_TO 3FF0DB166A7476EA 1 0",
		"[GNUPG:] GOOD_PASSPHRASE",
		"[GNUPG:] BEGIN_DECRYPTION",
		"[GNUPG:] DECRYPTION_OKAY",
		"[GNUPG:] END_DECRYPTION",
	)
	assert.True(t, okResult.Success())
	assert.Equal(t, "3FF0DB166A7476EA", okResult.KeyID)

	failedResult := &CryptResult{}
	feed(t, failedResult,
		"[GNUPG:] ENC_TO 3FF0DB166A7476EA 1 0",
		"[GNUPG:] BAD_PASSPHRASE 3FF0DB166A7476EA",
		"[GNUPG:] DECRYPTION_FAILED",
	)
	assert.False(t, failedResult.Success())
	// Status tracks the most recent report: DECRYPTION_FAILED supersedes
	// the earlier BAD_PASSPHRASE.
	assert.Equal(t, "decryption failed", failedResult.Status)

	// Absence of DECRYPTION_OKAY is also a failure.
	silentResult := &CryptResult{}
	feed(t, silentResult, "[GNUPG:] BEGIN_DECRYPTION")
	assert.False(t, silentResult.Success())
}

func TestCryptResultEncryption(t *testing.T) {
	result := &CryptResult{}
	feed(t, result,
		"[GNUPG:] BEGIN_ENCRYPTION 2 9",
		"[GNUPG:] END_ENCRYPTION",
	)
	assert.True(t, result.Success())
	assert.Equal(t, "encryption ok", result.Status)
}

func TestCryptResultNoRecipient(t *testing.T) {
	result := &CryptResult{}
	feed(t, result,
		"[GNUPG:] INV_RECP 0 nobody@example.com",
		"[GNUPG:] NO_RECP 0",
	)
	assert.False(t, result.Success())
	assert.NotEmpty(t, result.Problem())
}

func TestGenKeyResult(t *testing.T) {
	created := &GenKeyResult{}
	feed(t, created, "[GNUPG:] KEY_CREATED B A3E2F1D4C5B6978800112233445566778899AABB handle1")
	assert.True(t, created.Success())
	assert.Equal(t, "A3E2F1D4C5B6978800112233445566778899AABB", created.Fingerprint)
	assert.Equal(t, "B", created.KeyType)
	assert.Equal(t, "handle1", created.Handle)

	notCreated := &GenKeyResult{}
	feed(t, notCreated, "[GNUPG:] KEY_NOT_CREATED handle1")
	assert.False(t, notCreated.Success())
	assert.Empty(t, notCreated.Fingerprint)
}

func TestDeleteResult(t *testing.T) {
	okResult := &DeleteResult{}
	okResult.finalize(exitState{code: 0})
	assert.True(t, okResult.Success())
	assert.Equal(t, "ok", okResult.Status)

	problemResult := &DeleteResult{}
	feed(t, problemResult, "[GNUPG:] DELETE_PROBLEM 2")
	assert.False(t, problemResult.Success())
	assert.Equal(t, "must delete secret key first", problemResult.Status)
}

func TestPacketListResult(t *testing.T) {
	result := &PacketListResult{}
	feed(t, result,
		"[GNUPG:] ENC_TO 3FF0DB166A7476EA 1 0",
		"[GNUPG:] ENC_TO 1122334455667788 1 0",
		"[GNUPG:] NEED_PASSPHRASE_SYM 9 3 2",
	)
	assert.Equal(t, []string{"3FF0DB166A7476EA", "1122334455667788"}, result.KeyIDs)
	assert.True(t, result.Symmetric)
	assert.True(t, result.NeedPassphrase)
}

func TestExportResult(t *testing.T) {
	okResult := &exportResult{}
	_, err := okResult.Write([]byte("-----BEGIN PGP PUBLIC KEY BLOCK-----\n"))
	require.NoError(t, err)
	okResult.finalize(exitState{code: 0})
	assert.True(t, okResult.Success())
	assert.Contains(t, string(okResult.Data()), "PUBLIC KEY BLOCK")

	failedResult := &exportResult{}
	feed(t, failedResult, "[GNUPG:] FAILURE export 67108891")
	assert.False(t, failedResult.Success())
	assert.NotEmpty(t, failedResult.Problem())
}

func TestResultFinalizeIsTerminal(t *testing.T) {
	result := &GenKeyResult{}
	feed(t, result, "[GNUPG:] KEY_CREATED P A3E2F1D4C5B6978800112233445566778899AABB")
	require.True(t, result.Success())

	// A second finalize must not thaw a frozen result.
	result.finalize(exitState{code: 2, terminated: true})
	assert.True(t, result.Success())
	assert.Equal(t, 0, result.ExitCode())
}

func TestResultTerminated(t *testing.T) {
	result := &CryptResult{}
	result.finalize(exitState{code: -1, terminated: true})
	assert.False(t, result.Success())
	assert.Equal(t, "terminated", result.Problem())
	assert.Equal(t, -1, result.ExitCode())
}
