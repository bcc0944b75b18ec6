package gnupg_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kflux/python-gnupg/internal/gnupg"
	"github.com/kflux/python-gnupg/internal/gnupgtest"
)

func newTestGPG(t *testing.T) *gnupg.GPG {
	t.Helper()
	command := gnupgtest.Command(t)
	g, err := gnupg.New(context.Background(), gnupg.Config{
		Binary:      command,
		HomeDir:     t.TempDir(),
		AlwaysTrust: true,
	})
	require.NoError(t, err)
	return g
}

func generateTestKey(t *testing.T, g *gnupg.GPG) string {
	t.Helper()
	result, err := g.GenKey(context.Background(), gnupg.GenKeyParams{
		KeyType:    "RSA",
		KeyLength:  2048,
		NameReal:   "Test Key",
		NameEmail:  "test@example.com",
		ExpireDate: "1y",
		Testing:    true,
	}.BatchInput())
	require.NoError(t, err)
	require.True(t, result.Success(), "key generation failed: %s; stderr: %s", result.Problem(), result.Stderr())
	require.Len(t, result.Fingerprint, 40)
	return result.Fingerprint
}

func TestNewMissingBinary(t *testing.T) {
	_, err := gnupg.New(context.Background(), gnupg.Config{
		Binary: "gnupg-binary-that-does-not-exist",
	})
	var launchError *gnupg.LaunchError
	require.True(t, errors.As(err, &launchError))
}

func TestNewProbe(t *testing.T) {
	g := newTestGPG(t)
	version := g.Version()
	assert.NotZero(t, version.Major)
	if version.Major > 2 || (version.Major == 2 && version.Minor >= 1) {
		assert.True(t, g.Capabilities().LoopbackPinentry)
	}
}

func TestGenKeyListSignVerifyEncryptDecrypt(t *testing.T) {
	ctx := context.Background()
	g := newTestGPG(t)
	fingerprint := generateTestKey(t, g)

	listing, err := g.ListKeys(ctx, false)
	require.NoError(t, err)
	require.True(t, listing.Success())
	assert.Contains(t, listing.Fingerprints(), fingerprint)

	secrets, err := g.ListKeys(ctx, true)
	require.NoError(t, err)
	assert.Contains(t, secrets.Fingerprints(), fingerprint)

	plaintext := []byte("no one else can read my message\n")

	signed, err := g.Sign(ctx, plaintext, gnupg.SignOptions{DefaultKey: fingerprint, Clearsign: true})
	require.NoError(t, err)
	require.True(t, signed.Success(), "sign failed: %s; stderr: %s", signed.Problem(), signed.Stderr())
	assert.Equal(t, fingerprint, signed.Fingerprint)

	verified, err := g.Verify(ctx, signed.Data())
	require.NoError(t, err)
	assert.True(t, verified.Success())
	assert.Equal(t, fingerprint, verified.Fingerprint)

	encrypted, err := g.Encrypt(ctx, plaintext, gnupg.EncryptOptions{Recipients: []string{fingerprint}})
	require.NoError(t, err)
	require.True(t, encrypted.Success(), "encrypt failed: %s; stderr: %s", encrypted.Problem(), encrypted.Stderr())
	assert.NotEqual(t, plaintext, encrypted.Data())

	decrypted, err := g.Decrypt(ctx, encrypted.Data(), gnupg.DecryptOptions{})
	require.NoError(t, err)
	require.True(t, decrypted.Success(), "decrypt failed: %s; stderr: %s", decrypted.Problem(), decrypted.Stderr())
	assert.Equal(t, plaintext, decrypted.Data())
}

func TestVerifyGarbage(t *testing.T) {
	g := newTestGPG(t)
	result, err := g.Verify(context.Background(), []byte("this is not a signature"))
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Empty(t, result.Fingerprint)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newTestGPG(t)
	fingerprint := generateTestKey(t, g)

	exported, err := g.ExportKeys(ctx, []string{fingerprint}, gnupg.ExportOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, exported)
	assert.Contains(t, string(exported), "BEGIN PGP PUBLIC KEY BLOCK")

	other := newTestGPG(t)
	imported, err := other.ImportKeys(ctx, exported)
	require.NoError(t, err)
	require.True(t, imported.Success(), "import failed: %s; stderr: %s", imported.Problem(), imported.Stderr())
	assert.Equal(t, 1, imported.Imported)

	listing, err := other.ListKeys(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{fingerprint}, listing.Fingerprints())

	// Importing the same key material twice reports it unchanged, not
	// imported.
	again, err := other.ImportKeys(ctx, exported)
	require.NoError(t, err)
	require.True(t, again.Success())
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 1, again.Unchanged)
}

func TestSymmetricRoundTripLarge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large round trip in short mode")
	}
	// An input much larger than the kernel pipe buffer exercises the
	// concurrent pump against simultaneous output draining. The deadline
	// turns a deadlock into a test failure instead of a hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	g := newTestGPG(t)
	plaintext := bytes.Repeat([]byte("0123456789abcdef"), 10*1024*1024/16)

	encrypted, err := g.Encrypt(ctx, plaintext, gnupg.EncryptOptions{
		Symmetric:  true,
		Passphrase: gnupgtest.Passphrase,
		Binary:     true,
	})
	require.NoError(t, err)
	require.True(t, encrypted.Success(), "encrypt failed: %s; stderr: %s", encrypted.Problem(), encrypted.Stderr())

	decrypted, err := g.Decrypt(ctx, encrypted.Data(), gnupg.DecryptOptions{
		Passphrase: gnupgtest.Passphrase,
	})
	require.NoError(t, err)
	require.True(t, decrypted.Success(), "decrypt failed: %s; stderr: %s", decrypted.Problem(), decrypted.Stderr())
	assert.Equal(t, plaintext, decrypted.Data())
}

func TestBadPassphrase(t *testing.T) {
	ctx := context.Background()
	g := newTestGPG(t)

	encrypted, err := g.Encrypt(ctx, []byte("sekrit"), gnupg.EncryptOptions{
		Symmetric:  true,
		Passphrase: gnupgtest.Passphrase,
	})
	require.NoError(t, err)
	require.True(t, encrypted.Success())

	decrypted, err := g.Decrypt(ctx, encrypted.Data(), gnupg.DecryptOptions{
		Passphrase: "not-the-passphrase",
	})
	require.NoError(t, err)
	assert.False(t, decrypted.Success())
}

func TestProtectedKeyDecrypt(t *testing.T) {
	ctx := context.Background()
	command := gnupgtest.Command(t)
	homeDir := t.TempDir()

	keyID, err := gnupgtest.GenerateKey(homeDir)
	require.NoError(t, err)

	g, err := gnupg.New(ctx, gnupg.Config{
		Binary:      command,
		HomeDir:     homeDir,
		AlwaysTrust: true,
	})
	require.NoError(t, err)

	encrypted, err := g.Encrypt(ctx, []byte("for the protected key"), gnupg.EncryptOptions{
		Recipients: []string{keyID},
	})
	require.NoError(t, err)
	require.True(t, encrypted.Success(), "encrypt failed: %s; stderr: %s", encrypted.Problem(), encrypted.Stderr())

	decrypted, err := g.Decrypt(ctx, encrypted.Data(), gnupg.DecryptOptions{
		Passphrase: gnupgtest.Passphrase,
	})
	require.NoError(t, err)
	require.True(t, decrypted.Success(), "decrypt failed: %s; stderr: %s", decrypted.Problem(), decrypted.Stderr())
	assert.Equal(t, []byte("for the protected key"), decrypted.Data())
}

func TestListPacketsIsEncrypted(t *testing.T) {
	ctx := context.Background()
	g := newTestGPG(t)
	fingerprint := generateTestKey(t, g)

	symmetric, err := g.Encrypt(ctx, []byte("sym"), gnupg.EncryptOptions{
		Symmetric:  true,
		Passphrase: gnupgtest.Passphrase,
		Binary:     true,
	})
	require.NoError(t, err)
	require.True(t, symmetric.Success())

	isSym, err := g.IsEncryptedSym(ctx, symmetric.Data())
	require.NoError(t, err)
	assert.True(t, isSym)

	asymmetric, err := g.Encrypt(ctx, []byte("asym"), gnupg.EncryptOptions{
		Recipients: []string{fingerprint},
		Binary:     true,
	})
	require.NoError(t, err)
	require.True(t, asymmetric.Success())

	isAsym, err := g.IsEncryptedAsym(ctx, asymmetric.Data())
	require.NoError(t, err)
	assert.True(t, isAsym)

	isEncrypted, err := g.IsEncrypted(ctx, asymmetric.Data())
	require.NoError(t, err)
	assert.True(t, isEncrypted)

	isEncrypted, err = g.IsEncrypted(ctx, []byte("just some plain bytes"))
	require.NoError(t, err)
	assert.False(t, isEncrypted)
}

func TestEncryptedTo(t *testing.T) {
	ctx := context.Background()
	g := newTestGPG(t)
	fingerprint := generateTestKey(t, g)

	encrypted, err := g.Encrypt(ctx, []byte("hello"), gnupg.EncryptOptions{
		Recipients: []string{fingerprint},
		Binary:     true,
	})
	require.NoError(t, err)
	require.True(t, encrypted.Success())

	key, err := g.EncryptedTo(ctx, encrypted.Data())
	require.NoError(t, err)
	assert.Equal(t, fingerprint, key.Fingerprint)
}

func TestDescriptorRelease(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("descriptor counting requires /proc")
	}
	ctx := context.Background()
	g := newTestGPG(t)

	countFds := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		require.NoError(t, err)
		return len(entries)
	}

	// Warm up once so lazily created descriptors don't skew the count.
	_, err := g.ListKeys(ctx, false)
	require.NoError(t, err)

	before := countFds()
	for i := 0; i < 5; i++ {
		_, err := g.ListKeys(ctx, false)
		require.NoError(t, err)
		_, err = g.Verify(ctx, []byte("not a signature"))
		require.NoError(t, err)
		_, err = g.Encrypt(ctx, []byte("x"), gnupg.EncryptOptions{
			Symmetric:  true,
			Passphrase: gnupgtest.Passphrase,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, before, countFds())
}

// endlessReader produces zero bytes forever, keeping the child's stdin
// open so the operation can only end by deadline.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestContextDeadlineTerminates(t *testing.T) {
	g := newTestGPG(t)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	result, err := g.DecryptReader(ctx, endlessReader{}, gnupg.DecryptOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.True(t, result.Terminated())
	assert.Equal(t, "terminated", result.Problem())
}

func TestFindKeyByEmail(t *testing.T) {
	ctx := context.Background()
	g := newTestGPG(t)
	fingerprint := generateTestKey(t, g)

	key, err := g.FindKeyByEmail(ctx, "test@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, key.Fingerprint)

	_, err = g.FindKeyByEmail(ctx, "nobody@example.com", false)
	assert.Error(t, err)
}
