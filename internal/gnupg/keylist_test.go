package gnupg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kflux/python-gnupg/internal/gnupgtest"
)

func TestListResultColonRecords(t *testing.T) {
	listing := gnupgtest.JoinLines(
		"tru::1:1767312000:0:3:1:5",
		"pub:u:4096:1:3FF0DB166A7476EA:1704067200:1798675200::u:::scESC::::::23::0:",
		"fpr:::::::::A3E2F1D4C5B6978800112233445566778899AABB:",
		"uid:u::::1704067200::68D2BF3B7AE03E2A3E2F1D4C5B697888::Alice <alice@inter.net>::::::::::0:",
		"uid:u::::1704067200::0011223344556677889900AABBCCDDEE::Alice (work) <alice@example.com>::::::::::0:",
		"sub:u:4096:1:1122334455667788:1704067200:1798675200:::::e::::::23:",
		"fpr:::::::::BB99887766554433221100FFEEDDCCBBAA998877:",
		"pub:-:2048:17:AABBCCDD11223344:1500000000:::-:::scSC::::::23::0:",
		"fpr:::::::::0123456789ABCDEF0123456789ABCDEF01234567:",
		"uid:-::::1500000000::FFEEDDCCBBAA99887766554433221100::Bob <bob@example.com>::::::::::0:",
	)

	result := &ListResult{}
	_, err := result.Write([]byte(listing))
	require.NoError(t, err)
	result.finalize(exitState{code: 0})
	result.parseColons()

	require.True(t, result.Success())
	expected := []KeyRecord{
		{
			Type:         "pub",
			Trust:        "u",
			Length:       4096,
			Algo:         "1",
			KeyID:        "3FF0DB166A7476EA",
			Fingerprint:  "A3E2F1D4C5B6978800112233445566778899AABB",
			CreationDate: "1704067200",
			Expires:      "1798675200",
			OwnerTrust:   "u",
			Capabilities: "scESC",
			UserIDs: []string{
				"Alice <alice@inter.net>",
				"Alice (work) <alice@example.com>",
			},
			Subkeys: []Subkey{
				{
					Type:         "sub",
					KeyID:        "1122334455667788",
					Fingerprint:  "BB99887766554433221100FFEEDDCCBBAA998877",
					Length:       4096,
					Algo:         "1",
					CreationDate: "1704067200",
					Expires:      "1798675200",
					Capabilities: "e",
				},
			},
		},
		{
			Type:         "pub",
			Trust:        "-",
			Length:       2048,
			Algo:         "17",
			KeyID:        "AABBCCDD11223344",
			Fingerprint:  "0123456789ABCDEF0123456789ABCDEF01234567",
			CreationDate: "1500000000",
			OwnerTrust:   "-",
			Capabilities: "scSC",
			UserIDs:      []string{"Bob <bob@example.com>"},
		},
	}
	if diff := cmp.Diff(expected, result.Keys, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{
		"A3E2F1D4C5B6978800112233445566778899AABB",
		"0123456789ABCDEF0123456789ABCDEF01234567",
	}, result.Fingerprints())
}

func TestListResultTruncatedRecordSkipped(t *testing.T) {
	result := &ListResult{}
	result.consumeColonLine("pub:u:4096:1:3FF0DB166A7476EA:1704067200:1798675200::u:::scESC::::::23::0:")
	result.consumeColonLine("fpr:bogus")
	result.consumeColonLine("fpr:::::::::A3E2F1D4C5B6978800112233445566778899AABB:")
	require.Len(t, result.Keys, 1)
	assert.Equal(t, "A3E2F1D4C5B6978800112233445566778899AABB", result.Keys[0].Fingerprint)
}

func TestListResultOrphanRecordsIgnored(t *testing.T) {
	result := &ListResult{}
	result.consumeColonLine("fpr:::::::::A3E2F1D4C5B6978800112233445566778899AABB:")
	result.consumeColonLine("uid:u::::::::Alice::::::::::0:")
	result.consumeColonLine("sub:u:4096:1:1122334455667788:::::::e::::::23:")
	assert.Empty(t, result.Keys)
}

func TestKeyIDMatches(t *testing.T) {
	fingerprint := "A3E2F1D4C5B6978800112233445566778899AABB"
	assert.True(t, keyIDMatches("445566778899AABB", fingerprint))
	assert.True(t, keyIDMatches("8899AABB", fingerprint))
	assert.True(t, keyIDMatches(fingerprint, fingerprint))
	assert.True(t, keyIDMatches("8899aabb", fingerprint))
	assert.False(t, keyIDMatches("DEADBEEF", fingerprint))
	assert.False(t, keyIDMatches("", fingerprint))
}
