package domain

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyUsageExtensionRoundTrip(t *testing.T) {
	usages := []x509.KeyUsage{
		x509.KeyUsageDigitalSignature,
		x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment,
	}
	for _, ku := range usages {
		ext, err := MarshalKeyUsageExtension(ku)
		require.NoError(t, err)
		assert.True(t, ext.Critical)

		parsed, err := ParseKeyUsageExtension(ext.Value)
		require.NoError(t, err)
		assert.Equal(t, ku, parsed)
	}
}

func TestParseKeyUsageExtensionGarbage(t *testing.T) {
	_, err := ParseKeyUsageExtension([]byte{0xde, 0xad})
	assert.Error(t, err)
}

func TestExtKeyUsageExtensionRoundTrip(t *testing.T) {
	ext, err := MarshalExtKeyUsageExtension([]x509.ExtKeyUsage{
		x509.ExtKeyUsageClientAuth,
		x509.ExtKeyUsageServerAuth,
	})
	require.NoError(t, err)

	parsed, err := ParseExtKeyUsageExtension(ext.Value)
	require.NoError(t, err)
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth}, parsed)
}

func TestMarshalExtKeyUsageExtensionRejectsOthers(t *testing.T) {
	_, err := MarshalExtKeyUsageExtension([]x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning})
	assert.Error(t, err)
}

// The key-usage extension written into signing requests must survive the
// standard library's CSR encoding and come back out of csr.Extensions.
func TestKeyUsageExtensionThroughCSR(t *testing.T) {
	credential := NewCredential(CredentialParams{
		CommonName: "accounts-ca.example.net",
		Role:       RoleAccountsCA,
		Network:    testNetwork,
	})

	request, err := credential.CreateRequest(nil, false)
	require.NoError(t, err)

	der, ok := request.extension(oidKeyUsage)
	require.True(t, ok, "CSR should carry a key usage extension")
	ku, err := ParseKeyUsageExtension(der)
	require.NoError(t, err)
	assert.Equal(t, x509.KeyUsageDigitalSignature|x509.KeyUsageCertSign|x509.KeyUsageCRLSign, ku)
}
