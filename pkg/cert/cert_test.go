package cert

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewIssuer()
	require.NoError(t, err)
	assert.True(t, issuer.CA().IsCA)

	server, err := issuer.IssueServer([]string{"localhost", "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, server.DNSNames)
	require.Len(t, server.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", server.IPAddresses[0].String())
	assert.NoError(t, issuer.Verify(server.Certificate, x509.ExtKeyUsageServerAuth))
	assert.Error(t, issuer.Verify(server.Certificate, x509.ExtKeyUsageClientAuth))

	client, err := issuer.IssueClient("collector")
	require.NoError(t, err)
	assert.Equal(t, "collector", client.Subject.CommonName)
	assert.NoError(t, issuer.Verify(client.Certificate, x509.ExtKeyUsageClientAuth))

	_, err = issuer.IssueServer(nil)
	assert.Error(t, err)
	_, err = issuer.IssueClient("")
	assert.Error(t, err)
}

func TestSaveLoadAndVerifyFile(t *testing.T) {
	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")

	issuer, err := NewIssuer()
	require.NoError(t, err)
	require.NoError(t, issuer.SaveCA(caCert, caKey))

	info, err := os.Stat(caKey)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadCA(caCert, caKey)
	require.NoError(t, err)
	assert.Equal(t, issuer.CA().SerialNumber, loaded.CA().SerialNumber)

	server, err := loaded.IssueServer([]string{"rig-01"})
	require.NoError(t, err)
	serverCert := filepath.Join(dir, "certs", "server.crt")
	require.NoError(t, server.Save(serverCert, filepath.Join(dir, "certs", "server.key")))

	result, err := VerifyCertificateFile(serverCert, caCert)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "server", result.Role)
	assert.Equal(t, []string{"rig-01"}, result.Hosts)

	out := FormatVerifyResult(result)
	assert.True(t, strings.Contains(out, "Status: VALID"))
	assert.True(t, strings.Contains(out, "Hosts: rig-01"))

	// A certificate from another CA does not chain
	other, err := NewIssuer()
	require.NoError(t, err)
	otherCA := filepath.Join(dir, "other.crt")
	require.NoError(t, other.SaveCA(otherCA, filepath.Join(dir, "other.key")))

	result, err = VerifyCertificateFile(serverCert, otherCA)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Error)
}

func TestLoadCAErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCA(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.crt")
	require.NoError(t, os.WriteFile(bad, []byte("not pem"), 0o600))
	_, err = ReadCertificate(bad)
	assert.Error(t, err)
}
