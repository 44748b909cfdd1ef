package testinfra

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseCert(t *testing.T, pemData []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(pemData)
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE", block.Type)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

func TestGenerateCertBundle_Roles(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost", "127.0.0.1"})
	require.NoError(t, err)

	ca := mustParseCert(t, bundle.CACert)
	server := mustParseCert(t, bundle.ServerCert)
	client := mustParseCert(t, bundle.ClientCert)

	t.Run("ca", func(t *testing.T) {
		assert.True(t, ca.IsCA)
		assert.Equal(t, "pgseed-test-ca", ca.Subject.CommonName)
	})

	t.Run("server", func(t *testing.T) {
		assert.False(t, server.IsCA)
		assert.Contains(t, server.DNSNames, "localhost")
		require.Len(t, server.IPAddresses, 1)
		assert.Equal(t, "127.0.0.1", server.IPAddresses[0].String())
		assert.Contains(t, server.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	})

	t.Run("client", func(t *testing.T) {
		assert.False(t, client.IsCA)
		// CN doubles as the database role under cert auth.
		assert.Equal(t, "postgres", client.Subject.CommonName)
		assert.Contains(t, client.ExtKeyUsage, x509.ExtKeyUsageClientAuth)
	})

	t.Run("chain", func(t *testing.T) {
		pool := x509.NewCertPool()
		pool.AddCert(ca)

		_, err := server.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}})
		assert.NoError(t, err, "server cert should chain to the CA")

		_, err = client.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}})
		assert.NoError(t, err, "client cert should chain to the CA")
	})
}

func TestGenerateCertBundle_KeysAreECPEM(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	for name, key := range map[string][]byte{
		"ca":     bundle.CAKey,
		"server": bundle.ServerKey,
		"client": bundle.ClientKey,
	} {
		block, _ := pem.Decode(key)
		require.NotNil(t, block, "%s key should be PEM", name)
		assert.Equal(t, "EC PRIVATE KEY", block.Type, "%s key block type", name)
	}
}

func TestCertBundle_WriteToDir(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	paths, err := bundle.WriteToDir(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{paths.CACert, paths.ServerCert, paths.ServerKey, paths.ClientCert, paths.ClientKey} {
		info, err := os.Stat(p)
		require.NoError(t, err, "file should exist: %s", p)
		if runtime.GOOS != "windows" {
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions for %s", p)
		}
	}
}

func TestGenerateCertBundle_SeparateBundlesDoNotChain(t *testing.T) {
	first, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)
	second, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(mustParseCert(t, first.CACert))

	foreign := mustParseCert(t, second.ClientCert)
	_, err = foreign.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}})
	assert.Error(t, err, "client cert from another CA must not verify")
}
