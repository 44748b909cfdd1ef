package testinfra

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertBundle holds a throwaway PKI: one CA plus server and client leaf
// pairs, all PEM-encoded.
type CertBundle struct {
	CACert, CAKey         []byte
	ServerCert, ServerKey []byte
	ClientCert, ClientKey []byte
}

// CertPaths points at a bundle written to disk.
type CertPaths struct {
	CACert     string
	ServerCert string
	ServerKey  string
	ClientCert string
	ClientKey  string
}

type pemPair struct {
	cert []byte
	key  []byte
}

// issueCert generates a P-256 key, signs template with parent, or
// self-signs when parent is nil, and hands back the PEM pair plus the
// parsed certificate and key for signing children.
func issueCert(template, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (pemPair, *x509.Certificate, *ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return pemPair{}, nil, nil, fmt.Errorf("generate key: %w", err)
	}

	signer, signerKey := parent, parentKey
	if signer == nil {
		signer, signerKey = template, key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signer, &key.PublicKey, signerKey)
	if err != nil {
		return pemPair{}, nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return pemPair{}, nil, nil, fmt.Errorf("parse certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return pemPair{}, nil, nil, fmt.Errorf("encode key: %w", err)
	}

	pair := pemPair{
		cert: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		key:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}
	return pair, cert, key, nil
}

// stampValidity bounds a test cert: backdated a little for clock skew,
// expiring within the hour.
func stampValidity(t *x509.Certificate) {
	t.NotBefore = time.Now().Add(-5 * time.Minute)
	t.NotAfter = time.Now().Add(1 * time.Hour)
}

// GenerateCertBundle builds a fresh CA, a server certificate valid for
// hosts, and a client certificate for the postgres role.
func GenerateCertBundle(hosts []string) (*CertBundle, error) {
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "pgseed-test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	stampValidity(caTemplate)

	ca, caCert, caKey, err := issueCert(caTemplate, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("CA: %w", err)
	}

	serverTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "pgseed-test-server"},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	stampValidity(serverTemplate)
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			serverTemplate.IPAddresses = append(serverTemplate.IPAddresses, ip)
		} else {
			serverTemplate.DNSNames = append(serverTemplate.DNSNames, h)
		}
	}

	server, _, _, err := issueCert(serverTemplate, caCert, caKey)
	if err != nil {
		return nil, fmt.Errorf("server cert: %w", err)
	}

	// The client CN must match the database role when pg_hba maps
	// certificates with clientcert=verify-full.
	clientTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "postgres"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	stampValidity(clientTemplate)

	client, _, _, err := issueCert(clientTemplate, caCert, caKey)
	if err != nil {
		return nil, fmt.Errorf("client cert: %w", err)
	}

	return &CertBundle{
		CACert:     ca.cert,
		CAKey:      ca.key,
		ServerCert: server.cert,
		ServerKey:  server.key,
		ClientCert: client.cert,
		ClientKey:  client.key,
	}, nil
}

// WriteToDir lays the bundle out under dir with the file names the
// conntest helpers expect.
func (b *CertBundle) WriteToDir(dir string) (*CertPaths, error) {
	var (
		paths CertPaths
		err   error
	)
	write := func(dst *string, name string, data []byte) {
		if err != nil {
			return
		}
		path := filepath.Join(dir, name)
		if werr := os.WriteFile(path, data, 0600); werr != nil {
			err = fmt.Errorf("write %s: %w", name, werr)
			return
		}
		*dst = path
	}

	write(&paths.CACert, "ca.crt", b.CACert)
	write(&paths.ServerCert, "server.crt", b.ServerCert)
	write(&paths.ServerKey, "server.key", b.ServerKey)
	write(&paths.ClientCert, "client.crt", b.ClientCert)
	write(&paths.ClientKey, "client.key", b.ClientKey)
	if err != nil {
		return nil, err
	}
	return &paths, nil
}
