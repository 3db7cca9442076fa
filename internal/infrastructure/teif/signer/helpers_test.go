package signer

// Matériel de test: clé RSA et certificat auto-signé générés en mémoire,
// écrits en PEM dans un répertoire temporaire quand le test charge depuis le
// disque.

import (
	"crypto/rand"
	"encoding/base64"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bfarhat/facturation-tn/internal/domain/entity"
)

func encodeB64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// newTestKey génère une clé RSA de test.
func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// newTestCertificate émet un certificat auto-signé pour la clé donnée, avec
// la fenêtre de validité demandée.
func newTestCertificate(t *testing.T, key *rsa.PrivateKey, notBefore, notAfter time.Time) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(4217),
		Subject: pkix.Name{
			CommonName:   "Société Exemple SARL",
			Organization: []string{"Société Exemple"},
			Country:      []string{"TN"},
		},
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

// newTestCertificateInfo produit un CertificateInfo complet (clé privée
// incluse) valide sur la fenêtre demandée, sans passer par le disque.
func newTestCertificateInfo(t *testing.T, notBefore, notAfter time.Time) *entity.CertificateInfo {
	t.Helper()
	key := newTestKey(t)
	cert := newTestCertificate(t, key, notBefore, notAfter)
	info, err := buildCertificateInfo(cert, key)
	require.NoError(t, err)
	return info
}

// writeTestPEM écrit le certificat et la clé privée (PKCS#8) en PEM dans dir
// et retourne les deux chemins.
func writeTestPEM(t *testing.T, dir string, cert *x509.Certificate, key *rsa.PrivateKey) (certPath, keyPath string) {
	t.Helper()

	certPath = filepath.Join(dir, "cert.pem")
	certOut := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(t, os.WriteFile(certPath, certOut, 0o600))

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPath = filepath.Join(dir, "key.pem")
	keyOut := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	require.NoError(t, os.WriteFile(keyPath, keyOut, 0o600))

	return certPath, keyPath
}
