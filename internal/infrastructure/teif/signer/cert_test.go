package signer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfarhat/facturation-tn/internal/domain"
)

// TestCertificateStore_Load charge une paire PEM valide et vérifie les champs
// dérivés (sujet, série en hexadécimal, digest, fenêtre).
func TestCertificateStore_Load(t *testing.T) {
	key := newTestKey(t)
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	cert := newTestCertificate(t, key, notBefore, notAfter)
	certPath, keyPath := writeTestPEM(t, t.TempDir(), cert, key)

	store := NewCertificateStore()
	info, err := store.Load(certPath, keyPath)
	require.NoError(t, err)

	assert.Contains(t, info.Subject, "Société Exemple SARL")
	assert.Equal(t, "1079", info.SerialNumber) // 4217 en hexadécimal
	assert.Equal(t, cert.Raw, info.Raw)
	assert.Equal(t, Sha256(cert.Raw), info.Digest)
	assert.NotNil(t, info.PrivateKey)
	assert.True(t, store.IsValidAt(info, time.Now()))
	assert.False(t, store.IsValidAt(info, notAfter.Add(time.Minute)))
	assert.False(t, store.IsValidAt(info, notBefore.Add(-time.Minute)))
}

// TestCertificateStore_FichierAbsent un chemin inexistant est une
// ErrCertificateNotFound, pour le certificat comme pour la clé.
func TestCertificateStore_FichierAbsent(t *testing.T) {
	key := newTestKey(t)
	cert := newTestCertificate(t, key, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	certPath, keyPath := writeTestPEM(t, t.TempDir(), cert, key)

	store := NewCertificateStore()

	_, err := store.Load(filepath.Join(t.TempDir(), "absent.pem"), keyPath)
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)

	_, err = store.Load(certPath, filepath.Join(t.TempDir(), "absent-key.pem"))
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)
}

// TestCertificateStore_CleDiscordante une clé privée qui ne correspond pas à
// la clé publique du certificat est refusée avant toute signature.
func TestCertificateStore_CleDiscordante(t *testing.T) {
	certKey := newTestKey(t)
	otherKey := newTestKey(t)
	cert := newTestCertificate(t, certKey, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	// Certificat de certKey, clé privée de otherKey.
	certPath, keyPath := writeTestPEM(t, t.TempDir(), cert, otherKey)

	store := NewCertificateStore()
	_, err := store.Load(certPath, keyPath)
	assert.ErrorIs(t, err, domain.ErrKeyMismatch)
}

// TestCertificateStore_ContenuIllisible un fichier présent mais sans
// certificat exploitable est une ErrCertificateNotFound.
func TestCertificateStore_ContenuIllisible(t *testing.T) {
	dir := t.TempDir()
	key := newTestKey(t)
	cert := newTestCertificate(t, key, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	_, keyPath := writeTestPEM(t, dir, cert, key)

	junkPath := filepath.Join(dir, "junk.pem")
	require.NoError(t, os.WriteFile(junkPath, []byte("ceci n'est pas un certificat"), 0o600))

	store := NewCertificateStore()
	_, err := store.Load(junkPath, keyPath)
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)
}

// TestParseCertificateInfo_DER le chemin de la vérification: reconstruire le
// CertificateInfo depuis les octets DER embarqués dans le KeyInfo.
func TestParseCertificateInfo_DER(t *testing.T) {
	key := newTestKey(t)
	cert := newTestCertificate(t, key, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	info, err := ParseCertificateInfo(cert.Raw)
	require.NoError(t, err)
	assert.Contains(t, info.Subject, "Société Exemple SARL")
	assert.Nil(t, info.PrivateKey)

	_, err = ParseCertificateInfo([]byte{0x30, 0x03, 0x02, 0x01, 0x01})
	assert.Error(t, err)
}
