// Chargement du matériel de signature: certificat X.509 et clé privée RSA
// depuis des fichiers PEM/DER séparés ou un conteneur .p12 (PKCS#12).

package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/bfarhat/facturation-tn/internal/domain"
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
)

// CertificateStore charge et contrôle le matériel de certificat d'une session
// de signature. Une fois chargé, le CertificateInfo est traité en lecture
// seule; la rotation des clés est une opération externe.
//
// Seuls les contrôles locaux (structure, correspondance clé/certificat,
// fenêtre de validité) sont faits ici; la chaîne de confiance et la
// révocation (CRL/OCSP) relèvent du service de confiance externe.
type CertificateStore struct{}

// NewCertificateStore crée le store.
func NewCertificateStore() *CertificateStore {
	return &CertificateStore{}
}

// Load charge un certificat et sa clé privée depuis deux fichiers PEM ou DER.
// Fichier absent ou illisible: domain.ErrCertificateNotFound. Clé privée ne
// correspondant pas à la clé publique du certificat: domain.ErrKeyMismatch.
func (s *CertificateStore) Load(certPath, keyPath string) (*entity.CertificateInfo, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: certificat %s: %v", domain.ErrCertificateNotFound, certPath, err)
	}
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: clé privée %s: %v", domain.ErrCertificateNotFound, keyPath, err)
	}

	cert, err := parseCertificate(certData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCertificateNotFound, err)
	}
	key, err := parsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCertificateNotFound, err)
	}
	return buildCertificateInfo(cert, key)
}

// LoadFromP12 charge certificat et clé depuis un conteneur .p12/.pfx. Les
// certificats TTN sont distribués sous cette forme. Le mot de passe peut être
// vide si le conteneur n'est pas protégé.
func (s *CertificateStore) LoadFromP12(path, password string) (*entity.CertificateInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: conteneur p12 %s: %v", domain.ErrCertificateNotFound, path, err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: décodage p12: %v", domain.ErrCertificateNotFound, err)
	}
	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: le p12 doit contenir une clé privée RSA", domain.ErrKeyMismatch)
	}
	return buildCertificateInfo(cert, rsaKey)
}

// IsValidAt contrôle la fenêtre de validité du certificat à l'instant donné.
func (s *CertificateStore) IsValidAt(info *entity.CertificateInfo, t time.Time) bool {
	return info.IsValidAt(t)
}

// ParseCertificateInfo construit un CertificateInfo côté vérification à
// partir des octets DER extraits du KeyInfo (pas de clé privée).
func ParseCertificateInfo(der []byte) (*entity.CertificateInfo, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: certificat du KeyInfo: %v", domain.ErrSignatureInvalid, err)
	}
	info, err := buildCertificateInfo(cert, nil)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func buildCertificateInfo(cert *x509.Certificate, key *rsa.PrivateKey) (*entity.CertificateInfo, error) {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: le certificat doit porter une clé publique RSA", domain.ErrKeyMismatch)
	}
	if key != nil && !pub.Equal(key.Public()) {
		return nil, fmt.Errorf("%w: la clé publique dérivée de la clé privée diffère de celle du certificat",
			domain.ErrKeyMismatch)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	return &entity.CertificateInfo{
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: cert.SerialNumber.Text(16),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		Digest:       Sha256(cert.Raw),
		Raw:          cert.Raw,
		PEM:          pemBytes,
		Certificate:  cert,
		PrivateKey:   key,
	}, nil
}

func parseCertificate(data []byte) (*x509.Certificate, error) {
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
	// Pas de bloc PEM: on tente le DER brut.
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("aucun certificat PEM ou DER reconnu: %v", err)
	}
	return cert, nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	var der = data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("clé privée PKCS#8 non RSA")
		}
		return rsaKey, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("clé privée illisible (PKCS#1 ou PKCS#8 attendu)")
}
