package entity

import (
	"crypto/rsa"
	"crypto/x509"
	"time"
)

// CertificateInfo certificat X.509 chargé pour une session de signature.
// PrivateKey n'est présent que côté signature; côté vérification le
// certificat provient du KeyInfo du document et la clé reste nil.
type CertificateInfo struct {
	Subject      string
	Issuer       string
	SerialNumber string // hexadécimal
	NotBefore    time.Time
	NotAfter     time.Time
	Digest       []byte // SHA-256 des octets DER
	Raw          []byte // DER
	PEM          []byte

	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

// IsValidAt vérifie la fenêtre de validité du certificat (NotBefore <= t <= NotAfter).
// La vérification de chaîne et de révocation (CRL/OCSP) relève du service de
// confiance externe, pas du noyau.
func (c *CertificateInfo) IsValidAt(t time.Time) bool {
	return !t.Before(c.NotBefore) && !t.After(c.NotAfter)
}

// SignatureRecord enregistrement immuable d'une opération de signature.
// Une re-signature produit toujours un nouvel enregistrement.
type SignatureRecord struct {
	SignatureID      string // identifiant unique de l'opération
	XMLSignatureID   string // Id du nœud ds:Signature dans le document
	Role             string // rôle déclaré ("fournisseur", ...)
	SigningTime      time.Time
	DocumentDigest   string // DigestValue du document (base64)
	PropertiesDigest string // DigestValue des SignedProperties (base64)
	SignatureValue   []byte
	Certificate      *CertificateInfo
}
