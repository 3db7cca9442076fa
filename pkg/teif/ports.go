// Ports du noyau TEIF: signature et vérification de documents XML.

package teif

import (
	"time"

	"github.com/bfarhat/facturation-tn/internal/domain/entity"
)

// Signer signe un document TEIF (XAdES-B enveloppé) et retourne le XML signé
// accompagné de l'enregistrement immuable de la signature.
type Signer interface {
	// Sign prend le XML de la facture (sans signature), le certificat avec
	// clé privée et le rôle déclaré du signataire ("fournisseur", ...), et
	// retourne le XML avec le nœud ds:Signature ajouté.
	Sign(xmlData []byte, cert *entity.CertificateInfo, role string) ([]byte, *entity.SignatureRecord, error)
}

// Verifier vérifie la signature d'un document TEIF signé.
// L'invalidité métier (digest altéré, certificat expiré...) est un résultat
// attendu, jamais une erreur.
type Verifier interface {
	Verify(xmlData []byte) *VerificationResult
}

// Reason motif d'invalidité d'une vérification.
type Reason string

const (
	ReasonDigestMismatch         Reason = "DIGEST_MISMATCH"
	ReasonSignatureInvalid       Reason = "SIGNATURE_INVALID"
	ReasonCertificateExpired     Reason = "CERTIFICATE_EXPIRED"
	ReasonCertificateNotYetValid Reason = "CERTIFICATE_NOT_YET_VALID"
	ReasonMalformedDocument      Reason = "MALFORMED_DOCUMENT"
)

// VerificationResult résultat structuré d'une vérification de signature.
type VerificationResult struct {
	Valid         bool      `json:"valid"`
	Reason        Reason    `json:"reason,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	SignerSubject string    `json:"signer_subject,omitempty"`
	SignedAt      time.Time `json:"signed_at,omitempty"`
}

// Invalid construit un résultat négatif avec son motif.
func Invalid(reason Reason, detail string) *VerificationResult {
	return &VerificationResult{Valid: false, Reason: reason, Detail: detail}
}
