package billing

import (
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	infrateif "github.com/bfarhat/facturation-tn/internal/infrastructure/teif"
	"github.com/bfarhat/facturation-tn/pkg/teif"
)

// DocumentBuilder assemble le document TEIF (sans signature) à partir d'une
// facture normalisée validée.
type DocumentBuilder interface {
	Build(rec *entity.InvoiceRecord) (*infrateif.TeifDocument, error)
}

// CertificateLoader charge le matériel de certificat d'une session de
// signature depuis la configuration (PEM/DER ou p12).
type CertificateLoader interface {
	Load(certPath, keyPath string) (*entity.CertificateInfo, error)
	LoadFromP12(path, password string) (*entity.CertificateInfo, error)
}

// DocumentVerifier vérifie un document TEIF signé. L'invalidité est un
// résultat, pas une erreur.
type DocumentVerifier interface {
	Verify(xmlData []byte) *teif.VerificationResult
}

// TEIFConfig configuration de la session de signature TEIF.
type TEIFConfig struct {
	Environment  string
	CertPath     string
	CertKeyPath  string
	CertPassword string
	SignerRole   string
}
