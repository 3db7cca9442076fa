package billing

import (
	"context"
	"errors"
	"fmt"

	domainerr "github.com/bfarhat/facturation-tn/internal/domain"
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	domainteif "github.com/bfarhat/facturation-tn/internal/domain/teif"
	"github.com/bfarhat/facturation-tn/pkg/logger"
	"github.com/bfarhat/facturation-tn/pkg/teif"
)

// TEIFOrchestrator orchestre le cycle TEIF complet d'une facture:
//
//	validation → assemblage XML → signature XAdES-B → vérification
//
// et tient la machine d'états par facture (pending → generating → generated
// → signed, error depuis tout état). Les transitions concurrentes sur une
// même facture sont arbitrées par la machine elle-même: un second generate()
// simultané échoue avec ErrAlreadyInProgress au lieu de courir en parallèle.
//
// Le chemin chaud (canonicalisation, digests, RSA) est purement CPU et
// synchrone; le contexte ne sert qu'aux couches appelantes.
type TEIFOrchestrator struct {
	builder  DocumentBuilder
	signer   teif.Signer
	verifier DocumentVerifier
	certs    CertificateLoader
	statuses *domainteif.Registry
	cfg      TEIFConfig
	log      *logger.Logger
}

// NewTEIFOrchestrator construit l'orchestrateur avec toutes ses dépendances.
func NewTEIFOrchestrator(
	builder DocumentBuilder,
	signer teif.Signer,
	verifier DocumentVerifier,
	certs CertificateLoader,
	cfg TEIFConfig,
	log *logger.Logger,
) *TEIFOrchestrator {
	return &TEIFOrchestrator{
		builder:  builder,
		signer:   signer,
		verifier: verifier,
		certs:    certs,
		statuses: domainteif.NewRegistry(),
		cfg:      cfg,
		log:      log,
	}
}

// Generate valide la facture, assemble le document TEIF non signé et le
// sérialise. Garde d'état: pending → generating → generated; toute erreur
// structurelle bascule la facture en état error avec sa nature.
func (o *TEIFOrchestrator) Generate(ctx context.Context, rec *entity.InvoiceRecord) ([]byte, error) {
	if rec == nil || rec.InvoiceID == "" {
		return nil, fmt.Errorf("%w: identifiant de facture manquant", domainerr.ErrInvalidInvoiceData)
	}
	st := o.statuses.Obtain(rec.InvoiceID)
	if err := st.BeginGeneration(); err != nil {
		return nil, err
	}

	doc, err := o.builder.Build(rec)
	if err != nil {
		st.Fail(errorKind(err))
		o.log.Error().Err(err).Str("invoice_id", rec.InvoiceID).Msg("génération TEIF échouée")
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		st.Fail(errorKind(err))
		return nil, err
	}
	if err := st.MarkGenerated(); err != nil {
		return nil, err
	}
	o.log.Info().
		Str("invoice_id", rec.InvoiceID).
		Int("lines", doc.LineCount).
		Msg("document TEIF généré")
	return data, nil
}

// Sign charge le certificat de la session, signe le document et marque la
// facture signée. Garde d'état: generated → generating → signed.
func (o *TEIFOrchestrator) Sign(ctx context.Context, invoiceID string, xmlData []byte, role string) ([]byte, *entity.SignatureRecord, error) {
	st := o.statuses.Obtain(invoiceID)
	if err := st.BeginSigning(); err != nil {
		return nil, nil, err
	}

	cert, err := o.loadSessionCertificate()
	if err != nil {
		st.Fail(errorKind(err))
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("chargement du certificat échoué")
		return nil, nil, err
	}
	if role == "" {
		role = o.cfg.SignerRole
	}

	signed, record, err := o.signer.Sign(xmlData, cert, role)
	if err != nil {
		st.Fail(errorKind(err))
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("signature TEIF échouée")
		return nil, nil, err
	}
	if err := st.MarkSigned(); err != nil {
		return nil, nil, err
	}
	o.log.Info().
		Str("invoice_id", invoiceID).
		Str("signature_id", record.SignatureID).
		Str("role", record.Role).
		Time("signing_time", record.SigningTime).
		Msg("document TEIF signé")
	return signed, record, nil
}

// Verify vérifie un document signé. Résultat structuré, jamais d'erreur pour
// une invalidité métier; l'état de la facture n'est pas affecté.
func (o *TEIFOrchestrator) Verify(ctx context.Context, xmlData []byte) *teif.VerificationResult {
	result := o.verifier.Verify(xmlData)
	o.log.Info().
		Bool("valid", result.Valid).
		Str("reason", string(result.Reason)).
		Msg("vérification de signature TEIF")
	return result
}

// Status retourne la vue d'état d'une facture suivie.
func (o *TEIFOrchestrator) Status(invoiceID string) (domainteif.Snapshot, bool) {
	return o.statuses.Snapshot(invoiceID)
}

// Reset ramène une facture en erreur à l'état pending (seule sortie d'error).
func (o *TEIFOrchestrator) Reset(invoiceID string) error {
	if _, ok := o.statuses.Snapshot(invoiceID); !ok {
		return domainerr.ErrInvalidStatusTransition
	}
	return o.statuses.Obtain(invoiceID).Reset()
}

// loadSessionCertificate charge le matériel de signature selon la
// configuration: conteneur .p12 si CertPath se termine par .p12/.pfx, sinon
// paire PEM/DER.
func (o *TEIFOrchestrator) loadSessionCertificate() (*entity.CertificateInfo, error) {
	if o.cfg.CertPath == "" {
		return nil, fmt.Errorf("%w: aucun chemin de certificat configuré", domainerr.ErrCertificateNotFound)
	}
	if isP12(o.cfg.CertPath) {
		return o.certs.LoadFromP12(o.cfg.CertPath, o.cfg.CertPassword)
	}
	return o.certs.Load(o.cfg.CertPath, o.cfg.CertKeyPath)
}

func isP12(path string) bool {
	n := len(path)
	return (n > 4 && (path[n-4:] == ".p12" || path[n-4:] == ".pfx"))
}

// errorKind rend la nature d'une erreur de domaine pour la consultation de
// statut.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domainerr.ErrInvalidInvoiceData):
		return "INVALID_INVOICE_DATA"
	case errors.Is(err, domainerr.ErrCanonicalization):
		return "CANONICALIZATION_FAILURE"
	case errors.Is(err, domainerr.ErrCertificateNotFound):
		return "CERTIFICATE_NOT_FOUND"
	case errors.Is(err, domainerr.ErrKeyMismatch):
		return "KEY_MISMATCH"
	case errors.Is(err, domainerr.ErrCertificateExpired):
		return "CERTIFICATE_EXPIRED"
	case errors.Is(err, domainerr.ErrCertificateNotYetValid):
		return "CERTIFICATE_NOT_YET_VALID"
	case errors.Is(err, domainerr.ErrSigningFailed):
		return "SIGNING_FAILED"
	default:
		return "INTERNAL"
	}
}
