// Service de signature XAdES-B pour documents TEIF 1.8.8.
// Ajoute <ds:Signature> en dernier enfant de l'élément racine <TEIF>.

package signer

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/bfarhat/facturation-tn/internal/domain"
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	infrateif "github.com/bfarhat/facturation-tn/internal/infrastructure/teif"
	"github.com/bfarhat/facturation-tn/pkg/teif"
)

// SignatureService implémente le port de signature du noyau.
var _ teif.Signer = (*SignatureService)(nil)

// SignatureService construit la structure SignedInfo/SignedProperties, calcule
// les digests référencés et signe le SignedInfo canonique en RSA PKCS#1 v1.5
// sur SHA-256. Le padding PKCS#1 v1.5 étant déterministe, le même SignedInfo
// signé avec la même clé produit toujours la même valeur de signature.
type SignatureService struct {
	canon *infrateif.Canonicalizer
}

// NewSignatureService crée le service.
func NewSignatureService(canon *infrateif.Canonicalizer) *SignatureService {
	return &SignatureService{canon: canon}
}

// SignOptions paramètres d'une opération de signature.
type SignOptions struct {
	// Role rôle déclaré du signataire ("fournisseur" par défaut).
	Role string
	// SigningTime horodatage de signature. Capturé une seule fois: la même
	// valeur figure dans les SignedProperties, l'enregistrement retourné et
	// le contrôle de validité du certificat. Zéro: heure courante UTC.
	SigningTime time.Time
}

// Sign implémente teif.Signer: parse le XML de la facture, signe et
// sérialise le document signé.
func (s *SignatureService) Sign(xmlData []byte, cert *entity.CertificateInfo, role string) ([]byte, *entity.SignatureRecord, error) {
	doc, err := infrateif.ParseDocument(xmlData)
	if err != nil {
		return nil, nil, err
	}
	signed, record, err := s.SignDocument(doc, cert, SignOptions{Role: role})
	if err != nil {
		return nil, nil, err
	}
	out, err := signed.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	return out, record, nil
}

// SignDocument signe le document et retourne un nouveau document portant le
// nœud ds:Signature, avec l'enregistrement immuable de l'opération. Le
// document d'entrée n'est pas modifié; une re-signature produit un nouvel
// enregistrement et remplace l'ancien nœud.
func (s *SignatureService) SignDocument(doc *infrateif.TeifDocument, cert *entity.CertificateInfo, opts SignOptions) (*infrateif.TeifDocument, *entity.SignatureRecord, error) {
	if doc == nil || doc.Root() == nil {
		return nil, nil, fmt.Errorf("%w: document nul", domain.ErrSigningFailed)
	}
	if cert == nil || cert.PrivateKey == nil {
		return nil, nil, fmt.Errorf("%w: certificat sans clé privée", domain.ErrSigningFailed)
	}

	signingTime := opts.SigningTime
	if signingTime.IsZero() {
		signingTime = time.Now()
	}
	signingTime = signingTime.UTC().Truncate(time.Second)

	// Fenêtre de validité du certificat contrôlée à l'horodatage de signature.
	if signingTime.After(cert.NotAfter) {
		return nil, nil, fmt.Errorf("%w: NotAfter=%s, signature demandée à %s",
			domain.ErrCertificateExpired, cert.NotAfter.Format(time.RFC3339), signingTime.Format(time.RFC3339))
	}
	if signingTime.Before(cert.NotBefore) {
		return nil, nil, fmt.Errorf("%w: NotBefore=%s, signature demandée à %s",
			domain.ErrCertificateNotYetValid, cert.NotBefore.Format(time.RFC3339), signingTime.Format(time.RFC3339))
	}

	role := opts.Role
	if role == "" {
		role = "fournisseur"
	}
	return s.buildSignature(doc, cert, role, signingTime)
}

// buildSignature exécute l'assemblage et la signature proprement dits, sans
// contrôle de fenêtre de validité (déjà fait par Sign).
func (s *SignatureService) buildSignature(doc *infrateif.TeifDocument, cert *entity.CertificateInfo, role string, signingTime time.Time) (*infrateif.TeifDocument, *entity.SignatureRecord, error) {
	signed := doc.Copy()
	root := signed.Root()

	// Re-signature: l'ancien nœud est retiré avant tout calcul de digest.
	infrateif.RemoveSignatureElements(root)

	// 1) Digest du document, transformation enveloped-signature + C14N.
	docCanon, err := s.canon.CanonicalizeDocument(root)
	if err != nil {
		return nil, nil, err
	}
	docDigestB64 := Sha256B64(docCanon)

	// 2) SignedProperties: horodatage, digest du certificat, rôle, engagement.
	props := buildSignedProperties(cert, role, signingTime)
	propsCanon, err := s.canon.CanonicalizeElement(props)
	if err != nil {
		return nil, nil, err
	}
	propsDigestB64 := Sha256B64(propsCanon)

	// 3) SignedInfo référençant les deux digests.
	signedInfo := buildSignedInfo(docDigestB64, propsDigestB64)

	// 4) Signature RSA PKCS#1 v1.5 du SignedInfo canonique.
	siCanon, err := s.canon.CanonicalizeElement(signedInfo)
	if err != nil {
		return nil, nil, err
	}
	sigValue, err := rsa.SignPKCS1v15(nil, cert.PrivateKey, crypto.SHA256, Sha256(siCanon))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	// 5) Assemblage final du nœud ds:Signature.
	sig := assembleSignature(signedInfo, sigValue, cert, props)
	root.AddChild(sig)

	record := &entity.SignatureRecord{
		SignatureID:      uuid.NewString(),
		XMLSignatureID:   SignatureID,
		Role:             role,
		SigningTime:      signingTime,
		DocumentDigest:   docDigestB64,
		PropertiesDigest: propsDigestB64,
		SignatureValue:   sigValue,
		Certificate:      cert,
	}
	return signed, record, nil
}

// buildSignedProperties construit le bloc xades:SignedProperties. Les
// déclarations xmlns:xades et xmlns:ds sont posées sur l'élément lui-même
// pour que sa forme canonique soit identique avant insertion (signature) et
// après extraction (vérification).
func buildSignedProperties(cert *entity.CertificateInfo, role string, signingTime time.Time) *etree.Element {
	props := etree.NewElement("xades:SignedProperties")
	props.CreateAttr("xmlns:ds", NamespaceDS)
	props.CreateAttr("xmlns:xades", NamespaceXAdES)
	props.CreateAttr("Id", SignedPropertiesID)

	ssp := props.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(signingTime.Format(SigningTimeLayout))

	signingCert := ssp.CreateElement("xades:SigningCertificate")
	certEl := signingCert.CreateElement("xades:Cert")
	certDigest := certEl.CreateElement("xades:CertDigest")
	dm := certDigest.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", AlgSHA256)
	certDigest.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(cert.Digest))
	issuerSerial := certEl.CreateElement("xades:IssuerSerial")
	issuerSerial.CreateElement("ds:X509IssuerName").SetText(cert.Issuer)
	issuerSerial.CreateElement("ds:X509SerialNumber").SetText(cert.SerialNumber)

	signerRole := ssp.CreateElement("xades:SignerRole")
	claimed := signerRole.CreateElement("xades:ClaimedRoles")
	claimed.CreateElement("xades:ClaimedRole").SetText(role)

	sdop := props.CreateElement("xades:SignedDataObjectProperties")
	commitment := sdop.CreateElement("xades:CommitmentTypeIndication")
	commitmentID := commitment.CreateElement("xades:CommitmentTypeId")
	commitmentID.CreateElement("xades:Identifier").SetText(CommitmentProofOfOrigin)
	commitment.CreateElement("xades:AllSignedDataObjects")

	return props
}

// buildSignedInfo construit le ds:SignedInfo: référence au document entier
// (URI vide, transformations enveloped + C14N exclusif) et référence aux
// SignedProperties par fragment.
func buildSignedInfo(docDigestB64, propsDigestB64 string) *etree.Element {
	si := etree.NewElement("ds:SignedInfo")
	si.CreateAttr("xmlns:ds", NamespaceDS)
	si.CreateAttr("Id", SignedInfoID)

	cm := si.CreateElement("ds:CanonicalizationMethod")
	cm.CreateAttr("Algorithm", AlgExcC14N)
	sm := si.CreateElement("ds:SignatureMethod")
	sm.CreateAttr("Algorithm", AlgRSASHA256)

	refDoc := si.CreateElement("ds:Reference")
	refDoc.CreateAttr("URI", "")
	transforms := refDoc.CreateElement("ds:Transforms")
	t1 := transforms.CreateElement("ds:Transform")
	t1.CreateAttr("Algorithm", TransformEnveloped)
	t2 := transforms.CreateElement("ds:Transform")
	t2.CreateAttr("Algorithm", AlgExcC14N)
	dm := refDoc.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", AlgSHA256)
	refDoc.CreateElement("ds:DigestValue").SetText(docDigestB64)

	refProps := si.CreateElement("ds:Reference")
	refProps.CreateAttr("Type", SignedPropertiesType)
	refProps.CreateAttr("URI", "#"+SignedPropertiesID)
	propsTransforms := refProps.CreateElement("ds:Transforms")
	t3 := propsTransforms.CreateElement("ds:Transform")
	t3.CreateAttr("Algorithm", AlgExcC14N)
	dm2 := refProps.CreateElement("ds:DigestMethod")
	dm2.CreateAttr("Algorithm", AlgSHA256)
	refProps.CreateElement("ds:DigestValue").SetText(propsDigestB64)

	return si
}

// assembleSignature assemble le nœud ds:Signature complet: SignedInfo,
// SignatureValue, KeyInfo (certificat, sujet, émetteur/série) et
// QualifyingProperties portant les SignedProperties.
func assembleSignature(signedInfo *etree.Element, sigValue []byte, cert *entity.CertificateInfo, props *etree.Element) *etree.Element {
	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.CreateAttr("xmlns:xades", NamespaceXAdES)
	sig.CreateAttr("Id", SignatureID)

	sig.AddChild(signedInfo)

	sv := sig.CreateElement("ds:SignatureValue")
	sv.CreateAttr("Id", SignatureValueID)
	sv.SetText(base64.StdEncoding.EncodeToString(sigValue))

	keyInfo := sig.CreateElement("ds:KeyInfo")
	keyInfo.CreateAttr("Id", KeyInfoID)
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(cert.Raw))
	x509Data.CreateElement("ds:X509SubjectName").SetText(cert.Subject)
	issuerSerial := x509Data.CreateElement("ds:X509IssuerSerial")
	issuerSerial.CreateElement("ds:X509IssuerName").SetText(cert.Issuer)
	issuerSerial.CreateElement("ds:X509SerialNumber").SetText(cert.SerialNumber)

	object := sig.CreateElement("ds:Object")
	qp := object.CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("Target", "#"+SignatureID)
	qp.AddChild(props)

	return sig
}
