// Vérification de signature XAdES-B d'un document TEIF signé.
//
// La procédure recrée chaque digest dans l'ordre et s'arrête à la première
// divergence. L'invalidité (document altéré, signature fausse, certificat
// hors fenêtre) est un résultat métier structuré, jamais une erreur: verify
// ne propage pas de faute pour un document invalide.

package signer

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	infrateif "github.com/bfarhat/facturation-tn/internal/infrastructure/teif"
	"github.com/bfarhat/facturation-tn/pkg/teif"
)

// VerificationService recalcule les digests d'un document signé et vérifie
// la valeur de signature contre la clé publique du certificat embarqué.
type VerificationService struct {
	canon *infrateif.Canonicalizer
}

// VerificationService implémente le port de vérification du noyau.
var _ teif.Verifier = (*VerificationService)(nil)

// NewVerificationService crée le service.
func NewVerificationService(canon *infrateif.Canonicalizer) *VerificationService {
	return &VerificationService{canon: canon}
}

// Verify vérifie le document signé, dans l'ordre:
//  1. digest du document (signature exclue) contre le DigestValue embarqué;
//  2. digest des SignedProperties contre leur référence;
//  3. valeur de signature RSA sur le SignedInfo canonique;
//  4. fenêtre de validité du certificat à l'horodatage de signature déclaré.
func (v *VerificationService) Verify(data []byte) *teif.VerificationResult {
	doc, err := infrateif.ParseDocument(data)
	if err != nil {
		return teif.Invalid(teif.ReasonMalformedDocument, err.Error())
	}
	root := doc.Root()

	sigEl := findDescendant(root, "Signature")
	if sigEl == nil {
		return teif.Invalid(teif.ReasonMalformedDocument, "aucun nœud ds:Signature dans le document")
	}
	signedInfo := findDescendant(sigEl, "SignedInfo")
	sigValueEl := findDescendant(sigEl, "SignatureValue")
	keyInfo := findDescendant(sigEl, "KeyInfo")
	props := findDescendant(sigEl, "SignedProperties")
	if signedInfo == nil || sigValueEl == nil || keyInfo == nil || props == nil {
		return teif.Invalid(teif.ReasonMalformedDocument, "structure de signature incomplète")
	}

	// 1) Digest du document: le nœud de signature est exclu par la
	// transformation enveloped, exactement comme à la signature.
	docCanon, err := v.canon.CanonicalizeDocument(root)
	if err != nil {
		return teif.Invalid(teif.ReasonMalformedDocument, err.Error())
	}
	embeddedDocDigest, ok := referenceDigest(signedInfo, "")
	if !ok {
		return teif.Invalid(teif.ReasonMalformedDocument, "référence au document (URI vide) absente du SignedInfo")
	}
	if Sha256B64(docCanon) != embeddedDocDigest {
		return teif.Invalid(teif.ReasonDigestMismatch, "le digest recalculé du document diffère du digest signé")
	}

	// 2) Digest des SignedProperties.
	propsCopy := withSignatureNamespaces(props)
	propsCanon, err := v.canon.CanonicalizeElement(propsCopy)
	if err != nil {
		return teif.Invalid(teif.ReasonMalformedDocument, err.Error())
	}
	propsURI := "#"
	if attr := props.SelectAttr("Id"); attr != nil {
		propsURI += attr.Value
	}
	embeddedPropsDigest, ok := referenceDigest(signedInfo, propsURI)
	if !ok {
		return teif.Invalid(teif.ReasonMalformedDocument, "référence aux SignedProperties absente du SignedInfo")
	}
	if Sha256B64(propsCanon) != embeddedPropsDigest {
		return teif.Invalid(teif.ReasonDigestMismatch, "le digest recalculé des SignedProperties diffère du digest signé")
	}

	// 3) Valeur de signature sur le SignedInfo canonique.
	info, result := extractCertificate(keyInfo)
	if result != nil {
		return result
	}
	sigValue, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sigValueEl.Text()))
	if err != nil {
		return teif.Invalid(teif.ReasonSignatureInvalid, "SignatureValue base64 illisible")
	}
	siCopy := withSignatureNamespaces(signedInfo)
	siCanon, err := v.canon.CanonicalizeElement(siCopy)
	if err != nil {
		return teif.Invalid(teif.ReasonMalformedDocument, err.Error())
	}
	pub, okPub := info.Certificate.PublicKey.(*rsa.PublicKey)
	if !okPub {
		return teif.Invalid(teif.ReasonSignatureInvalid, "le certificat embarqué ne porte pas de clé publique RSA")
	}
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, Sha256(siCanon), sigValue); err != nil {
		return teif.Invalid(teif.ReasonSignatureInvalid, "la valeur de signature ne correspond pas au SignedInfo")
	}

	// 4) Fenêtre de validité du certificat, à l'horodatage déclaré (XAdES).
	signingTime, okTime := extractSigningTime(props)
	if !okTime {
		return teif.Invalid(teif.ReasonMalformedDocument, "SigningTime absent ou illisible")
	}
	if signingTime.After(info.NotAfter) {
		return teif.Invalid(teif.ReasonCertificateExpired, "certificat expiré à l'horodatage de signature déclaré")
	}
	if signingTime.Before(info.NotBefore) {
		return teif.Invalid(teif.ReasonCertificateNotYetValid, "certificat pas encore valide à l'horodatage déclaré")
	}

	return &teif.VerificationResult{
		Valid:         true,
		SignerSubject: info.Subject,
		SignedAt:      signingTime,
	}
}

// extractCertificate lit le certificat DER du ds:X509Certificate du KeyInfo.
func extractCertificate(keyInfo *etree.Element) (*entity.CertificateInfo, *teif.VerificationResult) {
	certEl := findDescendant(keyInfo, "X509Certificate")
	if certEl == nil {
		return nil, teif.Invalid(teif.ReasonMalformedDocument, "X509Certificate absent du KeyInfo")
	}
	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(certEl.Text()))
	if err != nil {
		return nil, teif.Invalid(teif.ReasonSignatureInvalid, "certificat base64 illisible")
	}
	info, err := ParseCertificateInfo(der)
	if err != nil {
		return nil, teif.Invalid(teif.ReasonSignatureInvalid, err.Error())
	}
	return info, nil
}

// extractSigningTime lit le xades:SigningTime des SignedProperties.
func extractSigningTime(props *etree.Element) (time.Time, bool) {
	el := findDescendant(props, "SigningTime")
	if el == nil {
		return time.Time{}, false
	}
	text := strings.TrimSpace(el.Text())
	for _, layout := range []string{SigningTimeLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// referenceDigest retourne le DigestValue de la ds:Reference dont l'URI
// correspond.
func referenceDigest(signedInfo *etree.Element, uri string) (string, bool) {
	for _, ref := range signedInfo.ChildElements() {
		if ref.Tag != "Reference" {
			continue
		}
		attr := ref.SelectAttr("URI")
		if attr == nil || attr.Value != uri {
			continue
		}
		dv := findDescendant(ref, "DigestValue")
		if dv == nil {
			return "", false
		}
		return strings.TrimSpace(dv.Text()), true
	}
	return "", false
}

// withSignatureNamespaces copie le sous-arbre et garantit que xmlns:ds et
// xmlns:xades y sont déclarés: la déclaration peut vivre sur un ancêtre
// retiré de la copie, or la forme canonique doit être identique à celle
// calculée côté signature.
func withSignatureNamespaces(el *etree.Element) *etree.Element {
	dup := el.Copy()
	if dup.SelectAttr("xmlns:ds") == nil {
		dup.CreateAttr("xmlns:ds", NamespaceDS)
	}
	if dup.SelectAttr("xmlns:xades") == nil {
		dup.CreateAttr("xmlns:xades", NamespaceXAdES)
	}
	return dup
}

// findDescendant cherche le premier élément du sous-arbre portant ce nom
// local, quel que soit le préfixe de namespace.
func findDescendant(el *etree.Element, localName string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == localName {
			return child
		}
		if found := findDescendant(child, localName); found != nil {
			return found
		}
	}
	return nil
}
