// Constantes de la signature XAdES-B des documents TEIF.

package signer

// Namespaces XMLDSig / XAdES.
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"
)

// Algorithmes et transformations.
const (
	AlgExcC14N         = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// Type de la référence vers les SignedProperties (XAdES).
const SignedPropertiesType = "http://uri.etsi.org/01903#SignedProperties"

// Identifiant d'engagement XAdES: preuve d'origine (le fournisseur atteste
// avoir émis la facture).
const CommitmentProofOfOrigin = "http://uri.etsi.org/01903/v1.2.2#ProofOfOrigin"

// Identifiants du nœud de signature et de ses sous-structures.
// "SigFrs": signature du fournisseur.
const (
	SignatureID        = "SigFrs"
	SignedInfoID       = SignatureID + "-SignedInfo"
	SignedPropertiesID = SignatureID + "-SignedProperties"
	KeyInfoID          = SignatureID + "-KeyInfo"
	SignatureValueID   = SignatureID + "-SigValue"
)

// Format de l'horodatage de signature (UTC, XAdES SigningTime).
const SigningTimeLayout = "2006-01-02T15:04:05Z"
