package domain

import "errors"

// Erreurs de domaine du noyau TEIF (sans dépendances externes).
var (
	ErrInvalidInvoiceData      = errors.New("données de facture invalides")
	ErrCanonicalization        = errors.New("échec de la canonicalisation XML")
	ErrCertificateNotFound     = errors.New("certificat ou clé privée introuvable")
	ErrKeyMismatch             = errors.New("la clé privée ne correspond pas au certificat")
	ErrCertificateExpired      = errors.New("certificat expiré")
	ErrCertificateNotYetValid  = errors.New("certificat pas encore valide")
	ErrSigningFailed           = errors.New("échec de la signature RSA")
	ErrDigestMismatch          = errors.New("digest recalculé différent du digest signé")
	ErrSignatureInvalid        = errors.New("valeur de signature invalide")
	ErrAlreadyInProgress       = errors.New("génération déjà en cours pour cette facture")
	ErrInvalidStatusTransition = errors.New("transition d'état non autorisée")
)
