// Package teif contient les catalogues de codes et les formats du standard
// TEIF 1.8.8 (Tunisie TradeNet), ainsi que les ports du noyau de signature.
package teif

import (
	"time"

	"github.com/shopspring/decimal"
)

// Version et agence de contrôle du document TEIF.
const (
	Version          = "1.8.8"
	ControlingAgency = "TTN"
	DefaultCurrency  = "TND"
)

// =============================================================================
// Types de document (Bgm @documentTypeCode)
// =============================================================================

const (
	DocumentTypeInvoice    = "I-11" // Facture
	DocumentTypeCreditNote = "I-12" // Avoir
)

// =============================================================================
// Fonctions de date (Dtm/DateText @functionCode)
// =============================================================================

const (
	DateIssue = "I-31" // Date d'émission de la facture
	DateDue   = "I-32" // Date limite de paiement
)

// DateTextFormat format déclaré dans l'attribut @format des éléments DateText.
const DateTextFormat = "ddMMyy"

// FormatDate rend une date au format compact TEIF (ddMMyy).
func FormatDate(t time.Time) string {
	return t.Format("020106")
}

// =============================================================================
// Fonctions de partenaire (PartnerDetails @functionCode)
// =============================================================================

const (
	PartnerSupplier = "I-62" // Fournisseur (émetteur de la facture)
	PartnerCustomer = "I-64" // Client (récepteur de la facture)
)

// =============================================================================
// Types de montant (Moa/Amount @amountTypeCode)
// =============================================================================

const (
	AmountTotalWithoutTax = "I-176" // Montant total hors taxes
	AmountTotalTax        = "I-178" // Montant total des taxes
	AmountTotalWithTax    = "I-180" // Montant total toutes taxes comprises
	AmountLineNet         = "I-182" // Montant net de la ligne (hors taxes)
	AmountUnitPrice       = "I-183" // Prix unitaire hors taxes
)

// =============================================================================
// Codes de taxe (Tax/TaxTypeName @code)
// =============================================================================

const (
	TaxTVA         = "I-1602" // Taxe sur la valeur ajoutée
	TaxDroitTimbre = "I-1601" // Droit de timbre
)

// =============================================================================
// Types d'identifiant de partenaire (attribut @type)
// =============================================================================

const (
	IdentifierMatriculeFiscal = "I-01" // Matricule fiscal tunisien
	IdentifierCarteIdentite   = "I-02" // Carte d'identité nationale
	IdentifierCarteSejour     = "I-03" // Carte de séjour
)

// Unité de mesure par défaut des quantités (pièce/unité, code UNECE).
const UnitPiece = "PCE"

// AmountDecimals nombre de décimales des montants TEIF (millimes, TND).
const AmountDecimals = 3

// FormatAmount rend un montant avec les 3 décimales du dinar tunisien.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(AmountDecimals).StringFixed(AmountDecimals)
}

// FormatRate rend un taux de taxe en pourcentage sans zéros superflus.
func FormatRate(d decimal.Decimal) string {
	return d.Round(2).String()
}
