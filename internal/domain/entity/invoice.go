package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Party partie de la facture (fournisseur ou client).
type Party struct {
	Identifier string // matricule fiscal (avec ou sans séparateurs)
	Name       string
	Address    string
}

// LineItem ligne de facture. Quantité, prix unitaire HT et taux de taxe en
// pourcentage [0,100].
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Unit        string // code unité (PCE par défaut)
}

// InvoiceRecord facture normalisée, entrée immuable du noyau TEIF.
// Elle est produite par la couche d'extraction/CRUD (exclue du noyau) et
// n'est jamais modifiée ici.
//
// Subtotal/TaxTotal/GrandTotal sont optionnels: laissés à zéro, ils sont
// recalculés à partir des lignes; fournis, ils sont contrôlés contre le
// recalcul et un écart est une erreur de validation.
type InvoiceRecord struct {
	InvoiceID string // identifiant interne (clé du suivi d'état)
	Number    string // numéro de document
	IssueDate time.Time
	DueDate   *time.Time
	Currency  string // TND par défaut
	Supplier  Party
	Customer  Party
	Lines     []LineItem

	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}
