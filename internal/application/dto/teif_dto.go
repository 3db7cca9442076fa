package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bfarhat/facturation-tn/internal/domain/entity"
)

// PartyDTO partenaire commercial (fournisseur ou client).
type PartyDTO struct {
	Identifier string `json:"identifier"` // matricule fiscal, 13 caractères
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
}

// LineItemDTO ligne de facture.
type LineItemDTO struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"` // hors taxes, TND
	TaxRate     decimal.Decimal `json:"tax_rate"`   // % TVA, ex: 19
	Unit        string          `json:"unit,omitempty"`
}

// GenerateTeifRequest body pour POST /api/teif/generate.
// Les totaux sont optionnels; s'ils sont fournis ils sont recoupés avec les
// montants recalculés à partir des lignes.
type GenerateTeifRequest struct {
	InvoiceID  string          `json:"invoice_id"`
	Number     string          `json:"number"`
	IssueDate  string          `json:"issue_date"`          // YYYY-MM-DD
	DueDate    string          `json:"due_date,omitempty"`  // YYYY-MM-DD
	Currency   string          `json:"currency,omitempty"`  // défaut TND
	Supplier   PartyDTO        `json:"supplier"`
	Customer   PartyDTO        `json:"customer"`
	Lines      []LineItemDTO   `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal,omitempty"`
	TaxTotal   decimal.Decimal `json:"tax_total,omitempty"`
	GrandTotal decimal.Decimal `json:"grand_total,omitempty"`
}

// ToEntity convertit la requête en facture normalisée du domaine.
func (r *GenerateTeifRequest) ToEntity() (*entity.InvoiceRecord, error) {
	issue, err := time.Parse("2006-01-02", r.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("issue_date invalide (attendu YYYY-MM-DD): %q", r.IssueDate)
	}
	var due *time.Time
	if r.DueDate != "" {
		d, err := time.Parse("2006-01-02", r.DueDate)
		if err != nil {
			return nil, fmt.Errorf("due_date invalide (attendu YYYY-MM-DD): %q", r.DueDate)
		}
		due = &d
	}

	lines := make([]entity.LineItem, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, entity.LineItem{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			Unit:        l.Unit,
		})
	}

	return &entity.InvoiceRecord{
		InvoiceID:  r.InvoiceID,
		Number:     r.Number,
		IssueDate:  issue,
		DueDate:    due,
		Currency:   r.Currency,
		Supplier:   entity.Party{Identifier: r.Supplier.Identifier, Name: r.Supplier.Name, Address: r.Supplier.Address},
		Customer:   entity.Party{Identifier: r.Customer.Identifier, Name: r.Customer.Name, Address: r.Customer.Address},
		Lines:      lines,
		Subtotal:   r.Subtotal,
		TaxTotal:   r.TaxTotal,
		GrandTotal: r.GrandTotal,
	}, nil
}

// GenerateTeifResponse document TEIF non signé sérialisé.
type GenerateTeifResponse struct {
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
	XML       string `json:"xml"`
}

// SignTeifRequest body pour POST /api/teif/:invoiceID/sign.
type SignTeifRequest struct {
	XML  string `json:"xml"`            // document TEIF généré, tel quel
	Role string `json:"role,omitempty"` // défaut: rôle configuré (fournisseur)
}

// SignTeifResponse document signé + métadonnées de la signature.
type SignTeifResponse struct {
	InvoiceID      string `json:"invoice_id"`
	Status         string `json:"status"`
	SignatureID    string `json:"signature_id"`
	Role           string `json:"role"`
	SigningTime    string `json:"signing_time"` // UTC, ISO 8601
	DocumentDigest string `json:"document_digest"`
	XML            string `json:"xml"`
}

// VerifyTeifRequest body pour POST /api/teif/verify.
type VerifyTeifRequest struct {
	XML string `json:"xml"`
}

// VerifyTeifResponse résultat structuré de vérification.
type VerifyTeifResponse struct {
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	Detail        string `json:"detail,omitempty"`
	SignerSubject string `json:"signer_subject,omitempty"`
	SignedAt      string `json:"signed_at,omitempty"` // UTC, ISO 8601
}

// TeifStatusResponse vue d'état du cycle TEIF d'une facture.
type TeifStatusResponse struct {
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	UpdatedAt string `json:"updated_at"` // UTC, ISO 8601
}
