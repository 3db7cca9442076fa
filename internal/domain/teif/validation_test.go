package teif_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfarhat/facturation-tn/internal/domain"
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	"github.com/bfarhat/facturation-tn/internal/domain/teif"
)

const (
	testMatriculeFrs = "1234567AAM001" // matricule fiscal fournisseur valide
	testMatriculeClt = "7654321BPM002" // matricule fiscal client valide
)

func buildTestInvoice() *entity.InvoiceRecord {
	return &entity.InvoiceRecord{
		InvoiceID: "inv-001",
		Number:    "FAC-2026-0042",
		IssueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Currency:  "TND",
		Supplier:  entity.Party{Identifier: testMatriculeFrs, Name: "Société Exemple SARL", Address: "Tunis"},
		Customer:  entity.Party{Identifier: testMatriculeClt, Name: "Client SA", Address: "Sfax"},
		Lines: []entity.LineItem{
			{
				Description: "Service A",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.RequireFromString("100.000"),
				TaxRate:     decimal.NewFromInt(19),
			},
		},
	}
}

// TestComputeTotals_ExempleTravaille vérifie le calcul de référence:
// 2 × 100.000 TND à 19% de TVA => HT 200.000, TVA 38.000, TTC 238.000.
func TestComputeTotals_ExempleTravaille(t *testing.T) {
	totals := teif.ComputeTotals(buildTestInvoice().Lines)

	assert.Equal(t, "200.000", totals.Subtotal.StringFixed(3))
	assert.Equal(t, "38.000", totals.TaxTotal.StringFixed(3))
	assert.Equal(t, "238.000", totals.GrandTotal.StringFixed(3))
}

// TestComputeTotals_ArrondiParLigne vérifie que l'arrondi à 3 décimales se
// fait ligne par ligne, pas sur la somme: 3 × 0.3335 = 1.0005 -> 1.001 (net),
// puis TVA 19% de 1.001 = 0.19019 -> 0.190.
func TestComputeTotals_ArrondiParLigne(t *testing.T) {
	lines := []entity.LineItem{
		{
			Description: "Micro-ligne",
			Quantity:    decimal.NewFromInt(3),
			UnitPrice:   decimal.RequireFromString("0.3335"),
			TaxRate:     decimal.NewFromInt(19),
		},
	}
	totals := teif.ComputeTotals(lines)

	assert.Equal(t, "1.001", totals.Subtotal.StringFixed(3))
	assert.Equal(t, "0.190", totals.TaxTotal.StringFixed(3))
	assert.Equal(t, "1.191", totals.GrandTotal.StringFixed(3))
}

// TestValidateInvoice_Valide une facture complète et cohérente passe.
func TestValidateInvoice_Valide(t *testing.T) {
	require.NoError(t, teif.ValidateInvoice(buildTestInvoice()))
}

// TestValidateInvoice_TotauxFournisCoherents les totaux fournis par
// l'appelant sont acceptés quand ils recoupent le recalcul.
func TestValidateInvoice_TotauxFournisCoherents(t *testing.T) {
	rec := buildTestInvoice()
	rec.Subtotal = decimal.RequireFromString("200.000")
	rec.TaxTotal = decimal.RequireFromString("38.000")
	rec.GrandTotal = decimal.RequireFromString("238.000")

	require.NoError(t, teif.ValidateInvoice(rec))
}

// TestValidateInvoice_TotauxIncoherents un grand total fourni qui ne recoupe
// pas le recalcul est une violation.
func TestValidateInvoice_TotauxIncoherents(t *testing.T) {
	rec := buildTestInvoice()
	rec.Subtotal = decimal.RequireFromString("200.000")
	rec.TaxTotal = decimal.RequireFromString("38.000")
	rec.GrandTotal = decimal.RequireFromString("999.000")

	err := teif.ValidateInvoice(rec)
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceData)
	assert.Contains(t, err.Error(), "total TTC")
}

func TestValidateInvoice_Violations(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(rec *entity.InvoiceRecord)
		wantMsg string
	}{
		{
			name:    "facture sans ligne",
			mutate:  func(rec *entity.InvoiceRecord) { rec.Lines = nil },
			wantMsg: "au moins une ligne",
		},
		{
			name:    "numéro manquant",
			mutate:  func(rec *entity.InvoiceRecord) { rec.Number = "" },
			wantMsg: "numéro",
		},
		{
			name:    "date d'émission manquante",
			mutate:  func(rec *entity.InvoiceRecord) { rec.IssueDate = time.Time{} },
			wantMsg: "date d'émission",
		},
		{
			name: "quantité négative",
			mutate: func(rec *entity.InvoiceRecord) {
				rec.Lines[0].Quantity = decimal.NewFromInt(-1)
			},
			wantMsg: "quantité négative",
		},
		{
			name: "prix unitaire négatif",
			mutate: func(rec *entity.InvoiceRecord) {
				rec.Lines[0].UnitPrice = decimal.RequireFromString("-5.000")
			},
			wantMsg: "prix unitaire négatif",
		},
		{
			name: "taux de taxe hors bornes",
			mutate: func(rec *entity.InvoiceRecord) {
				rec.Lines[0].TaxRate = decimal.NewFromInt(120)
			},
			wantMsg: "taux de taxe",
		},
		{
			name: "matricule fournisseur invalide",
			mutate: func(rec *entity.InvoiceRecord) {
				rec.Supplier.Identifier = "123"
			},
			wantMsg: "fournisseur",
		},
		{
			name: "matricule client invalide",
			mutate: func(rec *entity.InvoiceRecord) {
				rec.Customer.Identifier = "7654321ZZZ002"
			},
			wantMsg: "client",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := buildTestInvoice()
			tc.mutate(rec)

			err := teif.ValidateInvoice(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInvoiceData)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

// TestValidateInvoice_FactureNulle le cas nil est rejeté sans panique.
func TestValidateInvoice_FactureNulle(t *testing.T) {
	err := teif.ValidateInvoice(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceData)
}
