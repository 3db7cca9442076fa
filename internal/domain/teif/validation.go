// Package teif contient les règles de domaine de la facture électronique
// TEIF 1.8.8: validation de la facture normalisée et machine d'états du
// cycle génération/signature.
package teif

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bfarhat/facturation-tn/internal/domain"
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	pkgteif "github.com/bfarhat/facturation-tn/pkg/teif"
)

var (
	rateMin = decimal.Zero
	rateMax = decimal.NewFromInt(100)
)

// ComputedTotals totaux recalculés à partir des lignes (3 décimales TND).
type ComputedTotals struct {
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeTotals additionne les lignes: montant de ligne = quantité × prix
// unitaire arrondi à 3 décimales, taxe de ligne = montant × taux / 100.
func ComputeTotals(lines []entity.LineItem) ComputedTotals {
	var subtotal, tax decimal.Decimal
	for _, l := range lines {
		lineNet := l.Quantity.Mul(l.UnitPrice).Round(pkgteif.AmountDecimals)
		lineTax := lineNet.Mul(l.TaxRate).Div(rateMax).Round(pkgteif.AmountDecimals)
		subtotal = subtotal.Add(lineNet)
		tax = tax.Add(lineTax)
	}
	return ComputedTotals{
		Subtotal:   subtotal,
		TaxTotal:   tax,
		GrandTotal: subtotal.Add(tax),
	}
}

// ValidateInvoice valide la facture normalisée avant l'assemblage du document:
// au moins une ligne, montants non négatifs, taux de taxe dans [0,100],
// matricules fiscaux structurellement valides et totaux cohérents s'ils sont
// fournis. Toute violation est enveloppée dans domain.ErrInvalidInvoiceData.
func ValidateInvoice(rec *entity.InvoiceRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: facture nulle", domain.ErrInvalidInvoiceData)
	}
	var errs []error

	if rec.Number == "" {
		errs = append(errs, errors.New("numéro de document manquant"))
	}
	if rec.IssueDate.IsZero() {
		errs = append(errs, errors.New("date d'émission manquante"))
	}
	if err := pkgteif.ValidateMatricule(rec.Supplier.Identifier); err != nil {
		errs = append(errs, fmt.Errorf("fournisseur: %w", err))
	}
	if err := pkgteif.ValidateMatricule(rec.Customer.Identifier); err != nil {
		errs = append(errs, fmt.Errorf("client: %w", err))
	}

	if len(rec.Lines) == 0 {
		errs = append(errs, errors.New("la facture doit comporter au moins une ligne"))
	}
	for i, l := range rec.Lines {
		if l.Quantity.IsNegative() {
			errs = append(errs, fmt.Errorf("ligne %d: quantité négative (%s)", i+1, l.Quantity))
		}
		if l.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Errorf("ligne %d: prix unitaire négatif (%s)", i+1, l.UnitPrice))
		}
		if l.TaxRate.LessThan(rateMin) || l.TaxRate.GreaterThan(rateMax) {
			errs = append(errs, fmt.Errorf("ligne %d: taux de taxe hors de [0,100] (%s)", i+1, l.TaxRate))
		}
	}

	// Totaux fournis par l'appelant: contrôlés contre le recalcul.
	if len(rec.Lines) > 0 && hasProvidedTotals(rec) {
		computed := ComputeTotals(rec.Lines)
		if !rec.Subtotal.Equal(computed.Subtotal) {
			errs = append(errs, fmt.Errorf("total HT fourni (%s) différent du recalcul (%s)",
				rec.Subtotal, computed.Subtotal))
		}
		if !rec.TaxTotal.Equal(computed.TaxTotal) {
			errs = append(errs, fmt.Errorf("total taxes fourni (%s) différent du recalcul (%s)",
				rec.TaxTotal, computed.TaxTotal))
		}
		if !rec.GrandTotal.Equal(computed.GrandTotal) {
			errs = append(errs, fmt.Errorf("total TTC fourni (%s) différent du recalcul (%s)",
				rec.GrandTotal, computed.GrandTotal))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrInvalidInvoiceData}, errs...)...)
	}
	return nil
}

func hasProvidedTotals(rec *entity.InvoiceRecord) bool {
	return !rec.Subtotal.IsZero() || !rec.TaxTotal.IsZero() || !rec.GrandTotal.IsZero()
}
