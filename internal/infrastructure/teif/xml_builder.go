package teif

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	domainteif "github.com/bfarhat/facturation-tn/internal/domain/teif"
	"github.com/bfarhat/facturation-tn/pkg/teif"
)

// XMLBuilderService assemble le document TEIF 1.8.8 (sans signature) à partir
// de la facture normalisée. Transformation pure: même facture, mêmes octets.
type XMLBuilderService struct{}

// NewXMLBuilderService crée le service.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build valide la facture puis génère le document TEIF. L'ordre des sections
// est fixe (entête, partenaires, lignes dans l'ordre d'origine, taxes,
// totaux) et les lignes reçoivent un lineNumber séquentiel à partir de 1.
// Aucune section de signature n'est présente à ce stade.
func (s *XMLBuilderService) Build(rec *entity.InvoiceRecord) (*TeifDocument, error) {
	if err := domainteif.ValidateInvoice(rec); err != nil {
		return nil, err
	}

	currency := rec.Currency
	if currency == "" {
		currency = teif.DefaultCurrency
	}
	totals := domainteif.ComputeTotals(rec.Lines)

	doc := newDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rootID := "TEIF-" + rec.Number
	root := doc.CreateElement("TEIF")
	root.CreateAttr("Id", rootID)
	root.CreateAttr("controlingAgency", teif.ControlingAgency)
	root.CreateAttr("version", teif.Version)

	// ---- InvoiceHeader: identifiants fiscaux émetteur/récepteur.
	// "Reciever" reprend l'orthographe du schéma TEIF publié par TTN.
	header := root.CreateElement("InvoiceHeader")
	sender := header.CreateElement("MessageSenderIdentifier")
	sender.CreateAttr("type", teif.IdentifierMatriculeFiscal)
	sender.SetText(teif.NormalizeMatricule(rec.Supplier.Identifier))
	receiver := header.CreateElement("MessageRecieverIdentifier")
	receiver.CreateAttr("type", teif.IdentifierMatriculeFiscal)
	receiver.SetText(teif.NormalizeMatricule(rec.Customer.Identifier))

	body := root.CreateElement("InvoiceBody")

	// ---- Bgm: identification du document.
	bgm := body.CreateElement("Bgm")
	bgm.CreateElement("DocumentIdentifier").SetText(rec.Number)
	docType := bgm.CreateElement("DocumentType")
	docType.CreateAttr("code", teif.DocumentTypeInvoice)
	docType.SetText("Facture")

	// ---- Dtm: dates (émission obligatoire, échéance optionnelle).
	writeDate(body, teif.DateIssue, rec.IssueDate)
	if rec.DueDate != nil {
		writeDate(body, teif.DateDue, *rec.DueDate)
	}

	// ---- PartnerSection: fournisseur puis client, ordre fixe.
	partners := body.CreateElement("PartnerSection")
	writePartner(partners, teif.PartnerSupplier, rec.Supplier)
	writePartner(partners, teif.PartnerCustomer, rec.Customer)

	// ---- LinSection: lignes dans l'ordre d'origine, lineNumber dès 1.
	linSection := body.CreateElement("LinSection")
	for i, line := range rec.Lines {
		writeLine(linSection, i+1, line, currency)
	}

	// ---- InvoiceMoa: totaux du document.
	invoiceMoa := body.CreateElement("InvoiceMoa")
	amounts := invoiceMoa.CreateElement("AmountDetails")
	writeMoa(amounts, teif.AmountTotalWithoutTax, totals.Subtotal, currency)
	writeMoa(amounts, teif.AmountTotalTax, totals.TaxTotal, currency)
	writeMoa(amounts, teif.AmountTotalWithTax, totals.GrandTotal, currency)

	// ---- InvoiceTax: agrégats de TVA par taux (assiette + montant), dans
	// l'ordre d'apparition.
	invoiceTax := body.CreateElement("InvoiceTax")
	for _, agg := range aggregateTaxes(rec.Lines) {
		details := invoiceTax.CreateElement("InvoiceTaxDetails")
		writeTax(details, agg.Rate)
		taxAmounts := details.CreateElement("AmountDetails")
		writeMoa(taxAmounts, teif.AmountTotalWithoutTax, agg.Basis, currency)
		writeMoa(taxAmounts, teif.AmountTotalTax, agg.Amount, currency)
	}

	return &TeifDocument{doc: doc, RootID: rootID, LineCount: len(rec.Lines)}, nil
}

func writeDate(parent *etree.Element, functionCode string, t time.Time) {
	dtm := parent.CreateElement("Dtm")
	date := dtm.CreateElement("DateText")
	date.CreateAttr("format", teif.DateTextFormat)
	date.CreateAttr("functionCode", functionCode)
	date.SetText(teif.FormatDate(t))
}

func writePartner(parent *etree.Element, functionCode string, p entity.Party) {
	details := parent.CreateElement("PartnerDetails")
	details.CreateAttr("functionCode", functionCode)
	nad := details.CreateElement("Nad")
	id := nad.CreateElement("PartnerIdentifier")
	id.CreateAttr("type", teif.IdentifierMatriculeFiscal)
	id.SetText(teif.NormalizeMatricule(p.Identifier))
	nad.CreateElement("PartnerName").SetText(p.Name)
	if p.Address != "" {
		addr := nad.CreateElement("PartnerAdresses")
		addr.CreateElement("AdressDescription").SetText(p.Address)
	}
}

func writeLine(parent *etree.Element, number int, line entity.LineItem, currency string) {
	unit := line.Unit
	if unit == "" {
		unit = teif.UnitPiece
	}
	lineNet := line.Quantity.Mul(line.UnitPrice).Round(teif.AmountDecimals)

	lin := parent.CreateElement("Lin")
	lin.CreateAttr("lineNumber", strconv.Itoa(number))
	desc := lin.CreateElement("ItemDescription")
	desc.CreateAttr("lang", "fr")
	desc.SetText(line.Description)
	qty := lin.CreateElement("Quantity")
	qty.CreateAttr("measurementUnit", unit)
	qty.SetText(teif.FormatAmount(line.Quantity))
	writeMoa(lin, teif.AmountUnitPrice, line.UnitPrice, currency)
	writeMoa(lin, teif.AmountLineNet, lineNet, currency)
	writeTax(lin, line.TaxRate)
}

func writeMoa(parent *etree.Element, amountTypeCode string, amount decimal.Decimal, currency string) {
	moa := parent.CreateElement("Moa")
	moa.CreateAttr("amountTypeCode", amountTypeCode)
	a := moa.CreateElement("Amount")
	a.CreateAttr("currencyIdentifier", currency)
	a.SetText(teif.FormatAmount(amount))
}

func writeTax(parent *etree.Element, rate decimal.Decimal) {
	tax := parent.CreateElement("Tax")
	name := tax.CreateElement("TaxTypeName")
	name.CreateAttr("code", teif.TaxTVA)
	name.SetText("TVA")
	details := tax.CreateElement("TaxDetails")
	details.CreateElement("TaxRate").SetText(teif.FormatRate(rate))
}

type taxAggregate struct {
	Rate   decimal.Decimal
	Basis  decimal.Decimal
	Amount decimal.Decimal
}

// aggregateTaxes regroupe les taxes par taux (assiette et montant), dans
// l'ordre d'apparition des lignes, pour la section InvoiceTax.
func aggregateTaxes(lines []entity.LineItem) []taxAggregate {
	var order []string
	byRate := make(map[string]*taxAggregate)
	for _, l := range lines {
		lineNet := l.Quantity.Mul(l.UnitPrice).Round(teif.AmountDecimals)
		lineTax := lineNet.Mul(l.TaxRate).Div(decimal.NewFromInt(100)).Round(teif.AmountDecimals)
		key := teif.FormatRate(l.TaxRate)
		agg, ok := byRate[key]
		if !ok {
			agg = &taxAggregate{Rate: l.TaxRate}
			byRate[key] = agg
			order = append(order, key)
		}
		agg.Basis = agg.Basis.Add(lineNet)
		agg.Amount = agg.Amount.Add(lineTax)
	}
	out := make([]taxAggregate, 0, len(order))
	for _, key := range order {
		out = append(out, *byRate[key])
	}
	return out
}
