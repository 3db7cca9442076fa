package teif_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfarhat/facturation-tn/internal/domain"
	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	infrateif "github.com/bfarhat/facturation-tn/internal/infrastructure/teif"
)

const (
	testMatriculeFrs = "1234567AAM001"
	testMatriculeClt = "7654321BPM002"
)

func buildTestInvoice() *entity.InvoiceRecord {
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	return &entity.InvoiceRecord{
		InvoiceID: "inv-001",
		Number:    "FAC-2026-0042",
		IssueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:   &due,
		Currency:  "TND",
		Supplier:  entity.Party{Identifier: testMatriculeFrs, Name: "Société Exemple SARL", Address: "Avenue Habib Bourguiba, Tunis"},
		Customer:  entity.Party{Identifier: testMatriculeClt, Name: "Client SA", Address: "Route de Gabès, Sfax"},
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

func mustParse(t *testing.T, data []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	return doc
}

// TestBuild_ExempleTravaille vérifie la structure complète du document pour
// la facture de référence: 1 ligne "Service A", 2 × 100.000 TND à 19% de TVA
// => HT 200.000, TVA 38.000, TTC 238.000.
func TestBuild_ExempleTravaille(t *testing.T) {
	svc := infrateif.NewXMLBuilderService()

	td, err := svc.Build(buildTestInvoice())
	require.NoError(t, err)
	assert.Equal(t, "TEIF-FAC-2026-0042", td.RootID)
	assert.Equal(t, 1, td.LineCount)

	data, err := td.Bytes()
	require.NoError(t, err)
	doc := mustParse(t, data)

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "TEIF", root.Tag)
	assert.Equal(t, "TEIF-FAC-2026-0042", root.SelectAttrValue("Id", ""))
	assert.Equal(t, "TTN", root.SelectAttrValue("controlingAgency", ""))
	assert.Equal(t, "1.8.8", root.SelectAttrValue("version", ""))

	// Entête: identifiants fiscaux. "Reciever" est l'orthographe du schéma TTN.
	sender := doc.FindElement("//InvoiceHeader/MessageSenderIdentifier")
	require.NotNil(t, sender)
	assert.Equal(t, "I-01", sender.SelectAttrValue("type", ""))
	assert.Equal(t, testMatriculeFrs, sender.Text())
	receiver := doc.FindElement("//InvoiceHeader/MessageRecieverIdentifier")
	require.NotNil(t, receiver)
	assert.Equal(t, testMatriculeClt, receiver.Text())

	// Bgm: identification du document.
	assert.Equal(t, "FAC-2026-0042", doc.FindElement("//Bgm/DocumentIdentifier").Text())
	docType := doc.FindElement("//Bgm/DocumentType")
	require.NotNil(t, docType)
	assert.Equal(t, "I-11", docType.SelectAttrValue("code", ""))

	// Dtm: émission (I-31) et échéance (I-32) au format ddMMyy.
	dates := doc.FindElements("//Dtm/DateText")
	require.Len(t, dates, 2)
	assert.Equal(t, "I-31", dates[0].SelectAttrValue("functionCode", ""))
	assert.Equal(t, "150326", dates[0].Text())
	assert.Equal(t, "I-32", dates[1].SelectAttrValue("functionCode", ""))
	assert.Equal(t, "150426", dates[1].Text())

	// Partenaires: fournisseur (I-62) puis client (I-64).
	partners := doc.FindElements("//PartnerSection/PartnerDetails")
	require.Len(t, partners, 2)
	assert.Equal(t, "I-62", partners[0].SelectAttrValue("functionCode", ""))
	assert.Equal(t, "I-64", partners[1].SelectAttrValue("functionCode", ""))
	assert.Equal(t, "Société Exemple SARL", partners[0].FindElement("Nad/PartnerName").Text())

	// Ligne: lineNumber séquentiel, quantité et montants à 3 décimales.
	lin := doc.FindElement("//LinSection/Lin")
	require.NotNil(t, lin)
	assert.Equal(t, "1", lin.SelectAttrValue("lineNumber", ""))
	assert.Equal(t, "Service A", lin.FindElement("ItemDescription").Text())
	assert.Equal(t, "2.000", lin.FindElement("Quantity").Text())
	assert.Equal(t, "PCE", lin.FindElement("Quantity").SelectAttrValue("measurementUnit", ""))
	assert.Equal(t, "19", lin.FindElement("Tax/TaxDetails/TaxRate").Text())

	// Totaux du document (I-176 / I-178 / I-180).
	moas := map[string]string{}
	for _, moa := range doc.FindElements("//InvoiceMoa/AmountDetails/Moa") {
		moas[moa.SelectAttrValue("amountTypeCode", "")] = moa.FindElement("Amount").Text()
	}
	assert.Equal(t, "200.000", moas["I-176"])
	assert.Equal(t, "38.000", moas["I-178"])
	assert.Equal(t, "238.000", moas["I-180"])

	// Agrégat de TVA: un seul taux, assiette et montant.
	taxDetails := doc.FindElements("//InvoiceTax/InvoiceTaxDetails")
	require.Len(t, taxDetails, 1)
	assert.Equal(t, "200.000", taxDetails[0].FindElement("AmountDetails/Moa[@amountTypeCode='I-176']/Amount").Text())
	assert.Equal(t, "38.000", taxDetails[0].FindElement("AmountDetails/Moa[@amountTypeCode='I-178']/Amount").Text())

	// Document non signé: aucun nœud Signature.
	assert.Nil(t, doc.FindElement("//Signature"))
}

// TestBuild_Deterministe la même facture produit exactement les mêmes octets.
func TestBuild_Deterministe(t *testing.T) {
	svc := infrateif.NewXMLBuilderService()

	td1, err := svc.Build(buildTestInvoice())
	require.NoError(t, err)
	td2, err := svc.Build(buildTestInvoice())
	require.NoError(t, err)

	b1, err := td1.Bytes()
	require.NoError(t, err)
	b2, err := td2.Bytes()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

// TestBuild_NumerotationEtAgregats plusieurs lignes: lineNumber croissant
// dans l'ordre d'origine et agrégats de TVA par taux dans l'ordre
// d'apparition.
func TestBuild_NumerotationEtAgregats(t *testing.T) {
	rec := buildTestInvoice()
	rec.Lines = append(rec.Lines,
		entity.LineItem{
			Description: "Service B",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("50.000"),
			TaxRate:     decimal.NewFromInt(7),
		},
		entity.LineItem{
			Description: "Service C",
			Quantity:    decimal.NewFromInt(3),
			UnitPrice:   decimal.RequireFromString("10.000"),
			TaxRate:     decimal.NewFromInt(19),
		},
	)

	svc := infrateif.NewXMLBuilderService()
	td, err := svc.Build(rec)
	require.NoError(t, err)
	assert.Equal(t, 3, td.LineCount)

	data, err := td.Bytes()
	require.NoError(t, err)
	doc := mustParse(t, data)

	lins := doc.FindElements("//LinSection/Lin")
	require.Len(t, lins, 3)
	for i, lin := range lins {
		assert.Equal(t, strconv.Itoa(i+1), lin.SelectAttrValue("lineNumber", ""))
	}

	// Deux taux distincts, 19 d'abord (ordre d'apparition): TVA 19% sur une
	// assiette de 200.000 + 30.000 = 230.000 soit 43.700; TVA 7% sur 50.000
	// soit 3.500.
	taxDetails := doc.FindElements("//InvoiceTax/InvoiceTaxDetails")
	require.Len(t, taxDetails, 2)
	assert.Equal(t, "19", taxDetails[0].FindElement("Tax/TaxDetails/TaxRate").Text())
	assert.Equal(t, "230.000", taxDetails[0].FindElement("AmountDetails/Moa[@amountTypeCode='I-176']/Amount").Text())
	assert.Equal(t, "43.700", taxDetails[0].FindElement("AmountDetails/Moa[@amountTypeCode='I-178']/Amount").Text())
	assert.Equal(t, "7", taxDetails[1].FindElement("Tax/TaxDetails/TaxRate").Text())
	assert.Equal(t, "3.500", taxDetails[1].FindElement("AmountDetails/Moa[@amountTypeCode='I-178']/Amount").Text())
}

// TestBuild_FactureInvalide la validation bloque l'assemblage.
func TestBuild_FactureInvalide(t *testing.T) {
	rec := buildTestInvoice()
	rec.Lines = nil

	svc := infrateif.NewXMLBuilderService()
	_, err := svc.Build(rec)
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceData)
}
