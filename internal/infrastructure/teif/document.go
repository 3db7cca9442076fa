// Package teif construit et manipule le document XML TEIF 1.8.8 (TTN).
package teif

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/bfarhat/facturation-tn/internal/domain"
)

// TeifDocument arbre XML TEIF en mémoire. Créé neuf à chaque génération ou
// signature et immuable une fois retourné: toute opération travaille sur une
// copie.
type TeifDocument struct {
	doc *etree.Document

	// RootID identifiant stable de l'élément racine, référencé par la
	// signature. LineCount nombre de lignes numérotées (lineNumber).
	RootID    string
	LineCount int
}

// Root retourne l'élément racine <TEIF>.
func (d *TeifDocument) Root() *etree.Element {
	return d.doc.Root()
}

// Copy retourne une copie profonde du document.
func (d *TeifDocument) Copy() *TeifDocument {
	return &TeifDocument{doc: d.doc.Copy(), RootID: d.RootID, LineCount: d.LineCount}
}

// Bytes sérialise le document en UTF-8 compact (sans indentation, sans BOM).
// La forme compacte garantit que le retrait du nœud de signature ne laisse
// aucun résidu d'espacement lors de la transformation enveloppée.
func (d *TeifDocument) Bytes() ([]byte, error) {
	return d.doc.WriteToBytes()
}

// ParseDocument parse un document TEIF reçu. Un XML mal formé est une
// domain.ErrCanonicalization: l'arbre ne peut pas être canonicalisé.
func ParseDocument(data []byte) (*TeifDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: document vide", domain.ErrCanonicalization)
	}
	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCanonicalization, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: document sans racine", domain.ErrCanonicalization)
	}
	td := &TeifDocument{doc: doc}
	if attr := root.SelectAttr("Id"); attr != nil {
		td.RootID = attr.Value
	}
	td.LineCount = len(root.FindElements("//Lin"))
	return td, nil
}

// newDocument crée un document etree avec des réglages d'écriture canoniques
// (fins de balise, texte et attributs), pour une sérialisation stable d'une
// exécution à l'autre.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.WriteSettings = etree.WriteSettings{
		CanonicalEndTags: true,
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	return doc
}
