package teif

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/ucarion/c14n"

	"github.com/bfarhat/facturation-tn/internal/domain"
)

// Canonicalizer sérialise un arbre ou un sous-arbre XML sous sa forme
// canonique exclusive (C14N exclusif): attributs triés, déclarations de
// namespace émises uniquement où elles sont utilisées, UTF-8 sans BOM.
// Contrat central: le même arbre logique produit toujours les mêmes octets,
// d'une exécution et d'une implémentation à l'autre.
type Canonicalizer struct {
	exclusive dsig.Canonicalizer
}

// NewCanonicalizer crée le canonicaliseur (C14N 1.0 exclusif, sans liste de
// préfixes supplémentaires).
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{
		exclusive: dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(""),
	}
}

// CanonicalizeElement canonicalise un sous-arbre (SignedInfo,
// SignedProperties...). L'élément d'entrée n'est pas modifié: le travail se
// fait sur une copie dont les nœuds de texte blancs sont retirés.
func (c *Canonicalizer) CanonicalizeElement(el *etree.Element) ([]byte, error) {
	if el == nil {
		return nil, fmt.Errorf("%w: élément nul", domain.ErrCanonicalization)
	}
	dup := el.Copy()
	removeWhitespaceNodes(dup)
	out, err := c.exclusive.Canonicalize(dup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCanonicalization, err)
	}
	return out, nil
}

// CanonicalizeBytes canonicalise un document complet à partir de ses octets.
// Le décodeur refuse les entités externes; un XML mal formé (attributs
// dupliqués, imbrication cassée) est une domain.ErrCanonicalization.
func (c *Canonicalizer) CanonicalizeBytes(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCanonicalization, err)
	}
	return out, nil
}

// CanonicalizeDocument applique la transformation enveloped-signature puis la
// canonicalisation au document: l'élément ds:Signature est exclu, le reste
// est sérialisé compact puis canonicalisé. Utilisé à l'identique par la
// signature et la vérification, le digest recalculé est donc octet pour
// octet celui d'origine.
func (c *Canonicalizer) CanonicalizeDocument(root *etree.Element) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: document sans racine", domain.ErrCanonicalization)
	}
	dup := root.Copy()
	RemoveSignatureElements(dup)
	removeWhitespaceNodes(dup)

	doc := newDocument()
	doc.SetRoot(dup)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCanonicalization, err)
	}
	return c.CanonicalizeBytes(data)
}

// RemoveSignatureElements retire tout élément Signature (quel que soit le
// préfixe) du sous-arbre, conformément à la transformation
// enveloped-signature.
func RemoveSignatureElements(el *etree.Element) {
	var doomed []*etree.Element
	for _, child := range el.ChildElements() {
		if isSignatureTag(child.Tag) {
			doomed = append(doomed, child)
			continue
		}
		RemoveSignatureElements(child)
	}
	for _, d := range doomed {
		el.RemoveChild(d)
	}
}

func isSignatureTag(tag string) bool {
	return tag == "Signature" || strings.HasSuffix(tag, ":Signature")
}

// removeWhitespaceNodes retire les nœuds de texte composés uniquement de
// blancs (indentation), pour que le digest soit insensible au reformatage.
// Le contenu textuel significatif n'est jamais touché.
func removeWhitespaceNodes(el *etree.Element) {
	var doomed []etree.Token
	for _, child := range el.Child {
		switch t := child.(type) {
		case *etree.CharData:
			if strings.TrimSpace(t.Data) == "" && len(el.ChildElements()) > 0 {
				doomed = append(doomed, t)
			}
		case *etree.Element:
			removeWhitespaceNodes(t)
		}
	}
	for _, d := range doomed {
		el.RemoveChild(d)
	}
}
