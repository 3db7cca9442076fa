package teif

import (
	"fmt"
	"strings"
	"unicode"
)

// Le matricule fiscal tunisien se compose de 7 chiffres, d'une lettre clé,
// d'un code TVA (A, P, B, F ou N), d'un code établissement (M, P, C ou N) et
// d'un numéro d'établissement sur 3 chiffres, ex: "1234567A/A/M/000".

var (
	validTVACodes  = map[byte]bool{'A': true, 'P': true, 'B': true, 'F': true, 'N': true}
	validEtabCodes = map[byte]bool{'M': true, 'P': true, 'C': true, 'N': true}
)

// NormalizeMatricule retire les séparateurs (/, -, espaces) et met le
// matricule en majuscules: "1234567a/a/m/000" -> "1234567AAM000".
func NormalizeMatricule(mf string) string {
	var out strings.Builder
	for _, r := range mf {
		if r == '/' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		out.WriteRune(unicode.ToUpper(r))
	}
	return out.String()
}

// ValidateMatricule vérifie la structure du matricule fiscal (avec ou sans
// séparateurs). La validité de la lettre clé relève de la DGI et n'est pas
// recalculée ici.
func ValidateMatricule(mf string) error {
	n := NormalizeMatricule(mf)
	if len(n) != 13 {
		return fmt.Errorf("teif: matricule fiscal invalide %q: 13 caractères attendus, %d reçus", mf, len(n))
	}
	for i := 0; i < 7; i++ {
		if n[i] < '0' || n[i] > '9' {
			return fmt.Errorf("teif: matricule fiscal invalide %q: les 7 premiers caractères doivent être des chiffres", mf)
		}
	}
	key := n[7]
	if key < 'A' || key > 'Z' {
		return fmt.Errorf("teif: matricule fiscal invalide %q: lettre clé attendue en position 8", mf)
	}
	if !validTVACodes[n[8]] {
		return fmt.Errorf("teif: matricule fiscal invalide %q: code TVA %q inconnu", mf, string(n[8]))
	}
	if !validEtabCodes[n[9]] {
		return fmt.Errorf("teif: matricule fiscal invalide %q: code établissement %q inconnu", mf, string(n[9]))
	}
	for i := 10; i < 13; i++ {
		if n[i] < '0' || n[i] > '9' {
			return fmt.Errorf("teif: matricule fiscal invalide %q: numéro d'établissement sur 3 chiffres attendu", mf)
		}
	}
	return nil
}
