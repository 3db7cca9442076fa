package signer

import (
	"crypto/sha256"
	"encoding/base64"
)

// Sha256 calcule le digest SHA-256 d'un flux d'octets canonique. Fonction
// pure: 32 octets, pas de mode d'échec propre.
func Sha256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Sha256B64 rend le digest SHA-256 encodé base64, forme attendue dans les
// éléments ds:DigestValue.
func Sha256B64(data []byte) string {
	return base64.StdEncoding.EncodeToString(Sha256(data))
}
