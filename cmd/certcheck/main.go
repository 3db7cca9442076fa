// Outil de diagnostic du matériel de signature TTN: vérifie qu'un
// certificat (.p12 ou paire PEM) se charge et que sa fenêtre de validité
// couvre l'instant courant.
//
// Usage:
//
//	certcheck cert.p12 [mot-de-passe]
//	certcheck cert.pem cle.pem
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bfarhat/facturation-tn/internal/domain/entity"
	"github.com/bfarhat/facturation-tn/internal/infrastructure/teif/signer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: certcheck <cert.p12|cert.pem> [mot-de-passe|cle.pem]")
		os.Exit(2)
	}
	certPath := os.Args[1]
	second := ""
	if len(os.Args) > 2 {
		second = os.Args[2]
	}

	store := signer.NewCertificateStore()

	var info *entity.CertificateInfo
	var err error
	if strings.HasSuffix(certPath, ".p12") || strings.HasSuffix(certPath, ".pfx") {
		info, err = store.LoadFromP12(certPath, second)
	} else {
		info, err = store.Load(certPath, second)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "chargement du certificat: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sujet:     %s\n", info.Subject)
	fmt.Printf("Émetteur:  %s\n", info.Issuer)
	fmt.Printf("Série:     %s\n", info.SerialNumber)
	fmt.Printf("NotBefore: %s\n", info.NotBefore.Format(time.RFC3339))
	fmt.Printf("NotAfter:  %s\n", info.NotAfter.Format(time.RFC3339))

	now := time.Now()
	if !info.IsValidAt(now) {
		fmt.Println("ATTENTION: le certificat est hors de sa fenêtre de validité.")
		os.Exit(1)
	}
	fmt.Printf("Le certificat est valide (expire dans %s).\n",
		info.NotAfter.Sub(now).Round(time.Hour))
}
