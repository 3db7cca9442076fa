package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bfarhat/facturation-tn/internal/application/billing"
	infrateif "github.com/bfarhat/facturation-tn/internal/infrastructure/teif"
	"github.com/bfarhat/facturation-tn/internal/infrastructure/teif/signer"
	httpRouter "github.com/bfarhat/facturation-tn/internal/interfaces/http"
	"github.com/bfarhat/facturation-tn/pkg/config"
	"github.com/bfarhat/facturation-tn/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("chargement de la configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("teif_env", cfg.TEIF.Environment).
		Msg("démarrage de l'application")

	// Cycle TEIF: assemblage XML → canonicalisation → signature XAdES-B
	canon := infrateif.NewCanonicalizer()
	xmlBuilder := infrateif.NewXMLBuilderService()
	signerSvc := signer.NewSignatureService(canon)
	verifierSvc := signer.NewVerificationService(canon)
	certStore := signer.NewCertificateStore()

	teifCfg := billing.TEIFConfig{
		Environment:  cfg.TEIF.Environment,
		CertPath:     cfg.TEIF.CertPath,
		CertKeyPath:  cfg.TEIF.CertKeyPath,
		CertPassword: cfg.TEIF.CertPassword,
		SignerRole:   cfg.TEIF.SignerRole,
	}
	orchestrator := billing.NewTEIFOrchestrator(
		xmlBuilder, signerSvc, verifierSvc, certStore, teifCfg, log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		TeifOrchestrator: orchestrator,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("serveur HTTP terminé")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("signal d'arrêt reçu, fermeture du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arrêt du serveur")
	}

	log.Info().Msg("application arrêtée")
}
