package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bfarhat/facturation-tn/internal/application/billing"
)

// RouterDeps dépendances pour le router.
type RouterDeps struct {
	TeifOrchestrator *billing.TEIFOrchestrator
}

// Router enregistre les routes de l'API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Cycle TEIF: génération → signature → vérification
	teif := api.Group("/teif")
	teifHandler := NewTeifHandler(deps.TeifOrchestrator)
	teif.Post("/generate", teifHandler.Generate)
	teif.Post("/verify", teifHandler.Verify)
	teif.Post("/:invoiceID/sign", teifHandler.Sign)
	teif.Post("/:invoiceID/reset", teifHandler.Reset)
	teif.Get("/:invoiceID/status", teifHandler.Status)
}
