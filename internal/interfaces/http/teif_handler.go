package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bfarhat/facturation-tn/internal/application/billing"
	"github.com/bfarhat/facturation-tn/internal/application/dto"
	"github.com/bfarhat/facturation-tn/internal/domain"
)

// TeifHandler expose le cycle TEIF d'une facture: génération du document,
// signature XAdES-B, vérification et consultation d'état.
type TeifHandler struct {
	orch *billing.TEIFOrchestrator
}

// NewTeifHandler construit le handler.
func NewTeifHandler(orch *billing.TEIFOrchestrator) *TeifHandler {
	return &TeifHandler{orch: orch}
}

// Generate assemble le document TEIF non signé d'une facture.
// POST /api/teif/generate
func (h *TeifHandler) Generate(c *fiber.Ctx) error {
	var in dto.GenerateTeifRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps de requête invalide"})
	}
	rec, err := in.ToEntity()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	xmlData, err := h.orch.Generate(c.Context(), rec)
	if err != nil {
		return teifError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.GenerateTeifResponse{
		InvoiceID: rec.InvoiceID,
		Status:    statusOf(h, rec.InvoiceID),
		XML:       string(xmlData),
	})
}

// Sign signe un document TEIF généré avec le certificat de la session.
// POST /api/teif/:invoiceID/sign
func (h *TeifHandler) Sign(c *fiber.Ctx) error {
	invoiceID := c.Params("invoiceID")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoiceID requis"})
	}
	var in dto.SignTeifRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps de requête invalide"})
	}
	if in.XML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml requis"})
	}
	signed, record, err := h.orch.Sign(c.Context(), invoiceID, []byte(in.XML), in.Role)
	if err != nil {
		return teifError(c, err)
	}
	return c.JSON(dto.SignTeifResponse{
		InvoiceID:      invoiceID,
		Status:         statusOf(h, invoiceID),
		SignatureID:    record.SignatureID,
		Role:           record.Role,
		SigningTime:    record.SigningTime.UTC().Format(time.RFC3339),
		DocumentDigest: record.DocumentDigest,
		XML:            string(signed),
	})
}

// Verify vérifie la signature d'un document TEIF. L'invalidité est rendue
// en 200 avec valid=false; seule une requête malformée est une erreur HTTP.
// POST /api/teif/verify
func (h *TeifHandler) Verify(c *fiber.Ctx) error {
	var in dto.VerifyTeifRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corps de requête invalide"})
	}
	if in.XML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml requis"})
	}
	result := h.orch.Verify(c.Context(), []byte(in.XML))
	out := dto.VerifyTeifResponse{
		Valid:         result.Valid,
		Reason:        string(result.Reason),
		Detail:        result.Detail,
		SignerSubject: result.SignerSubject,
	}
	if !result.SignedAt.IsZero() {
		out.SignedAt = result.SignedAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(out)
}

// Status rend l'état courant du cycle TEIF d'une facture.
// GET /api/teif/:invoiceID/status
func (h *TeifHandler) Status(c *fiber.Ctx) error {
	invoiceID := c.Params("invoiceID")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoiceID requis"})
	}
	snap, ok := h.orch.Status(invoiceID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "facture inconnue"})
	}
	return c.JSON(dto.TeifStatusResponse{
		InvoiceID: invoiceID,
		Status:    snap.Status.String(),
		ErrorKind: snap.ErrorKind,
		UpdatedAt: snap.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Reset ramène une facture en échec à l'état pending pour retenter.
// POST /api/teif/:invoiceID/reset
func (h *TeifHandler) Reset(c *fiber.Ctx) error {
	invoiceID := c.Params("invoiceID")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoiceID requis"})
	}
	if err := h.orch.Reset(invoiceID); err != nil {
		return teifError(c, err)
	}
	snap, _ := h.orch.Status(invoiceID)
	return c.JSON(dto.TeifStatusResponse{
		InvoiceID: invoiceID,
		Status:    snap.Status.String(),
		UpdatedAt: snap.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func statusOf(h *TeifHandler, invoiceID string) string {
	if snap, ok := h.orch.Status(invoiceID); ok {
		return snap.Status.String()
	}
	return ""
}

// teifError traduit une erreur sentinelle du domaine en réponse HTTP.
func teifError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInvoiceData):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_IN_PROGRESS", Message: "une opération est déjà en cours pour cette facture"})
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificateNotFound):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERTIFICATE_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrKeyMismatch):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "KEY_MISMATCH", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificateExpired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERTIFICATE_EXPIRED", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificateNotYetValid):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERTIFICATE_NOT_YET_VALID", Message: err.Error()})
	case errors.Is(err, domain.ErrCanonicalization):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CANONICALIZATION", Message: err.Error()})
	case errors.Is(err, domain.ErrSigningFailed):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "SIGNING_FAILED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
