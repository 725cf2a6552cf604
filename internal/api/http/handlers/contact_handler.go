package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lankaconnect/support-service/internal/api/dto"
	"github.com/lankaconnect/support-service/internal/service"
	apperrors "github.com/lankaconnect/support-service/pkg/util/errorutil"
)

// ContactHandler serves the anonymous contact form.
type ContactHandler struct {
	support *service.SupportService
}

// NewContactHandler constructs handler.
func NewContactHandler(support *service.SupportService) *ContactHandler {
	return &ContactHandler{support: support}
}

// Submit POST /api/support/contact.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.support.Submit(requestContext(c), service.SubmitInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ContactResponse{
		ReferenceID: ticket.ReferenceID(),
		Status:      ticket.Status(),
		CreatedAt:   ticket.CreatedAt(),
	}})
}

// Status GET /api/support/tickets/:referenceId.
func (h *ContactHandler) Status(c *fiber.Ctx) error {
	ref := strings.ToUpper(strings.TrimSpace(c.Params("referenceId")))
	if ref == "" {
		return apperrors.NewValidationProblems("Reference ID is required")
	}
	ticket, err := h.support.LookupByReference(requestContext(c), ref)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketStatusResponse(ticket)})
}
