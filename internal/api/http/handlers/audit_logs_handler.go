package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lankaconnect/support-service/internal/api/dto"
	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/repository"
	"github.com/lankaconnect/support-service/internal/service"
	apperrors "github.com/lankaconnect/support-service/pkg/util/errorutil"
)

// AuditLogsHandler exposes the admin audit trail.
type AuditLogsHandler struct {
	audit *service.AuditService
}

// NewAuditLogsHandler constructs handler.
func NewAuditLogsHandler(audit *service.AuditService) *AuditLogsHandler {
	return &AuditLogsHandler{audit: audit}
}

// List GET /api/admin/audit-logs.
func (h *AuditLogsHandler) List(c *fiber.Ctx) error {
	query, err := parseAuditQuery(c)
	if err != nil {
		return err
	}
	page, err := h.audit.List(requestContext(c), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       auditEntries(page.Items),
		"pagination": dto.NewPagination(page.Page, page.PageSize, page.TotalCount),
	})
}

// ForUser GET /api/admin/audit-logs/users/:userId.
func (h *AuditLogsHandler) ForUser(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return apperrors.NewValidationProblems("Target user ID is required")
	}
	entries, err := h.audit.ForUser(requestContext(c), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditEntries(entries)})
}

// RecordUserAction POST /api/admin/audit-logs/users/:userId.
func (h *AuditLogsHandler) RecordUserAction(c *fiber.Ctx) error {
	var req dto.RecordAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var details any
	if len(req.Details) > 0 && string(req.Details) != "null" {
		details = req.Details
	}
	entry, err := h.audit.RecordUserAction(requestContext(c), req.Action, c.Params("userId"), details)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": auditEntryResponse(entry)})
}

// Export GET /api/admin/audit-logs/export.
func (h *AuditLogsHandler) Export(c *fiber.Ctx) error {
	query, err := parseAuditQuery(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	rows, err := h.audit.Export(requestContext(c), query, &buf)
	if err != nil {
		return err
	}
	filename := fmt.Sprintf("audit-logs-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Set("X-Export-Rows", strconv.Itoa(rows))
	return c.Send(buf.Bytes())
}

func auditEntries(entries []*domain.AuditLogEntry) []dto.AuditEntryResponse {
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditEntryResponse(entry))
	}
	return out
}

func parseAuditQuery(c *fiber.Ctx) (repository.AuditQuery, error) {
	query := repository.AuditQuery{
		Page:         parseInt(c.Query("page"), 1),
		PageSize:     parseInt(c.Query("page_size"), repository.DefaultPageSize),
		ActorID:      strings.TrimSpace(c.Query("actor_id")),
		Action:       strings.TrimSpace(c.Query("action")),
		TargetUserID: strings.TrimSpace(c.Query("target_user_id")),
	}
	var problems []string
	from, err := parseTime(c.Query("from"))
	if err != nil {
		problems = append(problems, "from must be an RFC3339 timestamp")
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		problems = append(problems, "to must be an RFC3339 timestamp")
	}
	if from != nil && to != nil && to.Before(*from) {
		problems = append(problems, "to must not be before from")
	}
	if len(problems) > 0 {
		return query, apperrors.NewValidationProblems(problems...)
	}
	query.From, query.To = from, to
	return query, nil
}
