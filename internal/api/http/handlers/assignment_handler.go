package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/societyops/society-service/internal/api/dto"
	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/service"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// AssignmentHandler exposes the assignment engine: selection, the
// decision payload and the three resident decisions.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: assignmentService}
}

// Assign POST /issues/:id/assign.
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	result, err := h.service.Assign(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.AssignmentResponse{
		Assigned: result.Assigned,
		Reason:   result.Reason,
		Decision: result.Decision,
		Issue:    issueSummary(result.Issue),
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Decision GET /issues/:id/decision.
func (h *AssignmentHandler) Decision(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	decision, err := h.service.Decision(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": decision})
}

// Accept POST /issues/:id/assignment/accept.
func (h *AssignmentHandler) Accept(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	issue, err := h.service.Accept(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

// Reject POST /issues/:id/assignment/reject.
func (h *AssignmentHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RejectAssignmentRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.Reject(c.UserContext(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

// Reschedule POST /issues/:id/assignment/reschedule.
func (h *AssignmentHandler) Reschedule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RescheduleRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.Reschedule(c.UserContext(), principal.User, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}
