package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/societyops/society-service/internal/api/dto"
	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/service"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// TechniciansHandler exposes the technician directory.
type TechniciansHandler struct {
	directory *service.DirectoryService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(directory *service.DirectoryService) *TechniciansHandler {
	return &TechniciansHandler{directory: directory}
}

// List GET /technicians. Admins see the full roster; everyone else the
// available pool.
func (h *TechniciansHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var (
		technicians []domain.Technician
		err         error
	)
	if principal.User.Role == domain.RoleAdmin && c.Query("scope") == "all" {
		technicians, err = h.directory.ListAll(c.UserContext())
	} else {
		technicians, err = h.directory.ListAvailable(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicians})
}

// Get GET /technicians/:id.
func (h *TechniciansHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	technician, err := h.directory.GetTechnician(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technician})
}

// UpdateAvailability PATCH /technicians/:id/availability. Technicians may
// only change their own availability; admins anyone's.
func (h *TechniciansHandler) UpdateAvailability(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	technicianID := c.Params("id")
	if principal.User.Role != domain.RoleAdmin && principal.User.ID != technicianID {
		return apperrors.NewForbidden("technicians may only update their own availability")
	}
	var req dto.UpdateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.directory.SetAvailability(c.UserContext(), technicianID, domain.Availability(req.Availability)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}
