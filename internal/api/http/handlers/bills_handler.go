package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/societyops/society-service/internal/api/dto"
	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/service"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// BillsHandler manages billing endpoints.
type BillsHandler struct {
	service *service.BillingService
}

// NewBillsHandler constructs handler.
func NewBillsHandler(billingService *service.BillingService) *BillsHandler {
	return &BillsHandler{service: billingService}
}

// CreateBill POST /bills. Admin only.
func (h *BillsHandler) CreateBill(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateBillRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	bill, err := h.service.CreateBill(c.UserContext(), principal.User, service.BillCreateInput{
		ResidentID:  req.ResidentID,
		Type:        req.Type,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Description: req.Description,
		Comments:    req.Comments,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": billResponse(bill)})
}

// ListBills GET /bills.
func (h *BillsHandler) ListBills(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var statuses []domain.BillStatus
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			statuses = append(statuses, domain.BillStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	bills, err := h.service.ListBills(c.UserContext(), principal.User, statuses, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.BillResponse, 0, len(bills))
	for i := range bills {
		items = append(items, billResponse(&bills[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PayBill POST /bills/:id/pay.
func (h *BillsHandler) PayBill(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	bill, err := h.service.PayBill(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": billResponse(bill)})
}

// DisputeBill POST /bills/:id/dispute.
func (h *BillsHandler) DisputeBill(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.DisputeBillRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	bill, err := h.service.DisputeBill(c.UserContext(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": billResponse(bill)})
}

// Analysis GET /bills/analysis. Admin only.
func (h *BillsHandler) Analysis(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	analysis, err := h.service.Analysis(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": analysis})
}

func billResponse(bill *domain.Bill) dto.BillResponse {
	return dto.BillResponse{
		ID:          bill.ID,
		ResidentID:  bill.ResidentID,
		Type:        bill.Type,
		Amount:      bill.Amount,
		Currency:    bill.Currency,
		DueDate:     bill.DueDate,
		Status:      bill.Status,
		Description: bill.Description,
		Comments:    bill.Comments,
		PaidAt:      bill.PaidAt,
		CreatedAt:   bill.CreatedAt,
		UpdatedAt:   bill.UpdatedAt,
	}
}
