package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/service"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// NotificationsHandler exposes the derived notification feed.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// Feed GET /notifications.
func (h *NotificationsHandler) Feed(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	items, err := h.service.Feed(c.UserContext(), principal.User, parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}
