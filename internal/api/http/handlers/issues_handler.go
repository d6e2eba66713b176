package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/societyops/society-service/internal/api/dto"
	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/service"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// IssuesHandler manages issue reporting and lifecycle endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.CreateIssue(c.UserContext(), principal.User, service.IssueCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Area:        req.Area,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": issueDetail(issue)})
}

// ListIssues GET /issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	issues, err := h.service.ListIssues(c.UserContext(), principal.User, parseIssueQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.IssueSummary, 0, len(issues))
	for i := range issues {
		items = append(items, issueSummary(&issues[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetIssue GET /issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	issue, err := h.service.GetIssue(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

// ResolveIssue POST /issues/:id/resolve.
func (h *IssuesHandler) ResolveIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ResolveIssueRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.Resolve(c.UserContext(), principal.User, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

// CloseIssue POST /issues/:id/close.
func (h *IssuesHandler) CloseIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	issue, err := h.service.Close(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

// CancelIssue POST /issues/:id/cancel.
func (h *IssuesHandler) CancelIssue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CancelIssueRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issue, err := h.service.Cancel(c.UserContext(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue)})
}

func parseIssueQuery(c *fiber.Ctx) service.IssueListFilter {
	filter := service.IssueListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.IssueStatus(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.IssueCategory(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.IssuePriority(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func issueSummary(issue *domain.Issue) dto.IssueSummary {
	return dto.IssueSummary{
		ID:         issue.ID,
		Title:      issue.Title,
		Category:   issue.Category,
		Priority:   issue.Priority,
		Status:     issue.Status,
		AssignedTo: issue.AssignedTo,
		CreatedAt:  issue.CreatedAt,
		UpdatedAt:  issue.UpdatedAt,
	}
}

func issueDetail(issue *domain.Issue) dto.IssueDetailResponse {
	timeline := make([]dto.TimelineEntryResponse, 0, len(issue.Timeline))
	for _, entry := range issue.Timeline {
		timeline = append(timeline, dto.TimelineEntryResponse{
			ID:        entry.ID,
			Status:    entry.Status,
			Message:   entry.Message,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.IssueDetailResponse{
		ID:          issue.ID,
		ReportedBy:  issue.ReportedBy,
		AssignedTo:  issue.AssignedTo,
		Title:       issue.Title,
		Description: issue.Description,
		Category:    issue.Category,
		Priority:    issue.Priority,
		Status:      issue.Status,
		Location: dto.IssueLocationResponse{
			FlatNumber: issue.Location.FlatNumber,
			Building:   issue.Location.Building,
			Area:       issue.Location.Area,
		},
		Timeline:            timeline,
		EstimatedCompletion: issue.EstimatedCompletion,
		ActualCompletion:    issue.ActualCompletion,
		Cost: dto.IssueCostResponse{
			Estimated: issue.Cost.Estimated,
			Actual:    issue.Cost.Actual,
			Currency:  issue.Cost.Currency,
		},
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
	}
}
