package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/events"
	"github.com/societyops/society-service/internal/repository"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// allowedTransitions is the issue state machine outside the resident
// decision flow. The assigned back-edges (pending on reject, assigned on
// reschedule) belong to the AssignmentService; administrative cancel is
// permitted from every non-terminal state.
var allowedTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.StatusPending:    {domain.StatusAssigned, domain.StatusCancelled},
	domain.StatusAssigned:   {domain.StatusInProgress, domain.StatusPending, domain.StatusAssigned, domain.StatusCancelled},
	domain.StatusInProgress: {domain.StatusResolved, domain.StatusCancelled},
	domain.StatusResolved:   {domain.StatusClosed, domain.StatusCancelled},
	domain.StatusClosed:     {},
	domain.StatusCancelled:  {},
}

func isValidTransition(current, next domain.IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IssueService coordinates issue reporting and the lifecycle transitions
// that happen after an assignment is accepted.
type IssueService struct {
	issues     repository.IssueRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{issues: deps.IssueRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Title       string
	Description string
	Category    domain.IssueCategory
	Priority    domain.IssuePriority
	Area        string
}

// IssueListFilter describes listing filters.
type IssueListFilter struct {
	Statuses   []domain.IssueStatus
	Categories []domain.IssueCategory
	Priorities []domain.IssuePriority
	Limit      int
	Offset     int
}

// CreateIssue reports a new issue for a resident, with the initial
// "reported" timeline entry written atomically with the row.
func (s *IssueService) CreateIssue(ctx context.Context, reporter *domain.User, input IssueCreateInput) (*domain.Issue, error) {
	if reporter == nil {
		return nil, apperrors.NewUnauthorized("resident required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if len(title) < 5 || len(title) > 100 {
		return nil, apperrors.NewValidationError("title must be between 5 and 100 characters", nil)
	}
	if len(description) < 10 || len(description) > 1000 {
		return nil, apperrors.NewValidationError("description must be between 10 and 1000 characters", nil)
	}
	if !domain.ValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	issue := &domain.Issue{
		ReportedBy:  reporter.ID,
		Title:       title,
		Description: description,
		Category:    input.Category,
		Priority:    priority,
		Status:      domain.StatusPending,
		Location: domain.IssueLocation{
			FlatNumber: deref(reporter.FlatNumber),
			Building:   deref(reporter.Building),
			Area:       strings.TrimSpace(input.Area),
		},
		Cost: domain.IssueCost{Currency: "INR"},
	}

	actorID := reporter.ID
	entry := domain.TimelineEntry{Status: timelineReported, Message: "Issue reported", ActorID: &actorID}
	if err := s.issues.Create(ctx, issue, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, reporter, events.EventIssueReported, issue.ID, events.IssueReportedPayload{
		Category: issue.Category,
		Priority: issue.Priority,
		Title:    issue.Title,
	})
	return issue, nil
}

// ListIssues returns issues visible to the actor: residents see their own
// reports, technicians their assignments, admins everything.
func (s *IssueService) ListIssues(ctx context.Context, actor *domain.User, filter IssueListFilter) ([]domain.Issue, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.IssueFilter{
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch actor.Role {
	case domain.RoleResident:
		id := actor.ID
		repoFilter.ReportedBy = &id
	case domain.RoleTechnician:
		id := actor.ID
		repoFilter.AssignedTo = &id
	}
	issues, err := s.issues.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

// GetIssue fetches one issue with its timeline, enforcing access.
func (s *IssueService) GetIssue(ctx context.Context, actor *domain.User, issueID string) (*domain.Issue, error) {
	issue, err := s.fetch(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, issue) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return issue, nil
}

// Resolve marks an in-progress issue resolved and records the actual
// completion time.
func (s *IssueService) Resolve(ctx context.Context, actor *domain.User, issueID, note string) (*domain.Issue, error) {
	return s.transition(ctx, actor, issueID, domain.StatusResolved, func(issue *domain.Issue) (string, error) {
		if actor.Role == domain.RoleTechnician && (issue.AssignedTo == nil || *issue.AssignedTo != actor.ID) {
			return "", apperrors.NewForbidden("issue not assigned to technician")
		}
		if actor.Role == domain.RoleResident {
			return "", apperrors.NewForbidden("residents cannot resolve issues")
		}
		now := time.Now()
		issue.ActualCompletion = &now
		message := "Issue resolved"
		if note != "" {
			message += ": " + note
		}
		return message, nil
	})
}

// Close closes a resolved issue. Admin only.
func (s *IssueService) Close(ctx context.Context, actor *domain.User, issueID string) (*domain.Issue, error) {
	return s.transition(ctx, actor, issueID, domain.StatusClosed, func(issue *domain.Issue) (string, error) {
		if actor.Role != domain.RoleAdmin {
			return "", apperrors.NewForbidden("admin required")
		}
		return "Issue closed", nil
	})
}

// Cancel terminates an issue from any non-terminal state. Admin only.
func (s *IssueService) Cancel(ctx context.Context, actor *domain.User, issueID, reason string) (*domain.Issue, error) {
	return s.transition(ctx, actor, issueID, domain.StatusCancelled, func(issue *domain.Issue) (string, error) {
		if actor.Role != domain.RoleAdmin {
			return "", apperrors.NewForbidden("admin required")
		}
		message := "Issue cancelled"
		if reason != "" {
			message += ": " + reason
		}
		issue.AssignedTo = nil
		return message, nil
	})
}

// transition applies one lifecycle move under the transition table. Every
// successful call appends exactly one timeline entry; an invalid move
// leaves the issue untouched and reports the failure.
func (s *IssueService) transition(ctx context.Context, actor *domain.User, issueID string, next domain.IssueStatus, prepare func(*domain.Issue) (string, error)) (*domain.Issue, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	issue, err := s.fetch(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(issue.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(issue.Status), string(next), map[string]any{"issue_id": issue.ID})
	}

	message, err := prepare(issue)
	if err != nil {
		return nil, err
	}

	oldStatus := issue.Status
	issue.Status = next
	actorID := actor.ID
	entry := domain.TimelineEntry{Status: string(next), Message: message, ActorID: &actorID}
	if err := s.issues.Commit(ctx, issue, issue.Version, entry); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("issue was modified concurrently", map[string]any{"issue_id": issue.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, actor, events.EventIssueStatusChanged, issue.ID, events.IssueStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: next,
		Comment:   message,
	})
	return issue, nil
}

func (s *IssueService) canView(actor *domain.User, issue *domain.Issue) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleResident:
		return issue.ReportedBy == actor.ID
	case domain.RoleTechnician:
		return issue.AssignedTo != nil && *issue.AssignedTo == actor.ID
	}
	return false
}

func (s *IssueService) fetch(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

func (s *IssueService) publish(ctx context.Context, actor *domain.User, eventType events.EventType, issueID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		IssueID:   issueID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if actor != nil {
		actorID := actor.ID
		event.Actor = events.Actor{UserID: &actorID, Role: actor.Role}
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func deref(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
