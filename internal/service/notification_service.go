package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/societyops/society-service/internal/assign"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/events"
	"github.com/societyops/society-service/internal/repository"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// NotificationItem is one entry in a user's derived notification feed.
type NotificationItem struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationService delivers assignment decision payloads and builds
// per-user feeds on demand from issue timelines. Nothing is persisted;
// the timeline is the source of truth.
type NotificationService struct {
	issues repository.IssueRepository
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(issues repository.IssueRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{issues: issues, logger: logger}
}

// Deliver pushes a decision payload to the reporting resident. The
// in-process channel only logs; an email or push transport would slot in
// here without touching the assignment engine.
func (s *NotificationService) Deliver(ctx context.Context, payload assign.DecisionPayload, recipientID string) error {
	s.logger.Info("decision notification delivered",
		zap.String("recipient_id", recipientID),
		zap.String("issue_id", payload.Issue.ID),
		zap.String("technician_id", payload.Technician.ID),
		zap.Int("actions", len(payload.Actions)),
	)
	return nil
}

// RegisterHandlers subscribes audit logging to every assignment event.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventIssueReported,
		events.EventTechnicianAssigned,
		events.EventAssignmentAccepted,
		events.EventAssignmentRejected,
		events.EventRescheduleRequested,
		events.EventIssueStatusChanged,
	} {
		dispatcher.Subscribe(eventType, s.logEvent)
	}
}

func (s *NotificationService) logEvent(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("issue_id", event.IssueID),
	}
	if event.Actor.UserID != nil {
		fields = append(fields, zap.String("actor_id", *event.Actor.UserID))
	}
	s.logger.Info("issue event", fields...)
	return nil
}

// Feed builds the notification feed for a user from the timelines of the
// issues they can see, newest first.
func (s *NotificationService) Feed(ctx context.Context, user *domain.User, limit int) ([]NotificationItem, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := repository.IssueFilter{Limit: 200}
	switch user.Role {
	case domain.RoleResident:
		id := user.ID
		filter.ReportedBy = &id
	case domain.RoleTechnician:
		id := user.ID
		filter.AssignedTo = &id
	}
	issues, err := s.issues.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	items := make([]NotificationItem, 0, limit)
	for i := range issues {
		issue := &issues[i]
		entries, err := s.issues.ListTimeline(ctx, issue.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, entry := range entries {
			items = append(items, NotificationItem{
				ID:        entry.ID,
				IssueID:   issue.ID,
				Type:      entry.Status,
				Title:     issue.Title,
				Message:   feedMessage(issue, entry),
				CreatedAt: entry.CreatedAt,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func feedMessage(issue *domain.Issue, entry domain.TimelineEntry) string {
	if entry.Message != "" {
		return entry.Message
	}
	return fmt.Sprintf("Issue %q is now %s", issue.Title, entry.Status)
}
