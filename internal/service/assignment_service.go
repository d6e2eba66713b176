package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/societyops/society-service/internal/assign"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/events"
	"github.com/societyops/society-service/internal/repository"
	apperrors "github.com/societyops/society-service/pkg/util"
)

// Timeline tags written by the assignment state machine.
const (
	timelineReported            = "reported"
	timelineAssigned            = "assigned"
	timelineAccepted            = "accepted"
	timelineRejected            = "rejected"
	timelineRescheduleRequested = "reschedule-requested"
)

// NotificationChannel delivers decision payloads to a recipient. Delivery
// failures are the channel's concern; the engine fires and forgets.
type NotificationChannel interface {
	Deliver(ctx context.Context, payload assign.DecisionPayload, recipientID string) error
}

// AssignmentService owns the issue assignment state machine: it applies
// selection results and resident decisions as transitions, committing each
// status change atomically with exactly one timeline entry. Concurrent
// transitions on the same issue are serialized by the repository's version
// check; a bounded retry re-reads and re-validates on conflict.
type AssignmentService struct {
	issues          repository.IssueRepository
	directory       TechnicianDirectory
	dispatcher      events.Dispatcher
	channel         NotificationChannel
	logger          *zap.Logger
	conflictRetries int
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	IssueRepo       repository.IssueRepository
	Directory       TechnicianDirectory
	Dispatcher      events.Dispatcher
	Channel         NotificationChannel
	Logger          *zap.Logger
	ConflictRetries int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	retries := deps.ConflictRetries
	if retries <= 0 {
		retries = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		issues:          deps.IssueRepo,
		directory:       deps.Directory,
		dispatcher:      deps.Dispatcher,
		channel:         deps.Channel,
		logger:          logger,
		conflictRetries: retries,
	}
}

// AssignmentResult reports the outcome of a selection run. NoMatch is a
// normal outcome, not an error: the issue stays pending for manual retry.
type AssignmentResult struct {
	Assigned bool
	Reason   string
	Decision *assign.DecisionPayload
	Issue    *domain.Issue
}

// Assign runs selection for a pending issue and transitions it to assigned
// when a technician matches. A failed selection (empty pool, no candidate,
// directory unavailable) leaves the issue pending and records the outcome
// in the timeline.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.User, issueID string) (*AssignmentResult, error) {
	var result *AssignmentResult
	err := s.withConflictRetry(ctx, issueID, func(issue *domain.Issue) error {
		if !canDecideOnIssue(actor, issue) {
			return apperrors.NewForbidden("access denied")
		}
		if issue.Status != domain.StatusPending {
			return apperrors.NewInvalidTransition(string(issue.Status), string(domain.StatusAssigned), map[string]any{"issue_id": issue.ID})
		}

		candidates := s.candidateSnapshot(ctx)
		technician, ok := assign.Select(issue.Category, assign.FilterAvailable(candidates))
		if !ok {
			entry := s.timelineEntry(actor, timelineReported, "No suitable technician available; issue awaiting manual assignment")
			if err := s.issues.Commit(ctx, issue, issue.Version, entry); err != nil {
				return err
			}
			result = &AssignmentResult{Assigned: false, Reason: "no suitable technician found", Issue: issue}
			return nil
		}

		estimate := assign.EstimateCost(issue.Category, technician.HourlyRate)
		completion := time.Now().Add(time.Duration(estimate.Hours * float64(time.Hour)))
		issue.AssignedTo = &technician.ID
		issue.Status = domain.StatusAssigned
		issue.Cost.Estimated = &estimate.Total
		issue.EstimatedCompletion = &completion

		entry := s.timelineEntry(actor, timelineAssigned, fmt.Sprintf("Assigned to %s", technician.Name))
		if err := s.issues.Commit(ctx, issue, issue.Version, entry); err != nil {
			return err
		}

		decision := assign.BuildDecision(issue, technician)
		s.publish(ctx, actor, events.EventTechnicianAssigned, issue.ID, events.TechnicianAssignedPayload{
			TechnicianID:   technician.ID,
			TechnicianName: technician.Name,
			EstimatedTime:  decision.EstimatedTime,
			EstimatedCost:  estimate.Total,
		})
		s.deliver(ctx, decision, issue.ReportedBy)

		result = &AssignmentResult{Assigned: true, Decision: &decision, Issue: issue}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Decision renders the resident-facing assignment payload for an issue
// that currently has a technician. It is recomputed per call and mutates
// nothing.
func (s *AssignmentService) Decision(ctx context.Context, actor *domain.User, issueID string) (*assign.DecisionPayload, error) {
	issue, err := s.fetch(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !canDecideOnIssue(actor, issue) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if issue.AssignedTo == nil {
		return nil, apperrors.NewNotFound("assignment", map[string]any{"issue_id": issue.ID})
	}
	technician, err := s.directory.GetTechnician(ctx, *issue.AssignedTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": *issue.AssignedTo})
		}
		return nil, apperrors.MapError(err)
	}
	decision := assign.BuildDecision(issue, technician)
	return &decision, nil
}

// Accept records the resident's acceptance: assigned to in-progress.
func (s *AssignmentService) Accept(ctx context.Context, actor *domain.User, issueID string) (*domain.Issue, error) {
	return s.decide(ctx, actor, issueID, func(issue *domain.Issue) (domain.TimelineEntry, func(), error) {
		techID := *issue.AssignedTo
		issue.Status = domain.StatusInProgress
		entry := s.timelineEntry(actor, timelineAccepted, "Resident accepted technician assignment")
		after := func() {
			s.publish(ctx, actor, events.EventAssignmentAccepted, issue.ID, events.IssueStatusChangedPayload{
				OldStatus: domain.StatusAssigned,
				NewStatus: domain.StatusInProgress,
				Comment:   "technician " + techID,
			})
		}
		return entry, after, nil
	})
}

// Reject clears the assignment and returns the issue to pending. The
// reason, when given, is carried in the timeline message.
func (s *AssignmentService) Reject(ctx context.Context, actor *domain.User, issueID, reason string) (*domain.Issue, error) {
	return s.decide(ctx, actor, issueID, func(issue *domain.Issue) (domain.TimelineEntry, func(), error) {
		techID := *issue.AssignedTo
		if reason == "" {
			reason = "Not specified"
		}
		issue.AssignedTo = nil
		issue.Status = domain.StatusPending
		issue.Cost.Estimated = nil
		issue.EstimatedCompletion = nil
		entry := s.timelineEntry(actor, timelineRejected, fmt.Sprintf("Technician assignment rejected. Reason: %s", reason))
		after := func() {
			s.publish(ctx, actor, events.EventAssignmentRejected, issue.ID, events.AssignmentRejectedPayload{
				TechnicianID: techID,
				Reason:       reason,
			})
		}
		return entry, after, nil
	})
}

// Reschedule records the resident's request for a different slot. The
// technician stays assigned and no field other than the timeline changes;
// selection is not re-run.
func (s *AssignmentService) Reschedule(ctx context.Context, actor *domain.User, issueID, note string) (*domain.Issue, error) {
	return s.decide(ctx, actor, issueID, func(issue *domain.Issue) (domain.TimelineEntry, func(), error) {
		techID := *issue.AssignedTo
		message := "Resident requested a reschedule"
		if note != "" {
			message += ": " + note
		}
		entry := s.timelineEntry(actor, timelineRescheduleRequested, message)
		after := func() {
			s.publish(ctx, actor, events.EventRescheduleRequested, issue.ID, events.RescheduleRequestedPayload{
				TechnicianID: techID,
				Note:         note,
			})
		}
		return entry, after, nil
	})
}

// decide applies a resident decision transition: all three decisions
// require a currently assigned issue with a technician.
func (s *AssignmentService) decide(ctx context.Context, actor *domain.User, issueID string, mutate func(*domain.Issue) (domain.TimelineEntry, func(), error)) (*domain.Issue, error) {
	var out *domain.Issue
	err := s.withConflictRetry(ctx, issueID, func(issue *domain.Issue) error {
		if !canDecideOnIssue(actor, issue) {
			return apperrors.NewForbidden("access denied")
		}
		if issue.Status != domain.StatusAssigned || issue.AssignedTo == nil {
			return apperrors.NewInvalidTransition(string(issue.Status), "decision", map[string]any{"issue_id": issue.ID})
		}
		entry, after, err := mutate(issue)
		if err != nil {
			return err
		}
		if err := s.issues.Commit(ctx, issue, issue.Version, entry); err != nil {
			return err
		}
		if after != nil {
			after()
		}
		out = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withConflictRetry fetches the issue and runs fn, re-fetching and
// re-validating on a version conflict. Retries are capped; exhaustion
// surfaces a Conflict for the caller to handle.
func (s *AssignmentService) withConflictRetry(ctx context.Context, issueID string, fn func(*domain.Issue) error) error {
	for attempt := 0; attempt <= s.conflictRetries; attempt++ {
		issue, err := s.fetch(ctx, issueID)
		if err != nil {
			return err
		}
		err = fn(issue)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("assignment commit conflict, retrying",
				zap.String("issue_id", issueID), zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	return apperrors.NewConflict("issue was modified concurrently", map[string]any{"issue_id": issueID})
}

func (s *AssignmentService) fetch(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// candidateSnapshot reads the directory; an unreachable directory degrades
// to an empty pool so selection fails toward "leave unassigned".
func (s *AssignmentService) candidateSnapshot(ctx context.Context) []domain.Technician {
	candidates, err := s.directory.ListAvailable(ctx)
	if err != nil {
		s.logger.Warn("technician directory unavailable", zap.Error(err))
		return nil
	}
	return candidates
}

func (s *AssignmentService) timelineEntry(actor *domain.User, status, message string) domain.TimelineEntry {
	entry := domain.TimelineEntry{Status: status, Message: message}
	if actor != nil {
		actorID := actor.ID
		entry.ActorID = &actorID
	}
	return entry
}

func (s *AssignmentService) publish(ctx context.Context, actor *domain.User, eventType events.EventType, issueID string, payload interface{}) {
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

func (s *AssignmentService) deliver(ctx context.Context, decision assign.DecisionPayload, recipientID string) {
	if s.channel == nil {
		return
	}
	if err := s.channel.Deliver(ctx, decision, recipientID); err != nil {
		s.logger.Warn("decision delivery failed", zap.String("recipient", recipientID), zap.Error(err))
	}
}

// canDecideOnIssue gates assignment operations: residents act on their own
// issues, admins on any.
func canDecideOnIssue(actor *domain.User, issue *domain.Issue) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleResident:
		return issue.ReportedBy == actor.ID
	default:
		return false
	}
}
