package service

import (
	"context"
	"testing"

	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/events"
)

func TestFeedScopedToResident(t *testing.T) {
	repo := newFakeIssueRepo()
	svc := NewNotificationService(repo, nil)
	r1, r2 := resident("r1"), resident("r2")
	issue := seedIssue(t, repo, r1, domain.CategoryPlumbing)
	seedIssue(t, repo, r2, domain.CategoryElectrical)

	items, err := svc.Feed(context.Background(), r1, 50)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("feed length = %d, want 1", len(items))
	}
	if items[0].IssueID != issue.ID || items[0].Type != "reported" {
		t.Errorf("unexpected feed item %+v", items[0])
	}
}

func TestFeedFollowsTimeline(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	assignments := newAssignmentFixture(repo, directory, &fakeChannel{})
	svc := NewNotificationService(repo, nil)
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, assignments, reporter, issue.ID)
	if _, err := assignments.Accept(context.Background(), reporter, issue.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	items, err := svc.Feed(context.Background(), reporter, 50)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("feed length = %d, want 3 (reported, assigned, accepted)", len(items))
	}
}

func TestFeedLimit(t *testing.T) {
	repo := newFakeIssueRepo()
	svc := NewNotificationService(repo, nil)
	reporter := resident("r1")
	for i := 0; i < 5; i++ {
		seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	}

	items, err := svc.Feed(context.Background(), reporter, 3)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("feed length = %d, want limit of 3", len(items))
	}
}

func TestRegisterHandlersSubscribesAllEventTypes(t *testing.T) {
	repo := newFakeIssueRepo()
	svc := NewNotificationService(repo, nil)
	dispatcher := events.NewInMemoryDispatcher()
	svc.RegisterHandlers(dispatcher)

	// Publishing each type must not panic or error with handlers attached.
	for _, eventType := range []events.EventType{
		events.EventIssueReported,
		events.EventTechnicianAssigned,
		events.EventAssignmentAccepted,
		events.EventAssignmentRejected,
		events.EventRescheduleRequested,
		events.EventIssueStatusChanged,
	} {
		if err := dispatcher.Publish(context.Background(), events.Event{ID: "e1", Type: eventType, IssueID: "issue-1"}); err != nil {
			t.Fatalf("Publish(%s): %v", eventType, err)
		}
	}
}
