package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/societyops/society-service/internal/domain"
	apperrors "github.com/societyops/society-service/pkg/util"
)

func availableTech(id string, skills []string, rate float64) domain.Technician {
	return domain.Technician{
		ID:           id,
		Name:         "Tech " + id,
		Skills:       skills,
		HourlyRate:   rate,
		Availability: domain.AvailabilityAvailable,
	}
}

func resident(id string) *domain.User {
	return &domain.User{ID: id, Name: "Resident " + id, Role: domain.RoleResident, Active: true}
}

func seedIssue(t *testing.T, repo *fakeIssueRepo, reporter *domain.User, category domain.IssueCategory) *domain.Issue {
	t.Helper()
	issue := &domain.Issue{
		ReportedBy:  reporter.ID,
		Title:       "Kitchen tap leaking",
		Description: "Water dripping from the kitchen tap since morning",
		Category:    category,
		Priority:    domain.PriorityMedium,
		Status:      domain.StatusPending,
		Cost:        domain.IssueCost{Currency: "INR"},
	}
	entry := domain.TimelineEntry{Status: "reported", Message: "Issue reported"}
	if err := repo.Create(context.Background(), issue, entry); err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	return issue
}

func newAssignmentFixture(repo *fakeIssueRepo, directory *fakeDirectory, channel *fakeChannel) *AssignmentService {
	return NewAssignmentService(AssignmentDependencies{
		IssueRepo: repo,
		Directory: directory,
		Channel:   channel,
	})
}

func TestAssignSelectsAndTransitions(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{
		availableTech("t1", []string{"electrical"}, 300),
		availableTech("t2", []string{"plumbing"}, 500),
	}}
	channel := &fakeChannel{}
	svc := newAssignmentFixture(repo, directory, channel)
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)

	result, err := svc.Assign(context.Background(), reporter, issue.ID)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !result.Assigned {
		t.Fatalf("expected an assignment, got reason %q", result.Reason)
	}
	if result.Issue.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want assigned", result.Issue.Status)
	}
	if result.Issue.AssignedTo == nil || *result.Issue.AssignedTo != "t2" {
		t.Errorf("assigned to %v, want t2", result.Issue.AssignedTo)
	}
	if result.Issue.Cost.Estimated == nil {
		t.Error("expected an estimated cost")
	}
	if result.Issue.EstimatedCompletion == nil {
		t.Error("expected an estimated completion time")
	}
	if result.Decision == nil {
		t.Fatal("expected a decision payload")
	}
	if len(result.Decision.Actions) != 3 {
		t.Errorf("decision actions = %d, want 3", len(result.Decision.Actions))
	}

	if len(channel.deliveries) != 1 || channel.recipients[0] != reporter.ID {
		t.Errorf("decision not delivered to reporter: %v", channel.recipients)
	}

	stored, _ := repo.GetByID(context.Background(), issue.ID)
	if len(stored.Timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2", len(stored.Timeline))
	}
	if stored.Timeline[1].Status != "assigned" {
		t.Errorf("timeline entry status = %s, want assigned", stored.Timeline[1].Status)
	}
}

func TestAssignNoMatchLeavesPending(t *testing.T) {
	repo := newFakeIssueRepo()
	busy := availableTech("t1", []string{"plumbing"}, 400)
	busy.Availability = domain.AvailabilityBusy
	directory := &fakeDirectory{technicians: []domain.Technician{busy}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)

	result, err := svc.Assign(context.Background(), reporter, issue.ID)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if result.Assigned {
		t.Fatal("expected no assignment")
	}

	stored, _ := repo.GetByID(context.Background(), issue.ID)
	if stored.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}
	if stored.AssignedTo != nil {
		t.Errorf("assigned to %v, want nil", stored.AssignedTo)
	}
	if len(stored.Timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2 (reported + no-match record)", len(stored.Timeline))
	}
}

func TestAssignDirectoryUnavailableLeavesPending(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{err: errors.New("directory down")}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)

	result, err := svc.Assign(context.Background(), reporter, issue.ID)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if result.Assigned {
		t.Fatal("expected no assignment when the directory is unreachable")
	}
	stored, _ := repo.GetByID(context.Background(), issue.ID)
	if stored.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}
}

func TestAssignNonPendingRejected(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)

	if _, err := svc.Assign(context.Background(), reporter, issue.ID); err != nil {
		t.Fatalf("first Assign: %v", err)
	}
	_, err := svc.Assign(context.Background(), reporter, issue.ID)
	assertDomainErrorCode(t, err, "INVALID_TRANSITION")
}

func TestAcceptMovesToInProgress(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	updated, err := svc.Accept(context.Background(), reporter, issue.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want in-progress", updated.Status)
	}
	if updated.AssignedTo == nil {
		t.Error("acceptance must keep the technician")
	}
	if updated.Timeline[len(updated.Timeline)-1].Status != "accepted" {
		t.Errorf("last timeline status = %s, want accepted", updated.Timeline[len(updated.Timeline)-1].Status)
	}
}

func TestRejectReturnsToPendingAndClearsAssignment(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	updated, err := svc.Reject(context.Background(), reporter, issue.ID, "wrong skill")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if updated.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", updated.Status)
	}
	if updated.AssignedTo != nil {
		t.Errorf("assigned to %v, want nil after reject", updated.AssignedTo)
	}
	if updated.Cost.Estimated != nil {
		t.Error("estimated cost must be cleared on reject")
	}
	last := updated.Timeline[len(updated.Timeline)-1]
	if last.Status != "rejected" {
		t.Errorf("last timeline status = %s, want rejected", last.Status)
	}
	if !strings.Contains(last.Message, "wrong skill") {
		t.Errorf("timeline message %q should carry the reason", last.Message)
	}
}

func TestRejectDefaultReason(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	updated, err := svc.Reject(context.Background(), reporter, issue.ID, "")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	last := updated.Timeline[len(updated.Timeline)-1]
	if !strings.Contains(last.Message, "Not specified") {
		t.Errorf("timeline message %q should carry the default reason", last.Message)
	}
}

func TestRescheduleKeepsAssignment(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	updated, err := svc.Reschedule(context.Background(), reporter, issue.ID, "prefer evening")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if updated.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want assigned", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != "t1" {
		t.Errorf("reschedule must keep the technician, got %v", updated.AssignedTo)
	}
	last := updated.Timeline[len(updated.Timeline)-1]
	if last.Status != "reschedule-requested" {
		t.Errorf("last timeline status = %s, want reschedule-requested", last.Status)
	}
}

func TestDecisionRequiresAssignment(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)

	_, err := svc.Decision(context.Background(), reporter, issue.ID)
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestDecisionReflectsCurrentAssignment(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 800)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	decision, err := svc.Decision(context.Background(), reporter, issue.ID)
	if err != nil {
		t.Fatalf("Decision: %v", err)
	}
	if decision.Technician.ID != "t1" {
		t.Errorf("technician = %s, want t1", decision.Technician.ID)
	}
	if decision.EstimatedCost.Total != 2000 {
		t.Errorf("estimated total = %.2f, want 2000 (2.5h at 800)", decision.EstimatedCost.Total)
	}
}

func TestDecisionActionsAreMutuallyExclusiveTransitions(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	if _, err := svc.Accept(context.Background(), reporter, issue.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	// The issue left assigned; every further decision must fail.
	_, err := svc.Reject(context.Background(), reporter, issue.ID, "")
	assertDomainErrorCode(t, err, "INVALID_TRANSITION")
	_, err = svc.Reschedule(context.Background(), reporter, issue.ID, "")
	assertDomainErrorCode(t, err, "INVALID_TRANSITION")
	_, err = svc.Accept(context.Background(), reporter, issue.ID)
	assertDomainErrorCode(t, err, "INVALID_TRANSITION")
}

func TestOtherResidentCannotDecide(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	_, err := svc.Accept(context.Background(), resident("r2"), issue.ID)
	assertDomainErrorCode(t, err, "FORBIDDEN")
}

func TestConflictRetrySucceedsAfterRace(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	// A concurrent writer bumps the version once between fetch and commit;
	// the retry re-reads and lands cleanly.
	repo.commitHook = func() { repo.forceBump(issue.ID) }
	updated, err := svc.Accept(context.Background(), reporter, issue.ID)
	if err != nil {
		t.Fatalf("Accept after transient conflict: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want in-progress", updated.Status)
	}
}

func TestConflictRetryExhaustion(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := NewAssignmentService(AssignmentDependencies{
		IssueRepo:       repo,
		Directory:       directory,
		Channel:         &fakeChannel{},
		ConflictRetries: 2,
	})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)
	mustAssign(t, svc, reporter, issue.ID)

	var hook func()
	hook = func() {
		repo.forceBump(issue.ID)
		repo.commitHook = hook
	}
	repo.commitHook = hook

	_, err := svc.Accept(context.Background(), reporter, issue.ID)
	assertDomainErrorCode(t, err, "CONFLICT")
}

func TestEveryTransitionWritesOneTimelineEntry(t *testing.T) {
	repo := newFakeIssueRepo()
	directory := &fakeDirectory{technicians: []domain.Technician{availableTech("t1", []string{"plumbing"}, 400)}}
	svc := newAssignmentFixture(repo, directory, &fakeChannel{})
	reporter := resident("r1")
	issue := seedIssue(t, repo, reporter, domain.CategoryPlumbing)

	mustAssign(t, svc, reporter, issue.ID)
	if _, err := svc.Reject(context.Background(), reporter, issue.ID, "busy day"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	mustAssign(t, svc, reporter, issue.ID)
	if _, err := svc.Accept(context.Background(), reporter, issue.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// reported + assign + reject + assign + accept
	entries, err := repo.ListTimeline(context.Background(), issue.ID)
	if err != nil {
		t.Fatalf("ListTimeline: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("timeline length = %d, want 5", len(entries))
	}
}

func mustAssign(t *testing.T, svc *AssignmentService, actor *domain.User, issueID string) {
	t.Helper()
	result, err := svc.Assign(context.Background(), actor, issueID)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !result.Assigned {
		t.Fatalf("expected an assignment, got reason %q", result.Reason)
	}
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s", domainErr.Code, code)
	}
}
