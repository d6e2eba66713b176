package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/societyops/society-service/internal/assign"
	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/repository"
)

// fakeIssueRepo is an in-memory IssueRepository with the same version
// semantics as the SQL implementation.
type fakeIssueRepo struct {
	mu     sync.Mutex
	seq    int
	issues map[string]*domain.Issue

	// commitHook runs before each Commit, letting tests inject a
	// concurrent writer between fetch and commit.
	commitHook func()
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{issues: map[string]*domain.Issue{}}
}

func (r *fakeIssueRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeIssueRepo) Create(ctx context.Context, issue *domain.Issue, entry domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue.ID = r.nextID("issue")
	issue.Version = 1
	entry.ID = r.nextID("entry")
	entry.IssueID = issue.ID
	issue.Timeline = append(issue.Timeline, entry)
	stored := cloneIssue(issue)
	r.issues[issue.ID] = stored
	return nil
}

func (r *fakeIssueRepo) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneIssue(stored), nil
}

func (r *fakeIssueRepo) ListWithFilter(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Issue
	for _, stored := range r.issues {
		if filter.ReportedBy != nil && stored.ReportedBy != *filter.ReportedBy {
			continue
		}
		if filter.AssignedTo != nil && (stored.AssignedTo == nil || *stored.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		out = append(out, *cloneIssue(stored))
	}
	return out, nil
}

func (r *fakeIssueRepo) Commit(ctx context.Context, issue *domain.Issue, expectedVersion int64, entry domain.TimelineEntry) error {
	if r.commitHook != nil {
		hook := r.commitHook
		r.commitHook = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[issue.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	entry.ID = r.nextID("entry")
	entry.IssueID = issue.ID
	issue.Version = expectedVersion + 1
	issue.Timeline = append(issue.Timeline, entry)
	r.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func (r *fakeIssueRepo) ListTimeline(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[issueID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return append([]domain.TimelineEntry(nil), stored.Timeline...), nil
}

// forceBump simulates a concurrent transition winning the race.
func (r *fakeIssueRepo) forceBump(issueID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.issues[issueID]; ok {
		stored.Version++
	}
}

func cloneIssue(src *domain.Issue) *domain.Issue {
	dup := *src
	dup.Timeline = append([]domain.TimelineEntry(nil), src.Timeline...)
	if src.AssignedTo != nil {
		id := *src.AssignedTo
		dup.AssignedTo = &id
	}
	if src.Cost.Estimated != nil {
		v := *src.Cost.Estimated
		dup.Cost.Estimated = &v
	}
	if src.Cost.Actual != nil {
		v := *src.Cost.Actual
		dup.Cost.Actual = &v
	}
	if src.EstimatedCompletion != nil {
		t := *src.EstimatedCompletion
		dup.EstimatedCompletion = &t
	}
	if src.ActualCompletion != nil {
		t := *src.ActualCompletion
		dup.ActualCompletion = &t
	}
	return &dup
}

func containsStatus(statuses []domain.IssueStatus, status domain.IssueStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// fakeDirectory serves a fixed technician pool.
type fakeDirectory struct {
	technicians []domain.Technician
	err         error
}

func (d *fakeDirectory) ListAvailable(ctx context.Context) ([]domain.Technician, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []domain.Technician
	for _, t := range d.technicians {
		if t.Availability == domain.AvailabilityAvailable {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *fakeDirectory) GetTechnician(ctx context.Context, id string) (domain.Technician, error) {
	if d.err != nil {
		return domain.Technician{}, d.err
	}
	for _, t := range d.technicians {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Technician{}, pgx.ErrNoRows
}

// fakeChannel records delivered decision payloads.
type fakeChannel struct {
	deliveries []assign.DecisionPayload
	recipients []string
	err        error
}

func (c *fakeChannel) Deliver(ctx context.Context, payload assign.DecisionPayload, recipientID string) error {
	if c.err != nil {
		return c.err
	}
	c.deliveries = append(c.deliveries, payload)
	c.recipients = append(c.recipients, recipientID)
	return nil
}

// fakeBillRepo is an in-memory BillRepository.
type fakeBillRepo struct {
	mu    sync.Mutex
	seq   int
	bills map[string]*domain.Bill
	order []string
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{bills: map[string]*domain.Bill{}}
}

func (r *fakeBillRepo) Create(ctx context.Context, bill *domain.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	bill.ID = fmt.Sprintf("bill-%d", r.seq)
	dup := *bill
	r.bills[bill.ID] = &dup
	r.order = append(r.order, bill.ID)
	return nil
}

func (r *fakeBillRepo) GetByID(ctx context.Context, id string) (*domain.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bills[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	dup := *stored
	return &dup, nil
}

func (r *fakeBillRepo) Update(ctx context.Context, bill *domain.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bills[bill.ID]; !ok {
		return pgx.ErrNoRows
	}
	dup := *bill
	r.bills[bill.ID] = &dup
	return nil
}

func (r *fakeBillRepo) ListWithFilter(ctx context.Context, filter repository.BillFilter) ([]domain.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Bill
	for _, id := range r.order {
		bill := r.bills[id]
		if filter.ResidentID != nil && bill.ResidentID != *filter.ResidentID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsBillStatus(filter.Statuses, bill.Status) {
			continue
		}
		out = append(out, *bill)
	}
	return out, nil
}

func (r *fakeBillRepo) ListAll(ctx context.Context) ([]domain.Bill, error) {
	return r.ListWithFilter(ctx, repository.BillFilter{})
}

// fakeUserRepo is an in-memory UserRepository keyed by id and email.
type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	dup := *user
	r.users[user.ID] = &dup
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	dup := *stored
	return &dup, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.users {
		if stored.Email == email {
			dup := *stored
			return &dup, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.PasswordHash = passwordHash
	return nil
}

func containsBillStatus(statuses []domain.BillStatus, status domain.BillStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
