package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/societyops/society-service/internal/domain"
)

// ErrVersionConflict signals that a commit lost the optimistic-version race
// against a concurrent transition on the same issue.
var ErrVersionConflict = errors.New("issue version conflict")

// IssueFilter captures issue search parameters.
type IssueFilter struct {
	ReportedBy *string
	AssignedTo *string
	Statuses   []domain.IssueStatus
	Categories []domain.IssueCategory
	Priorities []domain.IssuePriority
	Limit      int
	Offset     int
}

// IssueRepository encapsulates issue persistence. Create and Commit write
// the issue row and its timeline entry in one transaction: status never
// changes without a matching history record.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue, entry domain.TimelineEntry) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	ListWithFilter(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	Commit(ctx context.Context, issue *domain.Issue, expectedVersion int64, entry domain.TimelineEntry) error
	ListTimeline(ctx context.Context, issueID string) ([]domain.TimelineEntry, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue, entry domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertIssue = `
        INSERT INTO issues (reported_by, assigned_to, title, description, category, priority, status,
                            flat_number, building, area, cost_currency)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, version, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertIssue,
		issue.ReportedBy,
		issue.AssignedTo,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Priority,
		issue.Status,
		issue.Location.FlatNumber,
		issue.Location.Building,
		issue.Location.Area,
		issue.Cost.Currency,
	).Scan(&issue.ID, &issue.Version, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
		return err
	}

	entry.IssueID = issue.ID
	if err := insertTimelineEntry(ctx, tx, &entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	issue.Timeline = append(issue.Timeline, entry)
	return nil
}

// Commit applies a state transition atomically: the issue row update and
// the timeline append share one transaction, guarded by a compare-and-swap
// on the version column. A stale expectedVersion yields ErrVersionConflict
// and nothing is written.
func (r *issueRepository) Commit(ctx context.Context, issue *domain.Issue, expectedVersion int64, entry domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE issues SET assigned_to=$1, status=$2, estimated_completion=$3, actual_completion=$4,
            cost_estimated=$5, cost_actual=$6, version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8
        RETURNING version, updated_at`
	err = tx.QueryRow(ctx, update,
		issue.AssignedTo,
		issue.Status,
		issue.EstimatedCompletion,
		issue.ActualCompletion,
		issue.Cost.Estimated,
		issue.Cost.Actual,
		issue.ID,
		expectedVersion,
	).Scan(&issue.Version, &issue.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return err
	}

	entry.IssueID = issue.ID
	if err := insertTimelineEntry(ctx, tx, &entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	issue.Timeline = append(issue.Timeline, entry)
	return nil
}

func insertTimelineEntry(ctx context.Context, tx pgx.Tx, entry *domain.TimelineEntry) error {
	const insert = `
        INSERT INTO issue_timeline (issue_id, status, message, actor_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, insert,
		entry.IssueID,
		entry.Status,
		entry.Message,
		entry.ActorID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

const issueColumns = `id, reported_by, assigned_to, title, description, category, priority, status,
               flat_number, building, area, estimated_completion, actual_completion,
               cost_estimated, cost_actual, cost_currency, version, created_at, updated_at`

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE id=$1`, issueColumns)
	var issue domain.Issue
	if err := scanIssue(r.pool.QueryRow(ctx, query, id), &issue); err != nil {
		return nil, err
	}
	timeline, err := r.ListTimeline(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	issue.Timeline = timeline
	return &issue, nil
}

func (r *issueRepository) ListWithFilter(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReportedBy != nil {
		args = append(args, *filter.ReportedBy)
		clauses = append(clauses, fmt.Sprintf("reported_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		issueColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := scanIssue(rows, &issue); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

func (r *issueRepository) ListTimeline(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, issue_id, status, message, actor_id, created_at
        FROM issue_timeline WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IssueID,
			&entry.Status,
			&entry.Message,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanIssue(row pgx.Row, issue *domain.Issue) error {
	return row.Scan(
		&issue.ID,
		&issue.ReportedBy,
		&issue.AssignedTo,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Priority,
		&issue.Status,
		&issue.Location.FlatNumber,
		&issue.Location.Building,
		&issue.Location.Area,
		&issue.EstimatedCompletion,
		&issue.ActualCompletion,
		&issue.Cost.Estimated,
		&issue.Cost.Actual,
		&issue.Cost.Currency,
		&issue.Version,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
}
