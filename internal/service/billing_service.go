package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/societyops/society-service/internal/domain"
	"github.com/societyops/society-service/internal/persistence"
	"github.com/societyops/society-service/internal/repository"
	apperrors "github.com/societyops/society-service/pkg/util"
)

const analysisCacheKey = "billing:analysis"

// Duplicate detection heuristics. An exact match shares resident, amount
// and due date; a similar pattern shares resident and amount and one
// comment contains the other.
const (
	matchExact   = "exact_match"
	matchSimilar = "similar_pattern"
)

// BillingService manages bill lifecycle and the on-demand billing
// analysis view. Analysis is derived from the bill table on every
// request and cached briefly; it is never stored.
type BillingService struct {
	bills  repository.BillRepository
	cache  *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// BillingDependencies bundles collaborators for the billing service.
type BillingDependencies struct {
	BillRepo    repository.BillRepository
	Cache       *persistence.Redis
	AnalysisTTL time.Duration
	Logger      *zap.Logger
}

// NewBillingService constructs the service.
func NewBillingService(deps BillingDependencies) *BillingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{bills: deps.BillRepo, cache: deps.Cache, ttl: deps.AnalysisTTL, logger: logger}
}

// BillCreateInput describes a new charge.
type BillCreateInput struct {
	ResidentID  string
	Type        domain.BillType
	Amount      float64
	DueDate     time.Time
	Description string
	Comments    string
}

// CreateBill raises a charge against a resident. Admin only.
func (s *BillingService) CreateBill(ctx context.Context, actor *domain.User, input BillCreateInput) (*domain.Bill, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin required")
	}
	if input.ResidentID == "" {
		return nil, apperrors.NewValidationError("resident_id is required", nil)
	}
	if input.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"amount": input.Amount})
	}
	if !validBillType(input.Type) {
		return nil, apperrors.NewValidationError("invalid bill type", map[string]any{"type": input.Type})
	}
	if input.DueDate.IsZero() {
		return nil, apperrors.NewValidationError("due_date is required", nil)
	}

	bill := &domain.Bill{
		ResidentID:  input.ResidentID,
		Type:        input.Type,
		Amount:      input.Amount,
		Currency:    "INR",
		DueDate:     input.DueDate,
		Status:      domain.BillStatusPending,
		Description: strings.TrimSpace(input.Description),
		Comments:    strings.TrimSpace(input.Comments),
	}
	if err := s.bills.Create(ctx, bill); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateAnalysis(ctx)
	return bill, nil
}

// ListBills returns bills visible to the actor; residents only see their own.
func (s *BillingService) ListBills(ctx context.Context, actor *domain.User, statuses []domain.BillStatus, limit, offset int) ([]domain.Bill, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.BillFilter{Statuses: statuses, Limit: limit, Offset: offset}
	if actor.Role != domain.RoleAdmin {
		id := actor.ID
		filter.ResidentID = &id
	}
	bills, err := s.bills.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return bills, nil
}

// PayBill marks a pending or overdue bill paid. Residents may only pay
// their own bills.
func (s *BillingService) PayBill(ctx context.Context, actor *domain.User, billID string) (*domain.Bill, error) {
	return s.updateStatus(ctx, actor, billID, domain.BillStatusPaid, "", func(bill *domain.Bill) error {
		if bill.Status != domain.BillStatusPending && bill.Status != domain.BillStatusOverdue {
			return apperrors.NewConflict("bill is not payable", map[string]any{"status": bill.Status})
		}
		now := time.Now()
		bill.PaidAt = &now
		return nil
	})
}

// DisputeBill flags a pending or overdue bill as disputed with a reason.
func (s *BillingService) DisputeBill(ctx context.Context, actor *domain.User, billID, reason string) (*domain.Bill, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("dispute reason is required", nil)
	}
	return s.updateStatus(ctx, actor, billID, domain.BillStatusDisputed, reason, func(bill *domain.Bill) error {
		if bill.Status != domain.BillStatusPending && bill.Status != domain.BillStatusOverdue {
			return apperrors.NewConflict("bill cannot be disputed", map[string]any{"status": bill.Status})
		}
		return nil
	})
}

func (s *BillingService) updateStatus(ctx context.Context, actor *domain.User, billID string, next domain.BillStatus, comment string, check func(*domain.Bill) error) (*domain.Bill, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("bill", map[string]any{"bill_id": billID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role != domain.RoleAdmin && bill.ResidentID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if err := check(bill); err != nil {
		return nil, err
	}
	bill.Status = next
	if comment != "" {
		bill.Comments = comment
	}
	if err := s.bills.Update(ctx, bill); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateAnalysis(ctx)
	return bill, nil
}

// DuplicateGroup is a set of bills suspected to be the same charge.
type DuplicateGroup struct {
	MatchType string        `json:"match_type"`
	BillIDs   []string      `json:"bill_ids"`
	Resident  string        `json:"resident_id"`
	Amount    float64       `json:"amount"`
	Bills     []domain.Bill `json:"-"`
}

// Anomaly flags a bill or resident that deviates from the norm.
type Anomaly struct {
	Kind       string  `json:"kind"`
	BillID     string  `json:"bill_id,omitempty"`
	ResidentID string  `json:"resident_id,omitempty"`
	Detail     string  `json:"detail"`
	Value      float64 `json:"value"`
}

// AnalysisSummary aggregates the bill table.
type AnalysisSummary struct {
	TotalBills    int     `json:"total_bills"`
	TotalAmount   float64 `json:"total_amount"`
	PendingAmount float64 `json:"pending_amount"`
	DisputedCount int     `json:"disputed_count"`
	OverdueCount  int     `json:"overdue_count"`
}

// BillingAnalysis is the derived analysis view.
type BillingAnalysis struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     AnalysisSummary  `json:"summary"`
	Duplicates  []DuplicateGroup `json:"duplicates"`
	Anomalies   []Anomaly        `json:"anomalies"`
}

// Analysis computes the billing analysis over all bills. Admin only.
// Results are cached briefly; the cache is invalidated on any write.
func (s *BillingService) Analysis(ctx context.Context, actor *domain.User) (*BillingAnalysis, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin required")
	}

	if cached, ok, err := s.cache.GetString(ctx, analysisCacheKey); err == nil && ok {
		var analysis BillingAnalysis
		if err := json.Unmarshal([]byte(cached), &analysis); err == nil {
			return &analysis, nil
		}
	}

	bills, err := s.bills.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	analysis := &BillingAnalysis{
		GeneratedAt: time.Now(),
		Summary:     summarize(bills),
		Duplicates:  findDuplicates(bills),
		Anomalies:   findAnomalies(bills),
	}

	if encoded, err := json.Marshal(analysis); err == nil {
		if err := s.cache.SetString(ctx, analysisCacheKey, string(encoded), s.ttl); err != nil {
			s.logger.Warn("failed to cache billing analysis", zap.Error(err))
		}
	}
	return analysis, nil
}

func (s *BillingService) invalidateAnalysis(ctx context.Context) {
	if err := s.cache.Delete(ctx, analysisCacheKey); err != nil {
		s.logger.Warn("failed to invalidate billing analysis cache", zap.Error(err))
	}
}

func summarize(bills []domain.Bill) AnalysisSummary {
	var summary AnalysisSummary
	summary.TotalBills = len(bills)
	for _, bill := range bills {
		summary.TotalAmount += bill.Amount
		switch bill.Status {
		case domain.BillStatusPending:
			summary.PendingAmount += bill.Amount
		case domain.BillStatusDisputed:
			summary.DisputedCount++
		case domain.BillStatusOverdue:
			summary.OverdueCount++
			summary.PendingAmount += bill.Amount
		}
	}
	return summary
}

// findDuplicates groups bills per resident and amount. Same due date day
// means an exact duplicate; overlapping comments a similar pattern.
func findDuplicates(bills []domain.Bill) []DuplicateGroup {
	type key struct {
		resident string
		amount   float64
	}
	buckets := make(map[key][]domain.Bill)
	order := []key{}
	for _, bill := range bills {
		k := key{resident: bill.ResidentID, amount: bill.Amount}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], bill)
	}

	var groups []DuplicateGroup
	for _, k := range order {
		group := buckets[k]
		if len(group) < 2 {
			continue
		}
		matchType := classifyGroup(group)
		if matchType == "" {
			continue
		}
		ids := make([]string, len(group))
		for i, bill := range group {
			ids[i] = bill.ID
		}
		groups = append(groups, DuplicateGroup{
			MatchType: matchType,
			BillIDs:   ids,
			Resident:  k.resident,
			Amount:    k.amount,
			Bills:     group,
		})
	}
	return groups
}

func classifyGroup(group []domain.Bill) string {
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if sameDay(group[i].DueDate, group[j].DueDate) {
				return matchExact
			}
		}
	}
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if commentsOverlap(group[i].Comments, group[j].Comments) {
				return matchSimilar
			}
		}
	}
	return ""
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func commentsOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// findAnomalies flags bills far below the mean for their type and
// residents whose dispute rate is suspiciously high.
func findAnomalies(bills []domain.Bill) []Anomaly {
	var anomalies []Anomaly

	totals := make(map[domain.BillType]float64)
	counts := make(map[domain.BillType]int)
	for _, bill := range bills {
		totals[bill.Type] += bill.Amount
		counts[bill.Type]++
	}
	for _, bill := range bills {
		if counts[bill.Type] < 2 {
			continue
		}
		mean := totals[bill.Type] / float64(counts[bill.Type])
		if bill.Amount < mean*0.3 {
			anomalies = append(anomalies, Anomaly{
				Kind:       "low_amount",
				BillID:     bill.ID,
				ResidentID: bill.ResidentID,
				Detail:     fmt.Sprintf("amount %.2f is far below the %.2f average for %s bills", bill.Amount, mean, bill.Type),
				Value:      bill.Amount,
			})
		}
	}

	disputes := make(map[string]int)
	perResident := make(map[string]int)
	residentOrder := []string{}
	for _, bill := range bills {
		if _, seen := perResident[bill.ResidentID]; !seen {
			residentOrder = append(residentOrder, bill.ResidentID)
		}
		perResident[bill.ResidentID]++
		if bill.Status == domain.BillStatusDisputed {
			disputes[bill.ResidentID]++
		}
	}
	for _, residentID := range residentOrder {
		total := perResident[residentID]
		disputed := disputes[residentID]
		if total >= 2 && float64(disputed)/float64(total) >= 0.5 {
			anomalies = append(anomalies, Anomaly{
				Kind:       "high_dispute_rate",
				ResidentID: residentID,
				Detail:     fmt.Sprintf("%d of %d bills disputed", disputed, total),
				Value:      float64(disputed) / float64(total),
			})
		}
	}
	return anomalies
}

func validBillType(t domain.BillType) bool {
	switch t {
	case domain.BillTypeMaintenance, domain.BillTypeElectricity, domain.BillTypeWater,
		domain.BillTypeGas, domain.BillTypeParking, domain.BillTypeAmenities, domain.BillTypeOther:
		return true
	}
	return false
}
