package service

import (
	"context"
	"testing"
	"time"

	"github.com/societyops/society-service/internal/domain"
)

func newBillingFixture(repo *fakeBillRepo) *BillingService {
	return NewBillingService(BillingDependencies{BillRepo: repo})
}

func seedBill(t *testing.T, svc *BillingService, residentID string, billType domain.BillType, amount float64, due time.Time, comments string) *domain.Bill {
	t.Helper()
	bill, err := svc.CreateBill(context.Background(), admin("a1"), BillCreateInput{
		ResidentID: residentID,
		Type:       billType,
		Amount:     amount,
		DueDate:    due,
		Comments:   comments,
	})
	if err != nil {
		t.Fatalf("seed bill: %v", err)
	}
	return bill
}

func TestCreateBillRequiresAdmin(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	_, err := svc.CreateBill(context.Background(), resident("r1"), BillCreateInput{
		ResidentID: "r1",
		Type:       domain.BillTypeMaintenance,
		Amount:     1500,
		DueDate:    time.Now().AddDate(0, 0, 14),
	})
	assertDomainErrorCode(t, err, "FORBIDDEN")
}

func TestCreateBillValidation(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	due := time.Now().AddDate(0, 0, 14)

	cases := []struct {
		name  string
		input BillCreateInput
	}{
		{"missing resident", BillCreateInput{Type: domain.BillTypeWater, Amount: 100, DueDate: due}},
		{"zero amount", BillCreateInput{ResidentID: "r1", Type: domain.BillTypeWater, Amount: 0, DueDate: due}},
		{"bad type", BillCreateInput{ResidentID: "r1", Type: "internet", Amount: 100, DueDate: due}},
		{"no due date", BillCreateInput{ResidentID: "r1", Type: domain.BillTypeWater, Amount: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBill(context.Background(), admin("a1"), tc.input)
			assertDomainErrorCode(t, err, "VALIDATION_FAILED")
		})
	}
}

func TestListBillsScopedToResident(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	due := time.Now().AddDate(0, 0, 14)
	seedBill(t, svc, "r1", domain.BillTypeMaintenance, 1500, due, "")
	seedBill(t, svc, "r2", domain.BillTypeWater, 400, due, "")

	own, err := svc.ListBills(context.Background(), resident("r1"), nil, 20, 0)
	if err != nil {
		t.Fatalf("ListBills: %v", err)
	}
	if len(own) != 1 || own[0].ResidentID != "r1" {
		t.Errorf("resident should only see own bills, got %d", len(own))
	}

	all, err := svc.ListBills(context.Background(), admin("a1"), nil, 20, 0)
	if err != nil {
		t.Fatalf("ListBills admin: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin should see every bill, got %d", len(all))
	}
}

func TestPayBill(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	bill := seedBill(t, svc, "r1", domain.BillTypeMaintenance, 1500, time.Now().AddDate(0, 0, 14), "")

	paid, err := svc.PayBill(context.Background(), resident("r1"), bill.ID)
	if err != nil {
		t.Fatalf("PayBill: %v", err)
	}
	if paid.Status != domain.BillStatusPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Error("payment must record the timestamp")
	}

	_, err = svc.PayBill(context.Background(), resident("r1"), bill.ID)
	assertDomainErrorCode(t, err, "CONFLICT")
}

func TestPayBillOwnership(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	bill := seedBill(t, svc, "r1", domain.BillTypeMaintenance, 1500, time.Now().AddDate(0, 0, 14), "")

	_, err := svc.PayBill(context.Background(), resident("r2"), bill.ID)
	assertDomainErrorCode(t, err, "FORBIDDEN")
}

func TestDisputeBillRequiresReason(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	bill := seedBill(t, svc, "r1", domain.BillTypeMaintenance, 1500, time.Now().AddDate(0, 0, 14), "")

	_, err := svc.DisputeBill(context.Background(), resident("r1"), bill.ID, " ")
	assertDomainErrorCode(t, err, "VALIDATION_FAILED")

	disputed, err := svc.DisputeBill(context.Background(), resident("r1"), bill.ID, "amount does not match notice")
	if err != nil {
		t.Fatalf("DisputeBill: %v", err)
	}
	if disputed.Status != domain.BillStatusDisputed {
		t.Errorf("status = %s, want disputed", disputed.Status)
	}
	if disputed.Comments != "amount does not match notice" {
		t.Errorf("comments = %q, want the dispute reason", disputed.Comments)
	}
}

func TestAnalysisRequiresAdmin(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	_, err := svc.Analysis(context.Background(), resident("r1"))
	assertDomainErrorCode(t, err, "FORBIDDEN")
}

func TestAnalysisFindsExactDuplicates(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	seedBill(t, svc, "r1", domain.BillTypeMaintenance, 1500, due, "")
	seedBill(t, svc, "r1", domain.BillTypeMaintenance, 1500, due, "")
	seedBill(t, svc, "r2", domain.BillTypeMaintenance, 1500, due, "")

	analysis, err := svc.Analysis(context.Background(), admin("a1"))
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if len(analysis.Duplicates) != 1 {
		t.Fatalf("duplicate groups = %d, want 1", len(analysis.Duplicates))
	}
	group := analysis.Duplicates[0]
	if group.MatchType != "exact_match" {
		t.Errorf("match type = %s, want exact_match", group.MatchType)
	}
	if group.Resident != "r1" || len(group.BillIDs) != 2 {
		t.Errorf("group = %+v, want r1's two bills", group)
	}
}

func TestAnalysisFindsSimilarPatterns(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	seedBill(t, svc, "r1", domain.BillTypeAmenities, 900,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "clubhouse booking")
	seedBill(t, svc, "r1", domain.BillTypeAmenities, 900,
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), "clubhouse booking fee")

	analysis, err := svc.Analysis(context.Background(), admin("a1"))
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if len(analysis.Duplicates) != 1 || analysis.Duplicates[0].MatchType != "similar_pattern" {
		t.Fatalf("expected one similar_pattern group, got %+v", analysis.Duplicates)
	}
}

func TestAnalysisFlagsLowAmountOutliers(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	due := time.Now().AddDate(0, 0, 14)
	seedBill(t, svc, "r1", domain.BillTypeElectricity, 2000, due, "")
	seedBill(t, svc, "r2", domain.BillTypeElectricity, 2200, due.AddDate(0, 0, 1), "")
	low := seedBill(t, svc, "r3", domain.BillTypeElectricity, 100, due.AddDate(0, 0, 2), "")

	analysis, err := svc.Analysis(context.Background(), admin("a1"))
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	found := false
	for _, anomaly := range analysis.Anomalies {
		if anomaly.Kind == "low_amount" && anomaly.BillID == low.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a low_amount anomaly for %s, got %+v", low.ID, analysis.Anomalies)
	}
}

func TestAnalysisFlagsHighDisputeRate(t *testing.T) {
	svc := newBillingFixture(newFakeBillRepo())
	due := time.Now().AddDate(0, 0, 14)
	first := seedBill(t, svc, "r1", domain.BillTypeWater, 400, due, "")
	second := seedBill(t, svc, "r1", domain.BillTypeWater, 450, due.AddDate(0, 1, 0), "")
	if _, err := svc.DisputeBill(context.Background(), resident("r1"), first.ID, "meter reading wrong"); err != nil {
		t.Fatalf("dispute first: %v", err)
	}
	if _, err := svc.DisputeBill(context.Background(), resident("r1"), second.ID, "meter reading wrong again"); err != nil {
		t.Fatalf("dispute second: %v", err)
	}

	analysis, err := svc.Analysis(context.Background(), admin("a1"))
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	found := false
	for _, anomaly := range analysis.Anomalies {
		if anomaly.Kind == "high_dispute_rate" && anomaly.ResidentID == "r1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a high_dispute_rate anomaly for r1, got %+v", analysis.Anomalies)
	}
	if analysis.Summary.DisputedCount != 2 {
		t.Errorf("disputed count = %d, want 2", analysis.Summary.DisputedCount)
	}
}
