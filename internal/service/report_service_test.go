package service

import (
	"math"
	"testing"

	"github.com/folkops/opsboard/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeByTeam(t *testing.T) {
	rows := []models.Report{
		{Team: "MKT1", Staff: "Lan", Leads: 40, ClosedOrders: 10, AdSpend: 2_000_000, Revenue: 10_000_000, KPITarget: 20_000_000},
		{Team: "MKT1", Staff: "Minh", Leads: 60, ClosedOrders: 20, AdSpend: 3_000_000, Revenue: 15_000_000, KPITarget: 20_000_000},
		{Team: "MKT2", Staff: "Huy", Leads: 50, ClosedOrders: 25, AdSpend: 1_000_000, Revenue: 5_000_000, KPITarget: 10_000_000},
	}

	got := Summarize(rows, GroupByTeam)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}

	mkt1 := got[0]
	if mkt1.Group != "MKT1" {
		t.Fatalf("expected groups sorted, first = %q", mkt1.Group)
	}
	if mkt1.Leads != 100 || mkt1.ClosedOrders != 30 {
		t.Errorf("MKT1 totals = %d leads / %d closed, want 100/30", mkt1.Leads, mkt1.ClosedOrders)
	}
	if !almostEqual(mkt1.ClosingRate, 0.3) {
		t.Errorf("MKT1 closing rate = %v, want 0.3", mkt1.ClosingRate)
	}
	if !almostEqual(mkt1.CostPercent, 0.2) {
		t.Errorf("MKT1 cost percent = %v, want 0.2", mkt1.CostPercent)
	}
	if !almostEqual(mkt1.KPIRatio, 0.625) {
		t.Errorf("MKT1 KPI ratio = %v, want 0.625", mkt1.KPIRatio)
	}

	mkt2 := got[1]
	if !almostEqual(mkt2.ClosingRate, 0.5) {
		t.Errorf("MKT2 closing rate = %v, want 0.5", mkt2.ClosingRate)
	}
}

func TestSummarizeByStaff(t *testing.T) {
	rows := []models.Report{
		{Team: "MKT1", Staff: "Lan", Leads: 10, ClosedOrders: 5, Revenue: 1_000_000},
		{Team: "MKT1", Staff: "Lan", Leads: 10, ClosedOrders: 3, Revenue: 2_000_000},
		{Team: "MKT2", Staff: "Huy", Leads: 20, ClosedOrders: 4, Revenue: 500_000},
	}

	got := Summarize(rows, GroupByStaff)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].Group != "Huy" || got[1].Group != "Lan" {
		t.Fatalf("unexpected group order: %q, %q", got[0].Group, got[1].Group)
	}
	lan := got[1]
	if lan.Leads != 20 || lan.ClosedOrders != 8 {
		t.Errorf("Lan totals = %d leads / %d closed, want 20/8", lan.Leads, lan.ClosedOrders)
	}
	if !almostEqual(lan.ClosingRate, 0.4) {
		t.Errorf("Lan closing rate = %v, want 0.4", lan.ClosingRate)
	}
}

func TestSummarizeZeroDenominators(t *testing.T) {
	rows := []models.Report{
		{Team: "MKT1", Staff: "Lan", Leads: 0, ClosedOrders: 0, AdSpend: 500_000, Revenue: 0, KPITarget: 0},
	}

	got := Summarize(rows, GroupByTeam)
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	s := got[0]
	if s.ClosingRate != 0 || s.CostPercent != 0 || s.KPIRatio != 0 {
		t.Errorf("zero denominators should yield zero ratios, got %v/%v/%v",
			s.ClosingRate, s.CostPercent, s.KPIRatio)
	}
	if math.IsNaN(s.ClosingRate) || math.IsInf(s.CostPercent, 0) {
		t.Error("ratios must never be NaN or Inf")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, GroupByTeam)
	if len(got) != 0 {
		t.Fatalf("expected no summaries, got %d", len(got))
	}
}
