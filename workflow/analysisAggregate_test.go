package workflow

import (
	"testing"

	"bitbucket.org/constructora/obras_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAggregateAnalysis(t *testing.T) {
	cases := []struct {
		name          string
		set           *ComponentSet
		wantLabor     string
		wantMaterials string
		wantEquipment string
		wantTotal     string
	}{
		{
			name:          "nil set",
			set:           nil,
			wantLabor:     "0",
			wantMaterials: "0",
			wantEquipment: "0",
			wantTotal:     "0",
		},
		{
			name:          "no components of any type",
			set:           &ComponentSet{},
			wantLabor:     "0",
			wantMaterials: "0",
			wantEquipment: "0",
			wantTotal:     "0",
		},
		{
			name: "all three kinds",
			set: &ComponentSet{
				Labors: []*models.AnalysisLabor{
					{Qty: dec("2"), Rate: dec("3500")},
					{Qty: dec("0.5"), Rate: dec("2800")},
				},
				Materials: []*models.AnalysisMaterial{
					{Qty: dec("3"), Rate: dec("9800")},
				},
				Equipments: []*models.AnalysisEquipment{
					{Qty: dec("1.25"), Rate: dec("4200")},
				},
			},
			wantLabor:     "8400",
			wantMaterials: "29400",
			wantEquipment: "5250",
			wantTotal:     "43050",
		},
		{
			name: "unresolved rate contributes zero",
			set: &ComponentSet{
				Materials: []*models.AnalysisMaterial{
					{Qty: dec("10")},
					{Qty: dec("2"), Rate: dec("150")},
				},
			},
			wantLabor:     "0",
			wantMaterials: "300",
			wantEquipment: "0",
			wantTotal:     "300",
		},
		{
			name: "fractional quantities keep full precision",
			set: &ComponentSet{
				Labors: []*models.AnalysisLabor{
					{Qty: dec("0.3333"), Rate: dec("3100.5")},
				},
			},
			wantLabor:     "1033.39665",
			wantMaterials: "0",
			wantEquipment: "0",
			wantTotal:     "1033.39665",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AggregateAnalysis(tc.set)
			if !got.UnitCostLabor.Equal(dec(tc.wantLabor)) {
				t.Fatalf("UnitCostLabor expected %s, got %s", tc.wantLabor, got.UnitCostLabor)
			}
			if !got.UnitCostMaterials.Equal(dec(tc.wantMaterials)) {
				t.Fatalf("UnitCostMaterials expected %s, got %s", tc.wantMaterials, got.UnitCostMaterials)
			}
			if !got.UnitCostEquipment.Equal(dec(tc.wantEquipment)) {
				t.Fatalf("UnitCostEquipment expected %s, got %s", tc.wantEquipment, got.UnitCostEquipment)
			}
			if !got.UnitCostTotal.Equal(dec(tc.wantTotal)) {
				t.Fatalf("UnitCostTotal expected %s, got %s", tc.wantTotal, got.UnitCostTotal)
			}
			sum := got.UnitCostLabor.Add(got.UnitCostMaterials).Add(got.UnitCostEquipment)
			if !got.UnitCostTotal.Equal(sum) {
				t.Fatalf("UnitCostTotal %s != sum of subtotals %s", got.UnitCostTotal, sum)
			}
		})
	}
}

func TestAggregateAnalysis_Deterministic(t *testing.T) {
	set := &ComponentSet{
		Labors: []*models.AnalysisLabor{
			{Qty: dec("1.5"), Rate: dec("3500")},
		},
		Equipments: []*models.AnalysisEquipment{
			{Qty: dec("2"), Rate: dec("4200")},
		},
	}
	first := AggregateAnalysis(set)
	for i := 0; i < 10; i++ {
		again := AggregateAnalysis(set)
		if !again.UnitCostTotal.Equal(first.UnitCostTotal) {
			t.Fatalf("run %d: expected %s, got %s", i, first.UnitCostTotal, again.UnitCostTotal)
		}
	}
}

func TestCalcItemCosts(t *testing.T) {
	analysis := AnalysisCosts{
		UnitCostLabor:     dec("10"),
		UnitCostMaterials: dec("20"),
		UnitCostEquipment: dec("5"),
		UnitCostTotal:     dec("35"),
	}

	cases := []struct {
		name      string
		qty       string
		wantTotal string
	}{
		{"positive quantity", "4", "140"},
		{"fractional quantity", "2.5", "87.5"},
		{"zero quantity", "0", "0"},
		{"negative quantity accepted numerically", "-1", "-35"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalcItemCosts(dec(tc.qty), analysis)
			if !got.TotalCost.Equal(dec(tc.wantTotal)) {
				t.Fatalf("TotalCost expected %s, got %s", tc.wantTotal, got.TotalCost)
			}
			if !got.UnitCostTotal.Equal(analysis.UnitCostTotal) {
				t.Fatalf("UnitCostTotal expected %s, got %s", analysis.UnitCostTotal, got.UnitCostTotal)
			}
		})
	}
}
