package workflow

import (
	"github.com/shopspring/decimal"
)

// AnalysisCosts is the aggregation result for one price analysis: three
// unit-cost subtotals and their sum.
type AnalysisCosts struct {
	UnitCostLabor     decimal.Decimal
	UnitCostMaterials decimal.Decimal
	UnitCostEquipment decimal.Decimal
	UnitCostTotal     decimal.Decimal
}

// AggregateAnalysis sums an analysis' components into the three unit-cost
// subtotals and their total. Pure function of the component set: no reads,
// no writes, safe to call repeatedly. A nil or empty set is a valid analysis
// that has not been priced yet and aggregates to all zeros. A component with
// an unresolved rate contributes zero; completeness is surfaced elsewhere.
func AggregateAnalysis(set *ComponentSet) AnalysisCosts {

	var costs AnalysisCosts
	if set == nil {
		return costs
	}

	for _, labor := range set.Labors {
		costs.UnitCostLabor = costs.UnitCostLabor.Add(labor.Qty.Mul(labor.Rate))
	}
	for _, material := range set.Materials {
		costs.UnitCostMaterials = costs.UnitCostMaterials.Add(material.Qty.Mul(material.Rate))
	}
	for _, equipment := range set.Equipments {
		costs.UnitCostEquipment = costs.UnitCostEquipment.Add(equipment.Qty.Mul(equipment.Rate))
	}

	costs.UnitCostTotal = costs.UnitCostLabor.Add(costs.UnitCostMaterials).Add(costs.UnitCostEquipment)
	return costs
}
