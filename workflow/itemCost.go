package workflow

import (
	"context"

	"github.com/shopspring/decimal"
)

// CalcItemCosts extends an item's aggregated unit cost by its quantity.
// Zero and negative quantities are accepted numerically; rejecting them is
// the API boundary's concern, not this layer's.
func CalcItemCosts(qty decimal.Decimal, analysis AnalysisCosts) ItemCosts {
	return ItemCosts{
		UnitCostLabor:     analysis.UnitCostLabor,
		UnitCostMaterials: analysis.UnitCostMaterials,
		UnitCostEquipment: analysis.UnitCostEquipment,
		UnitCostTotal:     analysis.UnitCostTotal,
		TotalCost:         qty.Mul(analysis.UnitCostTotal),
	}
}

// readItemCosts aggregates one item's analysis from the store and extends it
// by the given quantity. Items without an analysis are zero-cost, not an
// error.
func readItemCosts(ctx context.Context, store CostStore, itemId int, qty decimal.Decimal) (ItemCosts, error) {

	analysis, err := store.GetAnalysisForItem(ctx, itemId)
	if err != nil {
		return ItemCosts{}, err
	}
	if analysis == nil {
		return CalcItemCosts(qty, AnalysisCosts{}), nil
	}

	set, err := store.ReadComponents(ctx, analysis.ID)
	if err != nil {
		return ItemCosts{}, err
	}
	return CalcItemCosts(qty, AggregateAnalysis(set)), nil
}
