package workflow

import (
	"bitbucket.org/constructora/obras_backend/models"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// RollupBudget sums the item totals into the direct-cost subtotal and applies
// the markup layers in their fixed order: general expenses, then benefit on
// the expense subtotal, then tax and gross income both on the benefit
// subtotal. Each percentage applies to the running subtotal, never to the
// original base; the compounding order is a business rule and must not be
// reordered. FinalPrice is always written equal to CalculatedPrice.
func RollupBudget(cfg models.BudgetConfig, itemTotals []ItemTotal) models.BudgetTotals {

	var direct decimal.Decimal
	for _, item := range itemTotals {
		direct = direct.Add(item.TotalCost)
	}

	withExpenses := direct.Mul(oneHundred.Add(cfg.GeneralExpensesPct)).Div(oneHundred)
	withBenefit := withExpenses.Mul(oneHundred.Add(cfg.BenefitPct)).Div(oneHundred)

	tax := withBenefit.Mul(cfg.TaxPct).Div(oneHundred)
	grossIncome := withBenefit.Mul(cfg.GrossIncomePct).Div(oneHundred)

	calculated := withBenefit.Add(tax).Add(grossIncome)

	return models.BudgetTotals{
		SubtotalDirectCosts:  direct,
		SubtotalWithExpenses: withExpenses,
		SubtotalWithBenefit:  withBenefit,
		CalculatedPrice:      calculated,
		FinalPrice:           calculated,
	}
}
