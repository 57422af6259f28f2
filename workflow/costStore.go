package workflow

import (
	"context"
	"errors"

	"bitbucket.org/constructora/obras_backend/models"
	"bitbucket.org/constructora/obras_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ComponentSet is one analysis' current component rows, grouped by kind.
type ComponentSet struct {
	Labors     []*models.AnalysisLabor
	Materials  []*models.AnalysisMaterial
	Equipments []*models.AnalysisEquipment
}

// ItemCosts is the per-item result persisted by WriteItemCosts: the three
// unit-cost subtotals, their sum, and the quantity-extended total.
type ItemCosts struct {
	UnitCostLabor     decimal.Decimal `json:"unit_cost_labor"`
	UnitCostMaterials decimal.Decimal `json:"unit_cost_materials"`
	UnitCostEquipment decimal.Decimal `json:"unit_cost_equipment"`
	UnitCostTotal     decimal.Decimal `json:"unit_cost_total"`
	TotalCost         decimal.Decimal `json:"total_cost"`
}

// ItemTotal is the cheap per-item projection the rollup sums.
type ItemTotal struct {
	ItemId    int             `json:"item_id"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// CostStore is the persistence collaborator the recalculation workflows run
// against. Kept narrow so unit tests can drive the engine with an in-memory
// fake.
type CostStore interface {
	GetItem(ctx context.Context, itemId int) (*models.BudgetItem, error)
	GetBudgetItems(ctx context.Context, budgetId int) ([]*models.BudgetItem, error)
	// GetAnalysisForItem returns (nil, nil) for items not yet priced.
	GetAnalysisForItem(ctx context.Context, itemId int) (*models.PriceAnalysis, error)
	ReadComponents(ctx context.Context, analysisId int) (*ComponentSet, error)
	WriteItemQuantity(ctx context.Context, itemId int, qty decimal.Decimal) error
	WriteItemCosts(ctx context.Context, itemId int, costs ItemCosts) error
	ReadItemTotals(ctx context.Context, budgetId int) ([]ItemTotal, error)
	ReadBudgetConfig(ctx context.Context, budgetId int) (*models.BudgetConfig, error)
	WriteBudgetTotals(ctx context.Context, budgetId int, totals models.BudgetTotals) error
}

type gormCostStore struct {
	db *gorm.DB
}

// NewCostStore wraps a gorm handle as the engine's store. Writes are issued
// sequentially on the handle as-is; callers that want a transaction pass one
// in, the engine itself stays best-effort.
func NewCostStore(db *gorm.DB) CostStore {
	return &gormCostStore{db: db}
}

func (s *gormCostStore) GetItem(ctx context.Context, itemId int) (*models.BudgetItem, error) {
	return models.GetBudgetItemById(s.db, ctx, itemId)
}

func (s *gormCostStore) GetBudgetItems(ctx context.Context, budgetId int) ([]*models.BudgetItem, error) {
	var items []*models.BudgetItem
	err := s.db.WithContext(ctx).Where("budget_id = ?", budgetId).Order("code asc").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *gormCostStore) GetAnalysisForItem(ctx context.Context, itemId int) (*models.PriceAnalysis, error) {
	return models.GetPriceAnalysisForItem(s.db, ctx, itemId)
}

func (s *gormCostStore) ReadComponents(ctx context.Context, analysisId int) (*ComponentSet, error) {
	var set ComponentSet
	if err := s.db.WithContext(ctx).Where("analysis_id = ?", analysisId).Find(&set.Labors).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("analysis_id = ?", analysisId).Find(&set.Materials).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("analysis_id = ?", analysisId).Find(&set.Equipments).Error; err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *gormCostStore) WriteItemQuantity(ctx context.Context, itemId int, qty decimal.Decimal) error {
	result := s.db.WithContext(ctx).Model(&models.BudgetItem{}).Where("id = ?", itemId).
		Update("qty", qty)
	return result.Error
}

func (s *gormCostStore) WriteItemCosts(ctx context.Context, itemId int, costs ItemCosts) error {
	result := s.db.WithContext(ctx).Model(&models.BudgetItem{}).Where("id = ?", itemId).
		Updates(map[string]interface{}{
			"unit_cost_total": costs.UnitCostTotal,
			"total_cost":      costs.TotalCost,
		})
	if result.Error != nil {
		return result.Error
	}

	// Keep the analysis' stored subtotals in line. Items without an analysis
	// are zero-cost; there is nothing to write for them.
	err := s.db.WithContext(ctx).Model(&models.PriceAnalysis{}).Where("budget_item_id = ?", itemId).
		Updates(map[string]interface{}{
			"unit_cost_labor":     costs.UnitCostLabor,
			"unit_cost_materials": costs.UnitCostMaterials,
			"unit_cost_equipment": costs.UnitCostEquipment,
			"unit_cost_total":     costs.UnitCostTotal,
		}).Error
	return err
}

func (s *gormCostStore) ReadItemTotals(ctx context.Context, budgetId int) ([]ItemTotal, error) {
	var rows []struct {
		ID        int
		TotalCost decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.BudgetItem{}).
		Select("id", "total_cost").
		Where("budget_id = ?", budgetId).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make([]ItemTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, ItemTotal{ItemId: row.ID, TotalCost: row.TotalCost})
	}
	return totals, nil
}

func (s *gormCostStore) ReadBudgetConfig(ctx context.Context, budgetId int) (*models.BudgetConfig, error) {
	var budget models.Budget
	err := s.db.WithContext(ctx).Select("general_expenses_pct", "benefit_pct", "tax_pct", "gross_income_pct").
		First(&budget, budgetId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorConfigurationMissing
		}
		return nil, err
	}
	return &models.BudgetConfig{
		GeneralExpensesPct: budget.GeneralExpensesPct,
		BenefitPct:         budget.BenefitPct,
		TaxPct:             budget.TaxPct,
		GrossIncomePct:     budget.GrossIncomePct,
	}, nil
}

func (s *gormCostStore) WriteBudgetTotals(ctx context.Context, budgetId int, totals models.BudgetTotals) error {
	result := s.db.WithContext(ctx).Model(&models.Budget{}).Where("id = ?", budgetId).
		Updates(map[string]interface{}{
			"subtotal_direct_costs":  totals.SubtotalDirectCosts,
			"subtotal_with_expenses": totals.SubtotalWithExpenses,
			"subtotal_with_benefit":  totals.SubtotalWithBenefit,
			"calculated_price":       totals.CalculatedPrice,
			"final_price":            totals.FinalPrice,
		})
	return result.Error
}
