package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceAnalysis is the cost breakdown backing one budget item's unit cost.
// The three subtotals and their sum are derived from the component rows by
// the aggregation workflow; they are never edited directly.
type PriceAnalysis struct {
	ID                int                  `gorm:"primary_key" json:"id"`
	BudgetItemId      int                  `gorm:"uniqueIndex;not null" json:"budget_item_id"`
	UnitCostLabor     decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_cost_labor"`
	UnitCostMaterials decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_cost_materials"`
	UnitCostEquipment decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_cost_equipment"`
	UnitCostTotal     decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_cost_total"`
	Labors            []*AnalysisLabor     `gorm:"foreignKey:AnalysisId" json:"labors"`
	Materials         []*AnalysisMaterial  `gorm:"foreignKey:AnalysisId" json:"materials"`
	Equipments        []*AnalysisEquipment `gorm:"foreignKey:AnalysisId" json:"equipments"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreatePriceAnalysis fetches the item's analysis, creating an empty one
// on first access. Every component edit goes through this upsert so the rest
// of the engine never has to handle a missing analysis row for edited items.
func GetOrCreatePriceAnalysis(tx *gorm.DB, ctx context.Context, itemId int) (*PriceAnalysis, error) {

	var analysis PriceAnalysis
	err := tx.WithContext(ctx).Where("budget_item_id = ?", itemId).First(&analysis).Error
	if err == nil {
		return &analysis, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	analysis = PriceAnalysis{BudgetItemId: itemId}
	if err := tx.WithContext(ctx).Create(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GetPriceAnalysisForItem fetches the item's analysis without creating one.
// Returns (nil, nil) when the item has not been priced yet.
func GetPriceAnalysisForItem(tx *gorm.DB, ctx context.Context, itemId int) (*PriceAnalysis, error) {

	var analysis PriceAnalysis
	err := tx.WithContext(ctx).Where("budget_item_id = ?", itemId).First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}
