package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/constructora/obras_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetItem is one priced row of a budget. Code is hierarchical
// ("1.2") and used only for display ordering. UnitCostTotal is copied from
// the item's PriceAnalysis by the recalculation workflow;
// TotalCost = Qty × UnitCostTotal after every pass.
type BudgetItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BudgetId      int             `gorm:"index;not null" json:"budget_id"`
	Code          string          `gorm:"size:255" json:"code"`
	Category      string          `gorm:"size:255" json:"category"`
	Unit          string          `gorm:"size:255" json:"unit"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitCostTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_total"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	Analysis      *PriceAnalysis  `gorm:"foreignKey:BudgetItemId" json:"analysis,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBudgetItem struct {
	BudgetId int             `json:"budget_id"`
	Code     string          `json:"code"`
	Category string          `json:"category" binding:"required"`
	Unit     string          `json:"unit"`
	Qty      decimal.Decimal `json:"qty"`
}

// CreateBudgetItem adds an item to a budget. This is a structural change:
// the caller must run the full recalculation path afterwards.
func CreateBudgetItem(tx *gorm.DB, ctx context.Context, input NewBudgetItem) (*BudgetItem, error) {

	if err := utils.ValidateStruct(&input); err != nil {
		return nil, err
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&Budget{}).Where("id = ?", input.BudgetId).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	item := BudgetItem{
		BudgetId: input.BudgetId,
		Code:     input.Code,
		Category: input.Category,
		Unit:     input.Unit,
		Qty:      input.Qty,
	}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetBudgetItemById fetches one item.
// (may return RecordNotFound)
func GetBudgetItemById(tx *gorm.DB, ctx context.Context, id int) (*BudgetItem, error) {
	var item BudgetItem
	err := tx.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &item, nil
}

// DeleteBudgetItem removes an item with its analysis and components.
// Structural change: the caller must run the full recalculation path.
func DeleteBudgetItem(tx *gorm.DB, ctx context.Context, id int) error {

	item, err := GetBudgetItemById(tx, ctx, id)
	if err != nil {
		return err
	}

	var analysis PriceAnalysis
	err = tx.WithContext(ctx).Where("budget_item_id = ?", item.ID).First(&analysis).Error
	if err == nil {
		if err := tx.WithContext(ctx).Where("analysis_id = ?", analysis.ID).Delete(&AnalysisLabor{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("analysis_id = ?", analysis.ID).Delete(&AnalysisMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("analysis_id = ?", analysis.ID).Delete(&AnalysisEquipment{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(&analysis).Error; err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.WithContext(ctx).Delete(item).Error
}
