package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetItemTemplate is a per-business template row new budgets copy their
// initial items from.
type BudgetItemTemplate struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	Code       string          `gorm:"size:255" json:"code"`
	Category   string          `gorm:"size:255;not null" json:"category"`
	Unit       string          `gorm:"size:255" json:"unit"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetTemplateItems lists the business' template rows in display order.
func GetTemplateItems(tx *gorm.DB, ctx context.Context, businessId string) ([]*BudgetItemTemplate, error) {
	var templates []*BudgetItemTemplate
	err := tx.WithContext(ctx).Where("business_id = ?", businessId).Order("code asc").Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}
