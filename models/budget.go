package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/constructora/obras_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget owns an ordered collection of BudgetItems and carries the three
// percentage markup layers plus the derived monetary fields. The derived
// fields are only ever written by the recalculation workflow; FinalPrice is
// always written equal to CalculatedPrice (there is no override path).
type Budget struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	BusinessId           string          `gorm:"index;not null" json:"business_id" binding:"required"`
	ProjectName          string          `gorm:"size:255;not null" json:"project_name" binding:"required"`
	BudgetNumber         string          `gorm:"size:255;not null" json:"budget_number"`
	GeneralExpensesPct   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"general_expenses_pct"`
	BenefitPct           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"benefit_pct"`
	TaxPct               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_pct"`
	GrossIncomePct       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_income_pct"`
	SubtotalDirectCosts  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_direct_costs"`
	SubtotalWithExpenses decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_with_expenses"`
	SubtotalWithBenefit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_with_benefit"`
	CalculatedPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"calculated_price"`
	FinalPrice           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_price"`
	Items                []*BudgetItem   `gorm:"foreignKey:BudgetId" json:"items"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BudgetConfig is the percentage configuration read by the rollup. It is
// supplied once at budget creation (with defaults) and never re-derived
// inside the calculation layers.
type BudgetConfig struct {
	GeneralExpensesPct decimal.Decimal `json:"general_expenses_pct"`
	BenefitPct         decimal.Decimal `json:"benefit_pct"`
	TaxPct             decimal.Decimal `json:"tax_pct"`
	GrossIncomePct     decimal.Decimal `json:"gross_income_pct"`
}

// DefaultBudgetConfig returns the markup percentages a new budget starts
// with when the caller leaves them unset.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		GeneralExpensesPct: decimal.NewFromFloat(17),
		BenefitPct:         decimal.NewFromFloat(40),
		TaxPct:             decimal.NewFromFloat(10.5),
		GrossIncomePct:     decimal.Zero,
	}
}

// BudgetTotals are the five derived monetary fields persisted by the rollup.
type BudgetTotals struct {
	SubtotalDirectCosts  decimal.Decimal `json:"subtotal_direct_costs"`
	SubtotalWithExpenses decimal.Decimal `json:"subtotal_with_expenses"`
	SubtotalWithBenefit  decimal.Decimal `json:"subtotal_with_benefit"`
	CalculatedPrice      decimal.Decimal `json:"calculated_price"`
	FinalPrice           decimal.Decimal `json:"final_price"`
}

type NewBudget struct {
	BusinessId         string           `json:"business_id" binding:"required"`
	ProjectName        string           `json:"project_name" binding:"required"`
	GeneralExpensesPct *decimal.Decimal `json:"general_expenses_pct"`
	BenefitPct         *decimal.Decimal `json:"benefit_pct"`
	TaxPct             *decimal.Decimal `json:"tax_pct"`
	GrossIncomePct     *decimal.Decimal `json:"gross_income_pct"`
}

// Config resolves the input's percentages against the defaults.
func (input *NewBudget) Config() BudgetConfig {
	cfg := DefaultBudgetConfig()
	if input.GeneralExpensesPct != nil {
		cfg.GeneralExpensesPct = *input.GeneralExpensesPct
	}
	if input.BenefitPct != nil {
		cfg.BenefitPct = *input.BenefitPct
	}
	if input.TaxPct != nil {
		cfg.TaxPct = *input.TaxPct
	}
	if input.GrossIncomePct != nil {
		cfg.GrossIncomePct = *input.GrossIncomePct
	}
	return cfg
}

// CreateBudget creates a budget with zeroed totals and the business'
// template-derived items.
func CreateBudget(tx *gorm.DB, ctx context.Context, input NewBudget) (*Budget, error) {

	if err := utils.ValidateStruct(&input); err != nil {
		return nil, err
	}
	cfg := input.Config()

	budget := Budget{
		BusinessId:         input.BusinessId,
		ProjectName:        input.ProjectName,
		BudgetNumber:       "PRE-" + strings.ToUpper(uuid.NewString()[:8]),
		GeneralExpensesPct: cfg.GeneralExpensesPct,
		BenefitPct:         cfg.BenefitPct,
		TaxPct:             cfg.TaxPct,
		GrossIncomePct:     cfg.GrossIncomePct,
	}
	if err := tx.WithContext(ctx).Create(&budget).Error; err != nil {
		return nil, err
	}

	templates, err := GetTemplateItems(tx, ctx, input.BusinessId)
	if err != nil {
		return nil, err
	}
	for _, tpl := range templates {
		item := BudgetItem{
			BudgetId: budget.ID,
			Code:     tpl.Code,
			Category: tpl.Category,
			Unit:     tpl.Unit,
			Qty:      tpl.Qty,
		}
		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
		budget.Items = append(budget.Items, &item)
	}

	return &budget, nil
}

// GetBudgetById fetches a budget with its items.
// (may return RecordNotFound)
func GetBudgetById(tx *gorm.DB, ctx context.Context, id int) (*Budget, error) {
	var budget Budget
	err := tx.WithContext(ctx).Preload("Items").First(&budget, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &budget, nil
}
