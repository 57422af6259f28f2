package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/constructora/obras_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The three component kinds share one shape: Qty × Rate = LineCost, with
// LineCost always recomputed, never edited. Rates are snapshotted from the
// catalog at edit time (a value copy, not a live link), so later catalog
// price changes do not rewrite already-priced analyses.

type AnalysisLabor struct {
	ID             int             `gorm:"primary_key" json:"id"`
	AnalysisId     int             `gorm:"index;not null" json:"analysis_id"`
	LaborConceptId int             `gorm:"index" json:"labor_concept_id"`
	Name           string          `gorm:"size:255" json:"name"`
	Qty            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	LineCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_cost"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type AnalysisMaterial struct {
	ID         int             `gorm:"primary_key" json:"id"`
	AnalysisId int             `gorm:"index;not null" json:"analysis_id"`
	MaterialId int             `gorm:"index" json:"material_id"`
	Name       string          `gorm:"size:255" json:"name"`
	Unit       string          `gorm:"size:255" json:"unit"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	LineCost   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_cost"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type AnalysisEquipment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	AnalysisId  int             `gorm:"index;not null" json:"analysis_id"`
	EquipmentId int             `gorm:"index" json:"equipment_id"`
	Name        string          `gorm:"size:255" json:"name"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	LineCost    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_cost"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Tagged per-kind inputs: each carries only the fields meaningful to its
// kind, validated before anything reaches the aggregator.

type NewLaborComponent struct {
	LaborConceptId int             `json:"labor_concept_id" binding:"required"`
	Hours          decimal.Decimal `json:"hours"`
}

type NewMaterialComponent struct {
	MaterialId int             `json:"material_id" binding:"required"`
	Qty        decimal.Decimal `json:"qty"`
}

type NewEquipmentComponent struct {
	EquipmentId int             `json:"equipment_id" binding:"required"`
	Hours       decimal.Decimal `json:"hours"`
}

// CreateLaborComponent attaches labor hours to the item's analysis,
// snapshotting the concept's current hourly wage.
func CreateLaborComponent(tx *gorm.DB, ctx context.Context, itemId int, input NewLaborComponent) (*AnalysisLabor, error) {

	if err := utils.ValidateStruct(&input); err != nil {
		return nil, err
	}

	analysis, err := GetOrCreatePriceAnalysis(tx, ctx, itemId)
	if err != nil {
		return nil, err
	}

	var concept LaborConcept
	if err := tx.WithContext(ctx).First(&concept, input.LaborConceptId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	labor := AnalysisLabor{
		AnalysisId:     analysis.ID,
		LaborConceptId: concept.ID,
		Name:           concept.Name,
		Qty:            input.Hours,
		Rate:           concept.HourlyWage,
		LineCost:       input.Hours.Mul(concept.HourlyWage),
	}
	if err := tx.WithContext(ctx).Create(&labor).Error; err != nil {
		return nil, err
	}
	return &labor, nil
}

// CreateMaterialComponent attaches a material quantity to the item's
// analysis, snapshotting the material's current unit price and unit.
func CreateMaterialComponent(tx *gorm.DB, ctx context.Context, itemId int, input NewMaterialComponent) (*AnalysisMaterial, error) {

	if err := utils.ValidateStruct(&input); err != nil {
		return nil, err
	}

	analysis, err := GetOrCreatePriceAnalysis(tx, ctx, itemId)
	if err != nil {
		return nil, err
	}

	var material Material
	if err := tx.WithContext(ctx).First(&material, input.MaterialId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	row := AnalysisMaterial{
		AnalysisId: analysis.ID,
		MaterialId: material.ID,
		Name:       material.Name,
		Unit:       material.Unit,
		Qty:        input.Qty,
		Rate:       material.UnitPrice,
		LineCost:   input.Qty.Mul(material.UnitPrice),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateEquipmentComponent attaches equipment hours to the item's analysis,
// snapshotting the equipment's current hourly cost.
func CreateEquipmentComponent(tx *gorm.DB, ctx context.Context, itemId int, input NewEquipmentComponent) (*AnalysisEquipment, error) {

	if err := utils.ValidateStruct(&input); err != nil {
		return nil, err
	}

	analysis, err := GetOrCreatePriceAnalysis(tx, ctx, itemId)
	if err != nil {
		return nil, err
	}

	var equipment Equipment
	if err := tx.WithContext(ctx).First(&equipment, input.EquipmentId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	row := AnalysisEquipment{
		AnalysisId:  analysis.ID,
		EquipmentId: equipment.ID,
		Name:        equipment.Name,
		Qty:         input.Hours,
		Rate:        equipment.HourlyCost,
		LineCost:    input.Hours.Mul(equipment.HourlyCost),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateLaborComponentQty rewrites a labor row's hours; the stored snapshot
// rate stays untouched and the line cost is rederived from it.
func UpdateLaborComponentQty(tx *gorm.DB, ctx context.Context, id int, hours decimal.Decimal) (*AnalysisLabor, error) {
	var labor AnalysisLabor
	if err := tx.WithContext(ctx).First(&labor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	labor.Qty = hours
	labor.LineCost = hours.Mul(labor.Rate)
	if err := tx.WithContext(ctx).Model(&labor).Updates(map[string]interface{}{"qty": labor.Qty, "line_cost": labor.LineCost}).Error; err != nil {
		return nil, err
	}
	return &labor, nil
}

// UpdateMaterialComponentQty rewrites a material row's quantity against its
// snapshot rate.
func UpdateMaterialComponentQty(tx *gorm.DB, ctx context.Context, id int, qty decimal.Decimal) (*AnalysisMaterial, error) {
	var row AnalysisMaterial
	if err := tx.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	row.Qty = qty
	row.LineCost = qty.Mul(row.Rate)
	if err := tx.WithContext(ctx).Model(&row).Updates(map[string]interface{}{"qty": row.Qty, "line_cost": row.LineCost}).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateEquipmentComponentQty rewrites an equipment row's hours against its
// snapshot rate.
func UpdateEquipmentComponentQty(tx *gorm.DB, ctx context.Context, id int, hours decimal.Decimal) (*AnalysisEquipment, error) {
	var row AnalysisEquipment
	if err := tx.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	row.Qty = hours
	row.LineCost = hours.Mul(row.Rate)
	if err := tx.WithContext(ctx).Model(&row).Updates(map[string]interface{}{"qty": row.Qty, "line_cost": row.LineCost}).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteLaborComponent removes one labor row and reports the owning item so
// the caller can retrigger the targeted recalculation.
func DeleteLaborComponent(tx *gorm.DB, ctx context.Context, id int) (int, error) {
	var labor AnalysisLabor
	if err := tx.WithContext(ctx).First(&labor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, err
	}
	itemId, err := BudgetItemIdForAnalysis(tx, ctx, labor.AnalysisId)
	if err != nil {
		return 0, err
	}
	if err := tx.WithContext(ctx).Delete(&labor).Error; err != nil {
		return 0, err
	}
	return itemId, nil
}

func DeleteMaterialComponent(tx *gorm.DB, ctx context.Context, id int) (int, error) {
	var row AnalysisMaterial
	if err := tx.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, err
	}
	itemId, err := BudgetItemIdForAnalysis(tx, ctx, row.AnalysisId)
	if err != nil {
		return 0, err
	}
	if err := tx.WithContext(ctx).Delete(&row).Error; err != nil {
		return 0, err
	}
	return itemId, nil
}

func DeleteEquipmentComponent(tx *gorm.DB, ctx context.Context, id int) (int, error) {
	var row AnalysisEquipment
	if err := tx.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, err
	}
	itemId, err := BudgetItemIdForAnalysis(tx, ctx, row.AnalysisId)
	if err != nil {
		return 0, err
	}
	if err := tx.WithContext(ctx).Delete(&row).Error; err != nil {
		return 0, err
	}
	return itemId, nil
}

// BudgetItemIdForAnalysis reports the item owning an analysis row, so a
// component edit can retrigger the targeted recalculation.
func BudgetItemIdForAnalysis(tx *gorm.DB, ctx context.Context, analysisId int) (int, error) {
	var analysis PriceAnalysis
	if err := tx.WithContext(ctx).First(&analysis, analysisId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, err
	}
	return analysis.BudgetItemId, nil
}
