package models

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetDefaultTemplateItems returns the chapters a fresh business starts with.
func GetDefaultTemplateItems() []BudgetItemTemplate {
	return []BudgetItemTemplate{
		{Code: "1", Category: "Trabajos preliminares", Unit: "gl", Qty: decimal.NewFromInt(1)},
		{Code: "2", Category: "Movimiento de suelos", Unit: "m3"},
		{Code: "3", Category: "Estructura", Unit: "m2"},
		{Code: "4", Category: "Mamposteria", Unit: "m2"},
		{Code: "5", Category: "Instalaciones", Unit: "gl", Qty: decimal.NewFromInt(1)},
		{Code: "6", Category: "Terminaciones", Unit: "m2"},
	}
}

func CreateDefaultTemplateItems(tx *gorm.DB, ctx context.Context, businessId string) ([]BudgetItemTemplate, error) {

	templates := GetDefaultTemplateItems()
	for i := range templates {
		templates[i].BusinessId = businessId
	}

	if err := tx.WithContext(ctx).Create(&templates).Error; err != nil {
		return nil, err
	}

	return templates, nil
}

// CreateDefaultCatalog seeds a starter rate catalog for a new business.
func CreateDefaultCatalog(tx *gorm.DB, ctx context.Context, businessId string) error {

	concepts := []LaborConcept{
		{BusinessId: businessId, Name: "Oficial", HourlyWage: decimal.NewFromFloat(3500)},
		{BusinessId: businessId, Name: "Medio oficial", HourlyWage: decimal.NewFromFloat(3100)},
		{BusinessId: businessId, Name: "Ayudante", HourlyWage: decimal.NewFromFloat(2800)},
	}
	if err := tx.WithContext(ctx).Create(&concepts).Error; err != nil {
		return err
	}

	materials := []Material{
		{BusinessId: businessId, Name: "Cemento portland", Unit: "bolsa", UnitPrice: decimal.NewFromFloat(9800)},
		{BusinessId: businessId, Name: "Arena gruesa", Unit: "m3", UnitPrice: decimal.NewFromFloat(32000)},
		{BusinessId: businessId, Name: "Ladrillo comun", Unit: "u", UnitPrice: decimal.NewFromFloat(280)},
		{BusinessId: businessId, Name: "Hierro aletado 8mm", Unit: "kg", UnitPrice: decimal.NewFromFloat(1900)},
	}
	if err := tx.WithContext(ctx).Create(&materials).Error; err != nil {
		return err
	}

	equipments := []Equipment{
		{BusinessId: businessId, Name: "Hormigonera 130l", HourlyCost: decimal.NewFromFloat(4200)},
		{BusinessId: businessId, Name: "Vibrador de inmersion", HourlyCost: decimal.NewFromFloat(3600)},
	}
	return tx.WithContext(ctx).Create(&equipments).Error
}
