package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog rows component edits snapshot their rates from. The catalog price
// is the live value; component rows keep the copy taken at edit time.

type LaborConcept struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string          `gorm:"size:255;not null" json:"name" binding:"required"`
	HourlyWage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"hourly_wage"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type Material struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Unit       string          `gorm:"size:255" json:"unit"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type Equipment struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string          `gorm:"size:255;not null" json:"name" binding:"required"`
	HourlyCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"hourly_cost"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
