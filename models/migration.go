package models

import (
	"log"

	"bitbucket.org/constructora/obras_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Budget{}, &BudgetItem{}, &BudgetItemTemplate{},
		&PriceAnalysis{}, &AnalysisLabor{}, &AnalysisMaterial{}, &AnalysisEquipment{},
		&LaborConcept{}, &Material{}, &Equipment{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
