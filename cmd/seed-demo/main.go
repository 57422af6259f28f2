package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/constructora/obras_backend/config"
	"bitbucket.org/constructora/obras_backend/models"
	"bitbucket.org/constructora/obras_backend/workflow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Seeds a demo business: rate catalog, template items and one budget with
// default percentages, recalculated once so the stored totals are trustworthy.
func main() {
	businessID := flag.String("business-id", "", "Optional: business id (uuid); generated when empty")
	projectName := flag.String("project", "Obra demo", "Project name for the seeded budget")
	flag.Parse()

	bizId := strings.TrimSpace(*businessID)
	if bizId == "" {
		bizId = uuid.NewString()
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	models.MigrateTable()

	logger := logrus.New()
	ctx := context.Background()

	if err := models.CreateDefaultCatalog(db, ctx, bizId); err != nil {
		fmt.Fprintf(os.Stderr, "seed catalog: %v\n", err)
		os.Exit(1)
	}
	if _, err := models.CreateDefaultTemplateItems(db, ctx, bizId); err != nil {
		fmt.Fprintf(os.Stderr, "seed template items: %v\n", err)
		os.Exit(1)
	}

	budget, err := models.CreateBudget(db, ctx, models.NewBudget{
		BusinessId:  bizId,
		ProjectName: *projectName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create budget: %v\n", err)
		os.Exit(1)
	}

	store := workflow.NewCostStore(db)
	totals, err := workflow.RecalcBudget(ctx, store, logger, budget.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recalculate budget: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded business %s\n", bizId)
	fmt.Printf("budget %d (%s) with %d items, final price %s\n",
		budget.ID, budget.BudgetNumber, len(budget.Items), totals.FinalPrice.String())
}
