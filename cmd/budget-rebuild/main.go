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
	"github.com/sirupsen/logrus"
)

// Full-path recalculation backfill: re-derives every item cost and every
// budget total from the current component rows, for one budget or all of a
// business' budgets.
func main() {
	budgetID := flag.Int("budget-id", 0, "Optional: recalculate one budget")
	businessID := flag.String("business-id", "", "Optional: recalculate every budget of a business")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing budgets and continue rebuilding others")
	flag.Parse()

	if *budgetID <= 0 && strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "one of --budget-id or --business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	logger := logrus.New()
	ctx := context.Background()
	store := workflow.NewCostStore(db)

	var budgetIds []int
	if *budgetID > 0 {
		budgetIds = append(budgetIds, *budgetID)
	} else {
		var budgets []*models.Budget
		err := db.WithContext(ctx).Select("id").
			Where("business_id = ?", strings.TrimSpace(*businessID)).
			Find(&budgets).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "list budgets: %v\n", err)
			os.Exit(1)
		}
		for _, b := range budgets {
			budgetIds = append(budgetIds, b.ID)
		}
	}

	failed := 0
	for _, id := range budgetIds {
		totals, err := workflow.RecalcBudget(ctx, store, logger, id)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "budget %d: %v\n", id, err)
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		fmt.Printf("budget %d: direct=%s final=%s\n", id, totals.SubtotalDirectCosts.String(), totals.FinalPrice.String())
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d budgets failed\n", failed, len(budgetIds))
		os.Exit(1)
	}
	fmt.Printf("recalculated %d budgets\n", len(budgetIds))
}
