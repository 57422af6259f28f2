package workflow

import (
	"context"

	"bitbucket.org/constructora/obras_backend/config"
	"bitbucket.org/constructora/obras_backend/models"
	"bitbucket.org/constructora/obras_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// The orchestrator is the single entry point every budget mutation goes
// through before any total is trusted. Two paths: RecalcItem after a single
// item's components or quantity changed, RecalcBudget after structural
// changes (items added or removed, quantities bulk-edited). Writes are
// best-effort sequential: a failure partway leaves earlier writes persisted
// and is reported with the failing item so the caller can retry just that
// item through the targeted path.

// RecalcItem recomputes one item's costs and the owning budget's totals.
// Sibling items' stored costs are never touched.
func RecalcItem(ctx context.Context, store CostStore, logger *logrus.Logger, itemId int) (*models.BudgetTotals, error) {

	item, err := store.GetItem(ctx, itemId)
	if err != nil {
		config.LogError(logger, "recalcWorkflow.go", "RecalcItem", "GetItem", itemId, err)
		return nil, err
	}

	costs, err := readItemCosts(ctx, store, item.ID, item.Qty)
	if err != nil {
		config.LogError(logger, "recalcWorkflow.go", "RecalcItem", "ReadItemCosts", item.ID, err)
		return nil, err
	}

	if err := store.WriteItemCosts(ctx, item.ID, costs); err != nil {
		config.LogError(logger, "recalcWorkflow.go", "RecalcItem", "WriteItemCosts", item.ID, err)
		return nil, &utils.PartialWriteError{ItemId: item.ID, Err: err}
	}

	return rollupAndPersist(ctx, store, logger, item.BudgetId)
}

// RecalcBudget recomputes every item of the budget independently, then the
// budget totals. An empty budget rolls up to all-zero totals.
func RecalcBudget(ctx context.Context, store CostStore, logger *logrus.Logger, budgetId int) (*models.BudgetTotals, error) {

	items, err := store.GetBudgetItems(ctx, budgetId)
	if err != nil {
		config.LogError(logger, "recalcWorkflow.go", "RecalcBudget", "GetBudgetItems", budgetId, err)
		return nil, err
	}

	for _, item := range items {
		costs, err := readItemCosts(ctx, store, item.ID, item.Qty)
		if err != nil {
			config.LogError(logger, "recalcWorkflow.go", "RecalcBudget", "ReadItemCosts", item.ID, err)
			return nil, err
		}
		if err := store.WriteItemCosts(ctx, item.ID, costs); err != nil {
			config.LogError(logger, "recalcWorkflow.go", "RecalcBudget", "WriteItemCosts", item.ID, err)
			return nil, &utils.PartialWriteError{ItemId: item.ID, Err: err}
		}
	}

	return rollupAndPersist(ctx, store, logger, budgetId)
}

// QuantityEdit is one row of a bulk quantity update.
type QuantityEdit struct {
	ItemId int             `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty"`
}

// ApplyQuantityEdits applies a batch of quantity changes: all quantity
// writes first, then one independent cost pass per changed item, then a
// single rollup reflecting every item's latest cost.
func ApplyQuantityEdits(ctx context.Context, store CostStore, logger *logrus.Logger, budgetId int, edits []QuantityEdit) (*models.BudgetTotals, error) {

	for _, edit := range edits {
		item, err := store.GetItem(ctx, edit.ItemId)
		if err != nil {
			config.LogError(logger, "recalcWorkflow.go", "ApplyQuantityEdits", "GetItem", edit.ItemId, err)
			return nil, err
		}
		if item.BudgetId != budgetId {
			config.LogError(logger, "recalcWorkflow.go", "ApplyQuantityEdits", "BudgetMismatch", edit.ItemId, utils.ErrorRecordNotFound)
			return nil, utils.ErrorRecordNotFound
		}
		if err := store.WriteItemQuantity(ctx, edit.ItemId, edit.Qty); err != nil {
			config.LogError(logger, "recalcWorkflow.go", "ApplyQuantityEdits", "WriteItemQuantity", edit.ItemId, err)
			return nil, &utils.PartialWriteError{ItemId: edit.ItemId, Err: err}
		}
	}

	for _, edit := range edits {
		costs, err := readItemCosts(ctx, store, edit.ItemId, edit.Qty)
		if err != nil {
			config.LogError(logger, "recalcWorkflow.go", "ApplyQuantityEdits", "ReadItemCosts", edit.ItemId, err)
			return nil, err
		}
		if err := store.WriteItemCosts(ctx, edit.ItemId, costs); err != nil {
			config.LogError(logger, "recalcWorkflow.go", "ApplyQuantityEdits", "WriteItemCosts", edit.ItemId, err)
			return nil, &utils.PartialWriteError{ItemId: edit.ItemId, Err: err}
		}
	}

	return rollupAndPersist(ctx, store, logger, budgetId)
}

// rollupAndPersist reads the budget's percentage configuration and the
// freshly persisted item totals, rolls them up, and writes the budget
// totals. A missing configuration fails the whole recalculation; item writes
// that already happened stay persisted (at-least-once, not exactly-once).
func rollupAndPersist(ctx context.Context, store CostStore, logger *logrus.Logger, budgetId int) (*models.BudgetTotals, error) {

	cfg, err := store.ReadBudgetConfig(ctx, budgetId)
	if err != nil {
		config.LogError(logger, "recalcWorkflow.go", "rollupAndPersist", "ReadBudgetConfig", budgetId, err)
		return nil, err
	}

	itemTotals, err := store.ReadItemTotals(ctx, budgetId)
	if err != nil {
		config.LogError(logger, "recalcWorkflow.go", "rollupAndPersist", "ReadItemTotals", budgetId, err)
		return nil, err
	}

	totals := RollupBudget(*cfg, itemTotals)

	if err := store.WriteBudgetTotals(ctx, budgetId, totals); err != nil {
		config.LogError(logger, "recalcWorkflow.go", "rollupAndPersist", "WriteBudgetTotals", budgetId, err)
		return nil, err
	}
	return &totals, nil
}
