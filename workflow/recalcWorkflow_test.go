package workflow

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"bitbucket.org/constructora/obras_backend/models"
	"bitbucket.org/constructora/obras_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. The fake store records every
// write so the tests can check isolation and partial-failure semantics, not
// just the returned totals.

type fakeCostStore struct {
	items         map[int]*models.BudgetItem
	analyses      map[int]*models.PriceAnalysis // keyed by budget item id
	components    map[int]*ComponentSet         // keyed by analysis id
	configs       map[int]*models.BudgetConfig  // keyed by budget id
	budgetTotals  map[int]*models.BudgetTotals  // keyed by budget id
	costWrites    []int
	failItemWrite map[int]error
}

func newFakeCostStore() *fakeCostStore {
	return &fakeCostStore{
		items:         map[int]*models.BudgetItem{},
		analyses:      map[int]*models.PriceAnalysis{},
		components:    map[int]*ComponentSet{},
		configs:       map[int]*models.BudgetConfig{},
		budgetTotals:  map[int]*models.BudgetTotals{},
		failItemWrite: map[int]error{},
	}
}

func (s *fakeCostStore) GetItem(_ context.Context, itemId int) (*models.BudgetItem, error) {
	item, ok := s.items[itemId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return item, nil
}

func (s *fakeCostStore) GetBudgetItems(_ context.Context, budgetId int) ([]*models.BudgetItem, error) {
	var items []*models.BudgetItem
	for _, item := range s.items {
		if item.BudgetId == budgetId {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *fakeCostStore) GetAnalysisForItem(_ context.Context, itemId int) (*models.PriceAnalysis, error) {
	return s.analyses[itemId], nil
}

func (s *fakeCostStore) ReadComponents(_ context.Context, analysisId int) (*ComponentSet, error) {
	return s.components[analysisId], nil
}

func (s *fakeCostStore) WriteItemQuantity(_ context.Context, itemId int, qty decimal.Decimal) error {
	item, ok := s.items[itemId]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	item.Qty = qty
	return nil
}

func (s *fakeCostStore) WriteItemCosts(_ context.Context, itemId int, costs ItemCosts) error {
	if err := s.failItemWrite[itemId]; err != nil {
		return err
	}
	item, ok := s.items[itemId]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	item.UnitCostTotal = costs.UnitCostTotal
	item.TotalCost = costs.TotalCost
	s.costWrites = append(s.costWrites, itemId)
	return nil
}

func (s *fakeCostStore) ReadItemTotals(_ context.Context, budgetId int) ([]ItemTotal, error) {
	items, _ := s.GetBudgetItems(context.Background(), budgetId)
	totals := make([]ItemTotal, 0, len(items))
	for _, item := range items {
		totals = append(totals, ItemTotal{ItemId: item.ID, TotalCost: item.TotalCost})
	}
	return totals, nil
}

func (s *fakeCostStore) ReadBudgetConfig(_ context.Context, budgetId int) (*models.BudgetConfig, error) {
	cfg, ok := s.configs[budgetId]
	if !ok {
		return nil, utils.ErrorConfigurationMissing
	}
	return cfg, nil
}

func (s *fakeCostStore) WriteBudgetTotals(_ context.Context, budgetId int, totals models.BudgetTotals) error {
	s.budgetTotals[budgetId] = &totals
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// addPricedItem wires an item with a single-labor analysis whose unit cost
// equals rate (one hour at the given rate).
func (s *fakeCostStore) addPricedItem(itemId, budgetId int, qty, unitCost string) {
	s.items[itemId] = &models.BudgetItem{ID: itemId, BudgetId: budgetId, Qty: decimal.RequireFromString(qty)}
	analysisId := 100 + itemId
	s.analyses[itemId] = &models.PriceAnalysis{ID: analysisId, BudgetItemId: itemId}
	s.components[analysisId] = &ComponentSet{
		Labors: []*models.AnalysisLabor{
			{AnalysisId: analysisId, Qty: decimal.NewFromInt(1), Rate: decimal.RequireFromString(unitCost)},
		},
	}
}

func TestRecalcItem_UpdatesItemAndBudgetTotals(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{}

	store.items[10] = &models.BudgetItem{ID: 10, BudgetId: 1, Qty: dec("2")}
	store.analyses[10] = &models.PriceAnalysis{ID: 110, BudgetItemId: 10}
	store.components[110] = &ComponentSet{
		Labors: []*models.AnalysisLabor{
			{AnalysisId: 110, Qty: dec("2"), Rate: dec("10")},
		},
		Materials: []*models.AnalysisMaterial{
			{AnalysisId: 110, Qty: dec("3"), Rate: dec("5")},
		},
	}
	// sibling with a previously stored cost
	store.items[20] = &models.BudgetItem{ID: 20, BudgetId: 1, Qty: dec("1"), UnitCostTotal: dec("40"), TotalCost: dec("40")}

	totals, err := RecalcItem(context.Background(), store, testLogger(), 10)
	if err != nil {
		t.Fatalf("RecalcItem: %v", err)
	}

	if !store.items[10].UnitCostTotal.Equal(dec("35")) {
		t.Fatalf("item unit cost expected 35, got %s", store.items[10].UnitCostTotal)
	}
	if !store.items[10].TotalCost.Equal(dec("70")) {
		t.Fatalf("item total cost expected 70, got %s", store.items[10].TotalCost)
	}
	if !totals.SubtotalDirectCosts.Equal(dec("110")) {
		t.Fatalf("direct costs expected 110, got %s", totals.SubtotalDirectCosts)
	}

	persisted := store.budgetTotals[1]
	if persisted == nil {
		t.Fatal("budget totals were not persisted")
	}
	if !persisted.FinalPrice.Equal(totals.FinalPrice) {
		t.Fatalf("persisted final price %s != returned %s", persisted.FinalPrice, totals.FinalPrice)
	}
}

func TestRecalcItem_NeverTouchesSiblings(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{}
	store.addPricedItem(10, 1, "2", "10")
	store.addPricedItem(20, 1, "1", "999") // stale on purpose: not yet recalculated

	if _, err := RecalcItem(context.Background(), store, testLogger(), 10); err != nil {
		t.Fatalf("RecalcItem: %v", err)
	}

	for _, written := range store.costWrites {
		if written != 10 {
			t.Fatalf("sibling item %d was written during a targeted recalculation", written)
		}
	}
	if !store.items[20].TotalCost.IsZero() {
		t.Fatalf("sibling stored total changed to %s", store.items[20].TotalCost)
	}
}

func TestRecalcItem_MissingAnalysisIsZeroCost(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{}
	store.items[10] = &models.BudgetItem{ID: 10, BudgetId: 1, Qty: dec("5")}

	totals, err := RecalcItem(context.Background(), store, testLogger(), 10)
	if err != nil {
		t.Fatalf("RecalcItem: %v", err)
	}
	if !store.items[10].UnitCostTotal.IsZero() || !store.items[10].TotalCost.IsZero() {
		t.Fatalf("unpriced item expected zero costs, got unit=%s total=%s",
			store.items[10].UnitCostTotal, store.items[10].TotalCost)
	}
	if !totals.FinalPrice.IsZero() {
		t.Fatalf("final price expected 0, got %s", totals.FinalPrice)
	}
}

func TestRecalcItem_UnknownItem(t *testing.T) {
	store := newFakeCostStore()
	_, err := RecalcItem(context.Background(), store, testLogger(), 99)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestRecalcItem_Idempotent(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{
		GeneralExpensesPct: dec("17"),
		BenefitPct:         dec("40"),
		TaxPct:             dec("10.5"),
	}
	store.addPricedItem(10, 1, "4", "250") // direct = 1000

	first, err := RecalcItem(context.Background(), store, testLogger(), 10)
	if err != nil {
		t.Fatalf("first RecalcItem: %v", err)
	}
	second, err := RecalcItem(context.Background(), store, testLogger(), 10)
	if err != nil {
		t.Fatalf("second RecalcItem: %v", err)
	}

	if !first.CalculatedPrice.Equal(dec("1809.99")) {
		t.Fatalf("calculated price expected 1809.99, got %s", first.CalculatedPrice)
	}
	if !second.CalculatedPrice.Equal(first.CalculatedPrice) || !second.SubtotalDirectCosts.Equal(first.SubtotalDirectCosts) {
		t.Fatalf("second run diverged: %+v vs %+v", second, first)
	}
	persisted := store.budgetTotals[1]
	if !persisted.CalculatedPrice.Equal(first.CalculatedPrice) {
		t.Fatalf("persisted totals diverged: %s vs %s", persisted.CalculatedPrice, first.CalculatedPrice)
	}
}

func TestRecalcItem_ConfigurationMissingFailsRollup(t *testing.T) {
	store := newFakeCostStore()
	store.addPricedItem(10, 1, "2", "10")
	// no config row for budget 1

	_, err := RecalcItem(context.Background(), store, testLogger(), 10)
	if !errors.Is(err, utils.ErrorConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
	// the item write that already happened is not rolled back
	if !store.items[10].TotalCost.Equal(dec("20")) {
		t.Fatalf("item write expected to persist, got %s", store.items[10].TotalCost)
	}
	if store.budgetTotals[1] != nil {
		t.Fatal("budget totals must not be written when the rollup fails")
	}
}

func TestRecalcBudget_EmptyBudget(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{
		GeneralExpensesPct: dec("17"),
		BenefitPct:         dec("40"),
		TaxPct:             dec("10.5"),
	}

	totals, err := RecalcBudget(context.Background(), store, testLogger(), 1)
	if err != nil {
		t.Fatalf("RecalcBudget: %v", err)
	}
	if !totals.SubtotalDirectCosts.IsZero() || !totals.FinalPrice.IsZero() {
		t.Fatalf("empty budget expected all-zero totals, got %+v", totals)
	}
}

func TestRecalcBudget_PartialWriteFailure(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{}
	store.addPricedItem(10, 1, "1", "10")
	store.addPricedItem(20, 1, "1", "20")
	store.addPricedItem(30, 1, "1", "30")
	store.failItemWrite[20] = errors.New("connection reset")

	_, err := RecalcBudget(context.Background(), store, testLogger(), 1)

	var partial *utils.PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialWriteError, got %v", err)
	}
	if partial.ItemId != 20 {
		t.Fatalf("failing item expected 20, got %d", partial.ItemId)
	}
	// first item's write stays persisted, later items were never written
	if !store.items[10].TotalCost.Equal(dec("10")) {
		t.Fatalf("item 10 expected persisted cost 10, got %s", store.items[10].TotalCost)
	}
	if !store.items[30].TotalCost.IsZero() {
		t.Fatalf("item 30 expected untouched, got %s", store.items[30].TotalCost)
	}
	if store.budgetTotals[1] != nil {
		t.Fatal("budget totals must not be written after a partial failure")
	}
}

func TestApplyQuantityEdits_BulkScenario(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{}
	store.addPricedItem(10, 1, "9", "10")
	store.addPricedItem(20, 1, "9", "20")
	store.addPricedItem(30, 1, "9", "30")

	totals, err := ApplyQuantityEdits(context.Background(), store, testLogger(), 1, []QuantityEdit{
		{ItemId: 10, Qty: dec("2")},
		{ItemId: 20, Qty: dec("3")},
		{ItemId: 30, Qty: dec("1")},
	})
	if err != nil {
		t.Fatalf("ApplyQuantityEdits: %v", err)
	}

	wantTotals := map[int]string{10: "20", 20: "60", 30: "30"}
	for itemId, want := range wantTotals {
		if !store.items[itemId].TotalCost.Equal(dec(want)) {
			t.Fatalf("item %d total expected %s, got %s", itemId, want, store.items[itemId].TotalCost)
		}
	}
	if !totals.SubtotalDirectCosts.Equal(dec("110")) {
		t.Fatalf("direct costs expected 110, got %s", totals.SubtotalDirectCosts)
	}
	persisted := store.budgetTotals[1]
	if persisted == nil || !persisted.SubtotalDirectCosts.Equal(dec("110")) {
		t.Fatalf("persisted budget totals expected direct 110, got %+v", persisted)
	}
}

func TestApplyQuantityEdits_RejectsForeignItem(t *testing.T) {
	store := newFakeCostStore()
	store.configs[1] = &models.BudgetConfig{}
	store.addPricedItem(10, 1, "1", "10")
	store.addPricedItem(20, 2, "1", "20") // belongs to another budget

	_, err := ApplyQuantityEdits(context.Background(), store, testLogger(), 1, []QuantityEdit{
		{ItemId: 20, Qty: dec("5")},
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
	if !store.items[20].Qty.Equal(dec("1")) {
		t.Fatalf("foreign item quantity must stay untouched, got %s", store.items[20].Qty)
	}
}
