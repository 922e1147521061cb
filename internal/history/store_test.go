package history

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/operato/eoq-planner/internal/demand"
	"github.com/operato/eoq-planner/internal/eoq"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func testResult(t *testing.T, demandValue float64) eoq.Result {
	t.Helper()
	result, err := eoq.Optimize(zap.NewNop(), []eoq.EchelonParameters{
		{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05},
		{Name: "glass", SetupCost: 180, HoldingCost: 1.8, DefectRate: 0.04},
	}, demandValue, eoq.PolicyDiscount)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	return result
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.RecordRun(ctx, testResult(t, 1000))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	second, err := store.RecordRun(ctx, testResult(t, 2000))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("run IDs should be unique")
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	latest := runs[0]
	if latest.Demand != 2000 {
		t.Errorf("latest run demand = %v, want 2000 (newest first ordering)", latest.Demand)
	}
	if latest.Policy != "discount" {
		t.Errorf("latest run policy = %q, want discount", latest.Policy)
	}
	if math.Abs(latest.TotalCost-2348.3020043015313) > 1e-6 {
		t.Errorf("latest run total cost = %v, want 2348.3020043015313", latest.TotalCost)
	}
	if len(latest.Echelons) != 2 {
		t.Fatalf("expected 2 echelon solutions in detail, got %d", len(latest.Echelons))
	}
	if latest.Echelons[0].Name != "metal" {
		t.Errorf("first echelon = %q, want metal", latest.Echelons[0].Name)
	}
}

func TestListRunsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.RecordRun(ctx, testResult(t, float64(1000+i))); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs with limit, got %d", len(runs))
	}
}

func TestImportAndLoadSalesHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []demand.Record{
		{Date: day, StoreID: "S1", Price: 10, Promotions: "none", Seasonality: "winter", ExternalFactors: "none", CustomerSegment: "retail", SalesQuantity: 42},
		{Date: day.AddDate(0, 0, 1), StoreID: "S2", Price: 11, Promotions: "flash-sale", Seasonality: "winter", ExternalFactors: "holiday", CustomerSegment: "wholesale", SalesQuantity: 58},
	}

	if err := store.ImportSalesHistory(ctx, records, false); err != nil {
		t.Fatalf("ImportSalesHistory failed: %v", err)
	}

	loaded, err := store.LoadSalesHistory(ctx)
	if err != nil {
		t.Fatalf("LoadSalesHistory failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].StoreID != "S1" || loaded[1].CustomerSegment != "wholesale" {
		t.Errorf("unexpected records: %+v", loaded)
	}

	// Re-import replaces rather than appends.
	if err := store.ImportSalesHistory(ctx, records[:1], false); err != nil {
		t.Fatalf("ImportSalesHistory failed: %v", err)
	}
	loaded, err = store.LoadSalesHistory(ctx)
	if err != nil {
		t.Fatalf("LoadSalesHistory failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("expected re-import to replace history, got %d records", len(loaded))
	}
}

func TestImportSalesHistoryEmpty(t *testing.T) {
	store := openTestStore(t)
	if err := store.ImportSalesHistory(context.Background(), nil, false); err == nil {
		t.Error("expected error for empty import")
	}
}
