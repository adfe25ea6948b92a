package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"sar-backtest/internal/backtest"
	"sar-backtest/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(sharpe float64) Run {
	return Run{
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:    "data/nifty.csv",
		Bars:      250,
		Params: backtest.Params{
			Accel:           0.005,
			MaxAccel:        0.05,
			InitialCapital:  100000,
			TransactionCost: 100,
		},
		Summary: models.Summary{
			FinalEquity:    104200,
			TotalReturnPct: 4.2,
			Sharpe:         sharpe,
			MaxDrawdown:    0.08,
		},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.SaveRun(ctx, testRun(1.2), nil)
	if err != nil {
		t.Fatalf("saving first run: %v", err)
	}
	second, err := store.SaveRun(ctx, testRun(0.8), nil)
	if err != nil {
		t.Fatalf("saving second run: %v", err)
	}
	if second <= first {
		t.Errorf("run ids must increase: %d then %d", first, second)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second {
		t.Errorf("newest run must come first, got id %d", runs[0].ID)
	}
	if runs[0].Summary.Sharpe != 0.8 || runs[0].Params.Accel != 0.005 {
		t.Errorf("run fields did not survive: %+v", runs[0])
	}
}

func TestListRunsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.SaveRun(ctx, testRun(1.0), nil); err != nil {
			t.Fatalf("saving run %d: %v", i, err)
		}
	}

	runs, err := store.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs with limit 3, got %d", len(runs))
	}
}

func TestNaNSharpeStoredAsNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveRun(ctx, testRun(math.NaN()), nil)
	if err != nil {
		t.Fatalf("saving run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if runs[0].ID != id {
		t.Fatalf("unexpected run id %d", runs[0].ID)
	}
	if !math.IsNaN(runs[0].Summary.Sharpe) {
		t.Errorf("NaN Sharpe must round trip through NULL, got %v", runs[0].Summary.Sharpe)
	}
}

func TestSaveRunWithTrades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trades := []models.Trade{
		{
			EntryTime:  time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC),
			EntryPrice: 101.5,
			ExitTime:   time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC),
			ExitPrice:  99.25,
			Direction:  models.SignalLong,
			PnL:        -2316.75,
		},
		{
			EntryTime:  time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC),
			EntryPrice: 99.25,
			ExitTime:   time.Date(2024, 1, 9, 15, 30, 0, 0, time.UTC),
			ExitPrice:  97.0,
			Direction:  models.SignalShort,
			PnL:        2167.51,
			ForcedExit: true,
		},
	}

	id, err := store.SaveRun(ctx, testRun(1.1), trades)
	if err != nil {
		t.Fatalf("saving run: %v", err)
	}

	got, err := store.GetTrades(ctx, id)
	if err != nil {
		t.Fatalf("getting trades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(got))
	}
	if got[0].Direction != models.SignalLong || got[0].PnL != -2316.75 {
		t.Errorf("first trade changed: %+v", got[0])
	}
	if !got[1].ForcedExit {
		t.Error("forced exit flag must survive")
	}
	if !got[0].EntryTime.Equal(trades[0].EntryTime) {
		t.Errorf("entry time changed: got %v, want %v", got[0].EntryTime, trades[0].EntryTime)
	}

	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if runs[0].NumTrades != 2 {
		t.Errorf("trade count: got %d, want 2", runs[0].NumTrades)
	}
}

func TestGetTradesUnknownRun(t *testing.T) {
	store := newTestStore(t)

	trades, err := store.GetTrades(context.Background(), 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected no trades for an unknown run, got %d", len(trades))
	}
}
