package backtest

import (
	"math"
	"testing"
	"time"

	"sar-backtest/internal/models"
)

var testParams = Params{
	Accel:           0.02,
	MaxAccel:        0.2,
	InitialCapital:  100000,
	TransactionCost: 100,
}

// barsFromCloses builds daily bars whose open/high/low bracket the close.
func barsFromCloses(closes ...float64) []models.Bar {
	base := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSimulatePositionLag(t *testing.T) {
	bars := barsFromCloses(100, 105, 95, 97)
	signals := []models.Signal{models.SignalLong, models.SignalLong, models.SignalShort, models.SignalShort}

	points := Simulate(bars, signals, testParams)

	if points[0].Position != models.SignalFlat {
		t.Errorf("position at bar 0 must be flat, got %v", points[0].Position)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Position != signals[i-1] {
			t.Errorf("bar %d: position %v != previous signal %v", i, points[i].Position, signals[i-1])
		}
	}
}

func TestSimulateEquityStartsAtCapital(t *testing.T) {
	bars := barsFromCloses(100, 105, 95)
	signals := []models.Signal{models.SignalLong, models.SignalLong, models.SignalShort}

	points := Simulate(bars, signals, testParams)

	if points[0].Equity != testParams.InitialCapital {
		t.Errorf("equity at bar 0 must equal initial capital exactly, got %v", points[0].Equity)
	}
	if points[0].NetPnL != 0 {
		t.Errorf("net P&L at bar 0 must be 0, got %v", points[0].NetPnL)
	}
}

// Hand-computed path for the 3-bar scenario: closes 100, 105, 95.
// Signals are long, long, short; positions flat, long, long.
func TestSimulateScenario(t *testing.T) {
	bars := barsFromCloses(100, 105, 95)
	signals := []models.Signal{models.SignalLong, models.SignalLong, models.SignalShort}

	points := Simulate(bars, signals, testParams)

	// Bar 1: long, return 105/100-1 = 0.05 → 5000 gross, 100 entry cost.
	if !approxEqual(points[1].NetPnL, 4900, 1e-9) {
		t.Errorf("bar 1 net P&L: got %v, want 4900", points[1].NetPnL)
	}
	if !approxEqual(points[1].Equity, 104900, 1e-9) {
		t.Errorf("bar 1 equity: got %v, want 104900", points[1].Equity)
	}

	// Bar 2: still long, return 95/105-1 → -9523.81 gross, no cost.
	wantPnL := (95.0/105.0 - 1) * 100000
	if !approxEqual(points[2].NetPnL, wantPnL, 1e-9) {
		t.Errorf("bar 2 net P&L: got %v, want %v", points[2].NetPnL, wantPnL)
	}
	if !approxEqual(points[2].Equity, 104900+wantPnL, 1e-9) {
		t.Errorf("bar 2 equity: got %v, want %v", points[2].Equity, 104900+wantPnL)
	}
}

func TestSimulateCostOnlyOnPositionChange(t *testing.T) {
	bars := barsFromCloses(100, 101, 102, 99, 98, 103)
	signals := []models.Signal{
		models.SignalLong, models.SignalLong, models.SignalShort,
		models.SignalShort, models.SignalLong, models.SignalLong,
	}

	points := Simulate(bars, signals, testParams)

	prev := models.SignalFlat
	for i, p := range points {
		grossReturn := 0.0
		switch p.Position {
		case models.SignalLong:
			grossReturn = bars[i].Close/bars[i-1].Close - 1
		case models.SignalShort:
			grossReturn = bars[i-1].Close/bars[i].Close - 1
		}
		gross := grossReturn * testParams.InitialCapital
		cost := gross - p.NetPnL

		shouldCharge := p.Position != prev && p.Position != models.SignalFlat
		if shouldCharge && !approxEqual(cost, testParams.TransactionCost, 1e-9) {
			t.Errorf("bar %d: expected cost %v, got %v", i, testParams.TransactionCost, cost)
		}
		if !shouldCharge && !approxEqual(cost, 0, 1e-9) {
			t.Errorf("bar %d: unexpected cost %v", i, cost)
		}
		prev = p.Position
	}
}

func TestSimulateReconciliation(t *testing.T) {
	bars := barsFromCloses(100, 105, 95, 97, 103, 99, 94, 108, 110, 90)
	signals := Signals(bars, mustStates(t, bars))

	points := Simulate(bars, signals, testParams)

	var total float64
	for _, p := range points {
		total += p.NetPnL
	}
	final := points[len(points)-1].Equity
	if !approxEqual(total, final-testParams.InitialCapital, 1e-6) {
		t.Errorf("sum of net P&L %v != final equity - capital %v", total, final-testParams.InitialCapital)
	}
}

func TestSimulateFlatBarsEarnNothing(t *testing.T) {
	bars := barsFromCloses(100, 101, 102, 103)
	signals := []models.Signal{models.SignalFlat, models.SignalFlat, models.SignalLong, models.SignalLong}

	points := Simulate(bars, signals, testParams)

	for i := 0; i < 3; i++ {
		if points[i].NetPnL != 0 {
			t.Errorf("bar %d is flat but earned %v", i, points[i].NetPnL)
		}
	}
	if points[3].Position != models.SignalLong {
		t.Errorf("expected long position at bar 3, got %v", points[3].Position)
	}
}
