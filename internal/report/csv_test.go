package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sar-backtest/internal/models"
)

func TestSummaryRoundTrip(t *testing.T) {
	want := models.Summary{
		FinalEquity:    104238.10,
		TotalReturnPct: 4.2381,
		Sharpe:         1.37,
		MaxDrawdown:    0.083,
	}

	data, err := MarshalSummary(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	header := strings.SplitN(string(data), "\n", 2)[0]
	if header != "Final_Equity,Total_Return_pct,Sharpe,Max_Drawdown" {
		t.Errorf("unexpected header: %q", header)
	}

	got, err := UnmarshalSummary(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("round trip changed summary: got %+v, want %+v", got, want)
	}
}

func TestSummaryNaNSharpeRoundTrip(t *testing.T) {
	data, err := MarshalSummary(models.Summary{FinalEquity: 100000, Sharpe: math.NaN()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := UnmarshalSummary(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsNaN(got.Sharpe) {
		t.Errorf("NaN Sharpe must survive the round trip, got %v", got.Sharpe)
	}
}

func TestTradesRoundTrip(t *testing.T) {
	want := []models.Trade{
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
		},
	}

	data, err := MarshalTrades(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	header := strings.SplitN(string(data), "\n", 2)[0]
	if header != "entry_time,entry_price,exit_time,exit_price,direction,pnl" {
		t.Errorf("unexpected header: %q", header)
	}

	got, err := UnmarshalTrades(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("row count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].EntryTime.Equal(want[i].EntryTime) || !got[i].ExitTime.Equal(want[i].ExitTime) {
			t.Errorf("trade %d times changed: %+v", i, got[i])
		}
		if got[i].Direction != want[i].Direction || got[i].PnL != want[i].PnL {
			t.Errorf("trade %d values changed: %+v", i, got[i])
		}
	}
}

func TestMonthlyRoundTrip(t *testing.T) {
	want := []models.MonthlyStat{
		{Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), NetPnL: 500, Equity: 100500, ReturnPct: math.NaN()},
		{Month: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), NetPnL: -500, Equity: 100000, ReturnPct: -0.4975},
	}

	data, err := MarshalMonthly(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), "2024-01") {
		t.Errorf("month must serialize as YYYY-MM, got:\n%s", data)
	}

	got, err := UnmarshalMonthly(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("row count: got %d", len(got))
	}
	if !math.IsNaN(got[0].ReturnPct) {
		t.Errorf("first month NaN return must survive, got %v", got[0].ReturnPct)
	}
	if got[1].ReturnPct != want[1].ReturnPct || got[1].NetPnL != want[1].NetPnL {
		t.Errorf("february row changed: %+v", got[1])
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	summary := models.Summary{FinalEquity: 100000, Sharpe: math.NaN()}

	if err := WriteAll(dir, summary, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{SummaryFile, TradesFile, MonthlyFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}
