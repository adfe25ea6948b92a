package backtest

import (
	"sar-backtest/internal/models"
)

// TradeLog segments the position series into round-trip trades. A trade is a
// maximal run of consecutive bars holding the same non-zero position; entry
// and exit use the close price of the run's first and last bar, and the
// trade's P&L is the sum of net P&L over the run (the entry bar's
// transaction cost included). A run still open at the last bar is emitted
// with ForcedExit set.
func TradeLog(bars []models.Bar, points []models.EquityPoint) []models.Trade {
	var trades []models.Trade
	start := -1 // index of the open run's first bar

	closeRun := func(end int, forced bool) {
		trades = append(trades, models.Trade{
			EntryTime:  bars[start].Timestamp,
			EntryPrice: bars[start].Close,
			ExitTime:   bars[end].Timestamp,
			ExitPrice:  bars[end].Close,
			Direction:  points[start].Position,
			PnL:        runPnL(points, start, end),
			ForcedExit: forced,
		})
		start = -1
	}

	for i, p := range points {
		if start >= 0 && p.Position != points[start].Position {
			closeRun(i-1, false)
		}
		if start < 0 && p.Position != models.SignalFlat {
			start = i
		}
	}
	if start >= 0 {
		closeRun(len(points)-1, true)
	}

	return trades
}

func runPnL(points []models.EquityPoint, start, end int) float64 {
	var pnl float64
	for i := start; i <= end; i++ {
		pnl += points[i].NetPnL
	}
	return pnl
}
