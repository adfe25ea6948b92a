// Package report serializes backtest outputs to CSV and reads them back.
package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"sar-backtest/internal/errors"
	"sar-backtest/internal/models"
)

// Canonical output file names.
const (
	SummaryFile = "summary_metrics.csv"
	TradesFile  = "trade_log.csv"
	MonthlyFile = "monthly_returns.csv"
)

const timestampLayout = "2006-01-02 15:04:05"
const monthLayout = "2006-01"

// DateTime marshals a timestamp in the canonical export layout.
type DateTime struct {
	time.Time
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (d DateTime) MarshalCSV() (string, error) {
	return d.Format(timestampLayout), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (d *DateTime) UnmarshalCSV(value string) error {
	ts, err := time.Parse(timestampLayout, value)
	if err != nil {
		return err
	}
	d.Time = ts
	return nil
}

// Month marshals a month bucket as YYYY-MM.
type Month struct {
	time.Time
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (m Month) MarshalCSV() (string, error) {
	return m.Format(monthLayout), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (m *Month) UnmarshalCSV(value string) error {
	ts, err := time.Parse(monthLayout, value)
	if err != nil {
		return err
	}
	m.Time = ts
	return nil
}

// SummaryRow is the single-row summary metrics table.
type SummaryRow struct {
	FinalEquity    float64 `csv:"Final_Equity"`
	TotalReturnPct float64 `csv:"Total_Return_pct"`
	Sharpe         float64 `csv:"Sharpe"`
	MaxDrawdown    float64 `csv:"Max_Drawdown"`
}

// TradeRow is one row of the trade log table.
type TradeRow struct {
	EntryTime  DateTime `csv:"entry_time"`
	EntryPrice float64  `csv:"entry_price"`
	ExitTime   DateTime `csv:"exit_time"`
	ExitPrice  float64  `csv:"exit_price"`
	Direction  int      `csv:"direction"`
	PnL        float64  `csv:"pnl"`
}

// MonthlyRow is one row of the monthly returns table.
type MonthlyRow struct {
	Month     Month   `csv:"month"`
	NetPnL    float64 `csv:"net_pnl"`
	Equity    float64 `csv:"equity"`
	ReturnPct float64 `csv:"monthly_return_pct"`
}

// MarshalSummary serializes the summary metrics table.
func MarshalSummary(summary models.Summary) ([]byte, error) {
	rows := []SummaryRow{{
		FinalEquity:    summary.FinalEquity,
		TotalReturnPct: summary.TotalReturnPct,
		Sharpe:         summary.Sharpe,
		MaxDrawdown:    summary.MaxDrawdown,
	}}
	return gocsv.MarshalBytes(&rows)
}

// UnmarshalSummary reads a summary metrics table back.
func UnmarshalSummary(data []byte) (models.Summary, error) {
	var rows []SummaryRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return models.Summary{}, errors.Wrap(err, "unmarshaling summary")
	}
	if len(rows) == 0 {
		return models.Summary{}, errors.Wrap(errors.ErrInsufficientData, "empty summary table")
	}
	r := rows[0]
	return models.Summary{
		FinalEquity:    r.FinalEquity,
		TotalReturnPct: r.TotalReturnPct,
		Sharpe:         r.Sharpe,
		MaxDrawdown:    r.MaxDrawdown,
	}, nil
}

// MarshalTrades serializes the trade log table.
func MarshalTrades(trades []models.Trade) ([]byte, error) {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			EntryTime:  DateTime{t.EntryTime},
			EntryPrice: t.EntryPrice,
			ExitTime:   DateTime{t.ExitTime},
			ExitPrice:  t.ExitPrice,
			Direction:  int(t.Direction),
			PnL:        t.PnL,
		}
	}
	return gocsv.MarshalBytes(&rows)
}

// UnmarshalTrades reads a trade log table back.
func UnmarshalTrades(data []byte) ([]models.Trade, error) {
	var rows []TradeRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling trade log")
	}
	trades := make([]models.Trade, len(rows))
	for i, r := range rows {
		trades[i] = models.Trade{
			EntryTime:  r.EntryTime.Time,
			EntryPrice: r.EntryPrice,
			ExitTime:   r.ExitTime.Time,
			ExitPrice:  r.ExitPrice,
			Direction:  models.Signal(r.Direction),
			PnL:        r.PnL,
		}
	}
	return trades, nil
}

// MarshalMonthly serializes the monthly returns table.
func MarshalMonthly(monthly []models.MonthlyStat) ([]byte, error) {
	rows := make([]MonthlyRow, len(monthly))
	for i, m := range monthly {
		rows[i] = MonthlyRow{
			Month:     Month{m.Month},
			NetPnL:    m.NetPnL,
			Equity:    m.Equity,
			ReturnPct: m.ReturnPct,
		}
	}
	return gocsv.MarshalBytes(&rows)
}

// UnmarshalMonthly reads a monthly returns table back.
func UnmarshalMonthly(data []byte) ([]models.MonthlyStat, error) {
	var rows []MonthlyRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling monthly returns")
	}
	monthly := make([]models.MonthlyStat, len(rows))
	for i, r := range rows {
		monthly[i] = models.MonthlyStat{
			Month:     r.Month.Time,
			NetPnL:    r.NetPnL,
			Equity:    r.Equity,
			ReturnPct: r.ReturnPct,
		}
	}
	return monthly, nil
}

// WriteAll writes the three report tables into dir using the canonical file
// names.
func WriteAll(dir string, summary models.Summary, trades []models.Trade, monthly []models.MonthlyStat) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	files := []struct {
		name    string
		marshal func() ([]byte, error)
	}{
		{SummaryFile, func() ([]byte, error) { return MarshalSummary(summary) }},
		{TradesFile, func() ([]byte, error) { return MarshalTrades(trades) }},
		{MonthlyFile, func() ([]byte, error) { return MarshalMonthly(monthly) }},
	}

	for _, file := range files {
		data, err := file.marshal()
		if err != nil {
			return errors.Wrapf(err, "marshaling %s", file.name)
		}
		path := filepath.Join(dir, file.name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}
	return nil
}
