package store

import (
	"context"
	"database/sql"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sar-backtest/internal/backtest"
	"sar-backtest/internal/errors"
	"sar-backtest/internal/models"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based run store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewStoreError("open", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.NewStoreError("init schema", err)
	}

	return store, nil
}

// initSchema creates all required tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		source TEXT NOT NULL,
		bars INTEGER NOT NULL,
		accel REAL NOT NULL,
		max_accel REAL NOT NULL,
		initial_capital REAL NOT NULL,
		transaction_cost REAL NOT NULL,
		final_equity REAL NOT NULL,
		total_return_pct REAL NOT NULL,
		sharpe REAL,
		max_drawdown REAL NOT NULL,
		num_trades INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		entry_time DATETIME NOT NULL,
		entry_price REAL NOT NULL,
		exit_time DATETIME NOT NULL,
		exit_price REAL NOT NULL,
		direction INTEGER NOT NULL,
		pnl REAL NOT NULL,
		forced_exit INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists a run and its trade log in one transaction. A NaN Sharpe
// is stored as NULL.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, trades []models.Trade) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewStoreError("begin tx", err)
	}
	defer tx.Rollback()

	sharpe := sql.NullFloat64{Float64: run.Summary.Sharpe, Valid: !math.IsNaN(run.Summary.Sharpe)}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (created_at, source, bars, accel, max_accel,
			initial_capital, transaction_cost, final_equity,
			total_return_pct, sharpe, max_drawdown, num_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.Source, run.Bars,
		run.Params.Accel, run.Params.MaxAccel,
		run.Params.InitialCapital, run.Params.TransactionCost,
		run.Summary.FinalEquity, run.Summary.TotalReturnPct,
		sharpe, run.Summary.MaxDrawdown, len(trades))
	if err != nil {
		return 0, errors.NewStoreError("insert run", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.NewStoreError("run id", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades (run_id, entry_time, entry_price, exit_time,
			exit_price, direction, pnl, forced_exit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.NewStoreError("prepare trade insert", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		forced := 0
		if t.ForcedExit {
			forced = 1
		}
		if _, err := stmt.ExecContext(ctx, runID, t.EntryTime, t.EntryPrice,
			t.ExitTime, t.ExitPrice, int(t.Direction), t.PnL, forced); err != nil {
			return 0, errors.NewStoreError("insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewStoreError("commit", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source, bars, accel, max_accel,
			initial_capital, transaction_cost, final_equity,
			total_return_pct, sharpe, max_drawdown, num_trades
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewStoreError("list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var sharpe sql.NullFloat64
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Source, &run.Bars,
			&run.Params.Accel, &run.Params.MaxAccel,
			&run.Params.InitialCapital, &run.Params.TransactionCost,
			&run.Summary.FinalEquity, &run.Summary.TotalReturnPct,
			&sharpe, &run.Summary.MaxDrawdown, &run.NumTrades); err != nil {
			return nil, errors.NewStoreError("scan run", err)
		}
		if sharpe.Valid {
			run.Summary.Sharpe = sharpe.Float64
		} else {
			run.Summary.Sharpe = math.NaN()
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetTrades returns the trade log of a run in chronological order.
func (s *SQLiteStore) GetTrades(ctx context.Context, runID int64) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_time, entry_price, exit_time, exit_price, direction, pnl, forced_exit
		FROM run_trades WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.NewStoreError("get trades", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var direction, forced int
		if err := rows.Scan(&t.EntryTime, &t.EntryPrice, &t.ExitTime,
			&t.ExitPrice, &direction, &t.PnL, &forced); err != nil {
			return nil, errors.NewStoreError("scan trade", err)
		}
		t.Direction = models.Signal(direction)
		t.ForcedExit = forced == 1
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NewRun builds a Run record from an engine result.
func NewRun(source string, bars int, result *backtest.Result) Run {
	return Run{
		CreatedAt: time.Now(),
		Source:    source,
		Bars:      bars,
		Params:    result.Params,
		Summary:   result.Summary,
		NumTrades: len(result.Trades),
	}
}
