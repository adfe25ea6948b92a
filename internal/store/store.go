// Package store provides data persistence implementations.
package store

import (
	"context"
	"time"

	"sar-backtest/internal/backtest"
	"sar-backtest/internal/models"
)

// Run is one persisted backtest run.
type Run struct {
	ID        int64
	CreatedAt time.Time
	Source    string
	Bars      int
	Params    backtest.Params
	Summary   models.Summary
	NumTrades int
}

// RunStore persists backtest runs and their trade logs.
type RunStore interface {
	SaveRun(ctx context.Context, run Run, trades []models.Trade) (int64, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetTrades(ctx context.Context, runID int64) ([]models.Trade, error)
	Close() error
}
