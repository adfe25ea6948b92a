package cli

import (
	"fmt"
	"strings"

	"sar-backtest/internal/models"
)

// equityCurveASCII renders the equity path as an ASCII chart.
func equityCurveASCII(points []models.EquityPoint, width, height int) string {
	if len(points) == 0 {
		return "No data to display"
	}

	minEquity := points[0].Equity
	maxEquity := points[0].Equity
	for _, p := range points {
		if p.Equity < minEquity {
			minEquity = p.Equity
		}
		if p.Equity > maxEquity {
			maxEquity = p.Equity
		}
	}

	// Pad the range so the curve does not hug the borders.
	equityRange := maxEquity - minEquity
	if equityRange == 0 {
		equityRange = 1
	}
	minEquity -= equityRange * 0.05
	maxEquity += equityRange * 0.05
	equityRange = maxEquity - minEquity

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	step := len(points) / width
	if step == 0 {
		step = 1
	}

	for x := 0; x < width && x*step < len(points); x++ {
		p := points[x*step]
		y := int((p.Equity - minEquity) / equityRange * float64(height-1))
		if y >= 0 && y < height {
			grid[height-1-y][x] = '█'
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("(%.0f - %.0f)\n", minEquity, maxEquity))
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	for _, row := range grid {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteRune('│')
		sb.WriteRune('\n')
	}
	sb.WriteString(strings.Repeat("─", width+2) + "\n")

	return sb.String()
}
