// Package series loads and validates raw OHLCV rows into a canonical bar
// sequence.
package series

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"sar-backtest/internal/errors"
	"sar-backtest/internal/models"
)

// requiredColumns are the columns every input file must carry.
var requiredColumns = []string{"datetime", "open", "high", "low", "close", "volume"}

// csvRow mirrors one raw input row. Fields stay strings so that conversion
// failures can be reported with row context.
type csvRow struct {
	Datetime string `csv:"datetime"`
	Open     string `csv:"open"`
	High     string `csv:"high"`
	Low      string `csv:"low"`
	Close    string `csv:"close"`
	Volume   string `csv:"volume"`
}

// dayFirstLayouts are tried in order when day-first parsing is enabled.
var dayFirstLayouts = []string{
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-01-2006",
	"02/01/2006",
}

// isoLayouts are the fallback layouts; unambiguous regardless of convention.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// monthFirstLayouts are tried first when day-first parsing is disabled.
var monthFirstLayouts = []string{
	"01-02-2006 15:04:05",
	"01/02/2006 15:04:05",
	"01-02-2006 15:04",
	"01/02/2006 15:04",
	"01-02-2006",
	"01/02/2006",
}

// LoadCSV reads a CSV file and returns the validated, time-ordered bar
// sequence.
func LoadCSV(path string, dayFirst bool) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return Parse(f, dayFirst)
}

// Parse reads CSV rows from r and returns the canonical bar sequence:
// parsed, validated, sorted ascending by timestamp. The sort is stable, so
// duplicate timestamps keep their input order.
func Parse(r io.Reader, dayFirst bool) ([]models.Bar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading input")
	}

	if err := checkSchema(data); err != nil {
		return nil, err
	}

	var rows []*csvRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling csv")
	}

	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseRow(i+1, row, dayFirst)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	return bars, nil
}

// checkSchema verifies the header row carries every required column.
func checkSchema(data []byte) error {
	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err != nil {
		return errors.Wrap(err, "reading header")
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.ToLower(strings.TrimSpace(col))] = true
	}

	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return errors.NewSchemaError(missing...)
	}
	return nil
}

func parseRow(rowNum int, row *csvRow, dayFirst bool) (models.Bar, error) {
	ts, err := ParseTimestamp(row.Datetime, dayFirst)
	if err != nil {
		return models.Bar{}, errors.NewParseError(rowNum, "datetime", row.Datetime, err)
	}

	bar := models.Bar{Timestamp: ts}
	fields := []struct {
		name  string
		value string
		dst   *float64
	}{
		{"open", row.Open, &bar.Open},
		{"high", row.High, &bar.High},
		{"low", row.Low, &bar.Low},
		{"close", row.Close, &bar.Close},
		{"volume", row.Volume, &bar.Volume},
	}
	for _, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field.value), 64)
		if err != nil {
			return models.Bar{}, errors.NewParseError(rowNum, field.name, field.value, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.Bar{}, errors.NewParseError(rowNum, field.name, field.value, fmt.Errorf("non-finite value"))
		}
		*field.dst = v
	}

	if err := checkBar(bar); err != nil {
		return models.Bar{}, errors.NewParseError(rowNum, "ohlc", row.Datetime, err)
	}

	return bar, nil
}

// checkBar enforces the OHLC ordering invariants.
func checkBar(b models.Bar) error {
	if b.High < b.Low {
		return fmt.Errorf("high %g below low %g", b.High, b.Low)
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("high %g below open/close", b.High)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("low %g above open/close", b.Low)
	}
	return nil
}

// ParseTimestamp parses a timestamp string. With dayFirst set, day-first
// layouts are tried before the unambiguous ISO layouts; otherwise
// month-first layouts take precedence.
func ParseTimestamp(value string, dayFirst bool) (time.Time, error) {
	value = strings.TrimSpace(value)

	var layouts []string
	if dayFirst {
		layouts = append(layouts, dayFirstLayouts...)
	} else {
		layouts = append(layouts, monthFirstLayouts...)
	}
	layouts = append(layouts, isoLayouts...)

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
