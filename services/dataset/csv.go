// Package dataset loads indicator-enriched candle CSVs into engine series and
// caches them across strategy runs.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"futures-backtest/services/engine"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// LoadCSV reads a candle CSV whose first column is the timestamp, followed by
// open/high/low/close/volume and any number of indicator columns. Exported
// files are sometimes UTF-16 with a BOM (Excel round trips); both encodings
// are accepted. Unparseable numeric cells become NaN so signal predicates can
// treat them as missing rather than aborting the load.
func LoadCSV(path, symbol, timeframe string) (*engine.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(decodeReader(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(header[i]), "\uFEFF")
	}
	if len(header) < 6 {
		return nil, fmt.Errorf("csv %s: expected timestamp,open,high,low,close,volume columns, got %d", path, len(header))
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(name)] = i
	}

	series := &engine.Series{Symbol: symbol, Timeframe: timeframe}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(rec) != len(header) {
			continue
		}

		ts, ok := parseTime(rec[0])
		if !ok {
			continue
		}
		bar := engine.Bar{
			Time:   ts,
			Open:   parseFloat(rec, col, "open"),
			High:   parseFloat(rec, col, "high"),
			Low:    parseFloat(rec, col, "low"),
			Close:  parseFloat(rec, col, "close"),
			Volume: parseFloat(rec, col, "volume"),
			Fields: make(map[string]float64, len(header)-6),
		}
		for i, name := range header {
			switch strings.ToLower(name) {
			case "", "timestamp", "open", "high", "low", "close", "volume":
				continue
			}
			bar.Fields[strings.ToLower(name)] = toFloat(rec[i])
		}
		series.Bars = append(series.Bars, bar)
	}

	series.Normalize()
	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("csv %s: no valid rows", path)
	}
	return series, nil
}

// decodeReader sniffs a UTF-16 BOM and wraps the reader with a decoder when
// one is present.
func decodeReader(f *os.File) io.Reader {
	br := bufio.NewReader(f)
	head, _ := br.Peek(2)
	if len(head) >= 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	}
	return br
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// Millisecond epoch, the Binance export convention.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func parseFloat(rec []string, col map[string]int, name string) float64 {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return math.NaN()
	}
	return toFloat(rec[i])
}

func toFloat(s string) float64 {
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
