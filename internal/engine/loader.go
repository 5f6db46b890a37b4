package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/xuri/excelize/v2"

	"co2dash/internal/models"
)

// ValueColumnFirst selects the first non-key column as the value column,
// whatever else the source carries.
const ValueColumnFirst = "first"

// EmissionsColumns names the source headers of the emissions table.
// ValueColumn may be empty (infer the sole non-key column), a header name,
// or ValueColumnFirst.
type EmissionsColumns struct {
	Country     string
	Code        string
	Year        string
	ValueColumn string
}

// DefaultEmissionsColumns matches the Our World in Data export.
func DefaultEmissionsColumns() EmissionsColumns {
	return EmissionsColumns{Country: "Entity", Code: "Code", Year: "Year"}
}

// LoadStats counts what the loader kept and why rows were dropped.
type LoadStats struct {
	Rows        int    `json:"rows"`
	Kept        int    `json:"kept"`
	InvalidCode int    `json:"invalid_code"`
	MissingData int    `json:"missing_data"`
	ValueColumn string `json:"value_column"`
}

// LoadEmissions reads a CSV or XLSX emissions table into EmissionRecords.
// Rows whose code is not ISO3 length are dropped, as are rows with an empty,
// unparseable or non-finite year or value. An empty result is not an error.
func LoadEmissions(ctx context.Context, path string, cols EmissionsColumns) ([]models.EmissionRecord, LoadStats, error) {
	start := time.Now()
	log.Info("Loading emissions...")

	if err := ctx.Err(); err != nil {
		return nil, LoadStats{}, err
	}

	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		err = sourceErr(path, "detect format", fmt.Errorf("unsupported table extension %q", ext))
	}
	if err != nil {
		return nil, LoadStats{}, err
	}
	if len(rows) == 0 {
		return nil, LoadStats{}, sourceErr(path, "read header", errors.New("empty table"))
	}

	records, stats, err := ParseEmissions(rows[0], rows[1:], cols)
	if err != nil {
		return nil, stats, sourceErr(path, "map columns", err)
	}

	log.Infof("Emissions loaded. Rows: %d, kept: %d, invalid code: %d, missing: %d, value column: %q. Time: %v",
		stats.Rows, stats.Kept, stats.InvalidCode, stats.MissingData, stats.ValueColumn, time.Since(start))
	return records, stats, nil
}

// ParseEmissions maps raw header and rows onto EmissionRecords.
func ParseEmissions(header []string, rows [][]string, cols EmissionsColumns) ([]models.EmissionRecord, LoadStats, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}

	find := func(name string) (int, error) {
		i, ok := idx[normalizeHeader(name)]
		if !ok {
			return 0, fmt.Errorf("missing column %q", name)
		}
		return i, nil
	}
	countryIdx, err := find(cols.Country)
	if err != nil {
		return nil, LoadStats{}, err
	}
	codeIdx, err := find(cols.Code)
	if err != nil {
		return nil, LoadStats{}, err
	}
	yearIdx, err := find(cols.Year)
	if err != nil {
		return nil, LoadStats{}, err
	}
	valueIdx, err := valueColumn(header, cols, countryIdx, codeIdx, yearIdx)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Rows: len(rows), ValueColumn: strings.TrimSpace(header[valueIdx])}
	out := make([]models.EmissionRecord, 0, len(rows))
	for _, row := range rows {
		code := NormalizeCode(cell(row, codeIdx))
		if !ValidCode(code) {
			stats.InvalidCode++
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(cell(row, yearIdx)))
		if err != nil {
			stats.MissingData++
			continue
		}
		co2, err := strconv.ParseFloat(strings.TrimSpace(cell(row, valueIdx)), 64)
		if err != nil || math.IsNaN(co2) || math.IsInf(co2, 0) {
			// NaN is how the source spells a missing measurement.
			stats.MissingData++
			continue
		}
		out = append(out, models.EmissionRecord{
			Code:    code,
			Country: strings.TrimSpace(cell(row, countryIdx)),
			Year:    year,
			CO2:     co2,
		})
	}
	stats.Kept = len(out)
	return out, stats, nil
}

// valueColumn resolves which header becomes co2.
func valueColumn(header []string, cols EmissionsColumns, keys ...int) (int, error) {
	isKey := func(i int) bool {
		for _, k := range keys {
			if i == k {
				return true
			}
		}
		return false
	}

	var candidates []int
	for i, h := range header {
		if !isKey(i) && strings.TrimSpace(h) != "" {
			candidates = append(candidates, i)
		}
	}

	switch {
	case cols.ValueColumn == ValueColumnFirst:
		if len(candidates) == 0 {
			return 0, errors.New("no value column")
		}
		if len(candidates) > 1 {
			log.Warnf("Emissions source has %d candidate value columns, using first: %q", len(candidates), header[candidates[0]])
		}
		return candidates[0], nil
	case cols.ValueColumn != "":
		want := normalizeHeader(cols.ValueColumn)
		for _, i := range candidates {
			if normalizeHeader(header[i]) == want {
				return i, nil
			}
		}
		return 0, fmt.Errorf("missing value column %q", cols.ValueColumn)
	}

	switch len(candidates) {
	case 0:
		return 0, errors.New("no value column")
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for j, i := range candidates {
			names[j] = header[i]
		}
		return 0, fmt.Errorf("%w: %s", ErrAmbiguousValueColumn, strings.Join(names, ", "))
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sourceErr(path, "open", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, sourceErr(path, "parse csv", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, sourceErr(path, "open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, sourceErr(path, "read workbook", errors.New("no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, sourceErr(path, "read sheet "+sheets[0], err)
	}
	return rows, nil
}
