package engine

import (
	"sort"

	"co2dash/internal/models"
)

// Table holds the enriched rows plus read-only indexes over them.
// It is built once and shared by every view.
type Table struct {
	// Rows grouped by code (first-seen order), ascending year within a code.
	Records []models.EnrichedRecord

	// Row positions per year, in Records order.
	byYear map[int][]int

	// Dictionaries (sorted, distinct)
	CountryDict   []string
	ContinentDict []string

	Years  models.YearRange
	MaxCO2 float64

	unmatched int
	codes     int
}

// NewTable indexes enriched rows. The slice is owned by the Table afterwards.
func NewTable(records []models.EnrichedRecord) *Table {
	t := &Table{
		Records: records,
		byYear:  make(map[int][]int),
	}

	countries := make(map[string]struct{})
	continents := make(map[string]struct{})
	codes := make(map[string]struct{})
	for i, r := range records {
		if i == 0 || r.Year < t.Years.From {
			t.Years.From = r.Year
		}
		if i == 0 || r.Year > t.Years.To {
			t.Years.To = r.Year
		}
		if r.CO2 > t.MaxCO2 {
			t.MaxCO2 = r.CO2
		}
		t.byYear[r.Year] = append(t.byYear[r.Year], i)

		countries[r.Country] = struct{}{}
		codes[r.Code] = struct{}{}
		if r.Continent != "" {
			continents[r.Continent] = struct{}{}
		} else {
			t.unmatched++
		}
	}

	t.CountryDict = sortedKeys(countries)
	t.ContinentDict = sortedKeys(continents)
	t.codes = len(codes)
	return t
}

// Len returns the number of enriched rows.
func (t *Table) Len() int { return len(t.Records) }

// Year returns the rows for a single year, in table order.
func (t *Table) Year(year int) []models.EnrichedRecord {
	idx := t.byYear[year]
	out := make([]models.EnrichedRecord, len(idx))
	for i, j := range idx {
		out[i] = t.Records[j]
	}
	return out
}

// HasYear reports whether any row carries the given year.
func (t *Table) HasYear(year int) bool {
	return len(t.byYear[year]) > 0
}

// HasCountry reports whether the emissions source names this country.
func (t *Table) HasCountry(name string) bool {
	i := sort.SearchStrings(t.CountryDict, name)
	return i < len(t.CountryDict) && t.CountryDict[i] == name
}

// Summary reports table-level counts against the registry size.
func (t *Table) Summary(countries int) models.Summary {
	return models.Summary{
		Countries: countries,
		Records:   len(t.Records),
		Entities:  t.codes,
		Unmatched: t.unmatched,
		Years:     t.Years,
		MaxCO2:    t.MaxCO2,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
