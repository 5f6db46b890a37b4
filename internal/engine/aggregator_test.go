package engine

import (
	"math"
	"strconv"
	"testing"

	"co2dash/internal/models"
)

func rec(code, country, continent string, year int, co2 float64) models.EnrichedRecord {
	return models.EnrichedRecord{
		EmissionRecord: models.EmissionRecord{Code: code, Country: country, Year: year, CO2: co2},
		Continent:      continent,
	}
}

func TestSumByCode(t *testing.T) {
	// Scenario:
	// DEU appears twice in one year (sub-national rows), FRA once, CHN once.
	rows := []models.EnrichedRecord{
		rec("DEU", "Germany", "Europe", 2020, 100),
		rec("FRA", "France", "Europe", 2020, 50),
		rec("DEU", "Germany", "Europe", 2020, 200),
		rec("CHN", "China", "Asia", 2020, 1000),
	}

	out := sumByCode(rows)

	if len(out) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(out))
	}
	// Highest total first
	if out[0].Code != "CHN" || out[1].Code != "DEU" || out[2].Code != "FRA" {
		t.Errorf("Unexpected order: %+v", out)
	}
	if out[1].CO2 != 300 {
		t.Errorf("Expected DEU total 300, got %f", out[1].CO2)
	}
	if out[1].Continent != "Europe" {
		t.Errorf("Continent not carried: %q", out[1].Continent)
	}
}

func TestSumByYearContinent(t *testing.T) {
	rows := []models.EnrichedRecord{
		rec("DEU", "Germany", "Europe", 2001, 10),
		rec("FRA", "France", "Europe", 2001, 5),
		rec("CHN", "China", "Asia", 2001, 7),
		rec("CHN", "China", "Asia", 2000, 3),
	}

	out := sumByYearContinent(rows)

	// (2000, Europe) has no rows and must be absent.
	want := []models.RegionPoint{
		{Year: 2000, Continent: "Asia", CO2: 3},
		{Year: 2001, Continent: "Asia", CO2: 7},
		{Year: 2001, Continent: "Europe", CO2: 15},
	}
	if len(out) != len(want) {
		t.Fatalf("Expected %d points, got %d: %+v", len(want), len(out), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Point %d: expected %+v, got %+v", i, want[i], out[i])
		}
	}
}

func TestSumByContinentCountry(t *testing.T) {
	rows := []models.EnrichedRecord{
		rec("DEU", "Germany", "Europe", 2000, 60),
		rec("DEU", "Germany", "Europe", 2001, 40),
		rec("FRA", "France", "Europe", 2000, 50),
		rec("CHN", "China", "Asia", 2000, 50),
		// Net sink: total is negative, group dropped.
		rec("GAB", "Gabon", "Africa", 2000, -3),
		// Zero total, also dropped.
		rec("NRU", "Nauru", "Oceania", 2000, 0),
	}

	groups, total := sumByContinentCountry(rows)

	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d: %+v", len(groups), groups)
	}
	if total != 200 {
		t.Errorf("Expected total 200, got %f", total)
	}

	// Continent ascending, then CO2 descending.
	if groups[0].Country != "China" || groups[1].Country != "Germany" || groups[2].Country != "France" {
		t.Errorf("Unexpected order: %+v", groups)
	}

	var shares float64
	for _, g := range groups {
		if g.CO2 <= 0 {
			t.Errorf("Non-positive group kept: %+v", g)
		}
		shares += g.Share
	}
	if math.Abs(shares-1) > 1e-9 {
		t.Errorf("Shares should sum to 1, got %f", shares)
	}
	if groups[1].Share != 0.5 {
		t.Errorf("Expected Germany share 0.5, got %f", groups[1].Share)
	}
}

func TestSumByContinentCountryEmpty(t *testing.T) {
	groups, total := sumByContinentCountry(nil)
	if len(groups) != 0 || total != 0 {
		t.Errorf("Expected empty result, got %+v %f", groups, total)
	}
}

func TestSumByContinentCountryDeterministic(t *testing.T) {
	// Many small fractional groups, where summation order shows up in the
	// low bits of the total.
	var rows []models.EnrichedRecord
	for i := 0; i < 200; i++ {
		name := "C" + strconv.Itoa(i)
		rows = append(rows, rec("EUR", name, "Europe", 2000, 0.1*float64(i+1)+1e-7*float64(i%7)))
	}

	wantGroups, wantTotal := sumByContinentCountry(rows)
	for run := 0; run < 50; run++ {
		groups, total := sumByContinentCountry(rows)
		if total != wantTotal {
			t.Fatalf("Run %d: total %v differs from %v", run, total, wantTotal)
		}
		for i := range groups {
			if groups[i] != wantGroups[i] {
				t.Fatalf("Run %d: group %d %+v differs from %+v", run, i, groups[i], wantGroups[i])
			}
		}
	}
}
