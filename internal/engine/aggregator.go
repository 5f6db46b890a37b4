package engine

import (
	"sort"

	"co2dash/internal/models"
)

// sumByCode totals one year's rows per code, keeping the first country name
// and continent seen. Rows come back sorted by descending CO2.
func sumByCode(rows []models.EnrichedRecord) []models.MapRow {
	pos := make(map[string]int)
	var out []models.MapRow
	for _, r := range rows {
		i, ok := pos[r.Code]
		if !ok {
			i = len(out)
			pos[r.Code] = i
			out = append(out, models.MapRow{Code: r.Code, Country: r.Country, Continent: r.Continent})
		}
		out[i].CO2 += r.CO2
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CO2 > out[j].CO2 })
	return out
}

type yearContinent struct {
	year      int
	continent string
}

// sumByYearContinent groups rows by (year, continent). Pairs with no
// contributing rows are absent from the output.
func sumByYearContinent(rows []models.EnrichedRecord) []models.RegionPoint {
	totals := make(map[yearContinent]float64)
	for _, r := range rows {
		totals[yearContinent{r.Year, r.Continent}] += r.CO2
	}

	out := make([]models.RegionPoint, 0, len(totals))
	for k, v := range totals {
		out = append(out, models.RegionPoint{Year: k.year, Continent: k.continent, CO2: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Continent < out[j].Continent
	})
	return out
}

type continentCountry struct {
	continent string
	country   string
}

// sumByContinentCountry groups rows by (continent, country) and drops groups
// whose total is not positive. Share is each group's fraction of the kept
// total.
func sumByContinentCountry(rows []models.EnrichedRecord) ([]models.CumulativeGroup, float64) {
	totals := make(map[continentCountry]float64)
	for _, r := range rows {
		totals[continentCountry{r.Continent, r.Country}] += r.CO2
	}

	out := make([]models.CumulativeGroup, 0, len(totals))
	for k, v := range totals {
		if v > 0 {
			out = append(out, models.CumulativeGroup{Continent: k.continent, Country: k.country, CO2: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Continent != out[j].Continent {
			return out[i].Continent < out[j].Continent
		}
		if out[i].CO2 != out[j].CO2 {
			return out[i].CO2 > out[j].CO2
		}
		return out[i].Country < out[j].Country
	})

	// Summed in sorted order so the result does not depend on map iteration.
	var total float64
	for _, g := range out {
		total += g.CO2
	}
	for i := range out {
		out[i].Share = out[i].CO2 / total
	}
	return out, total
}
