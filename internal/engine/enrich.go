package engine

import (
	"sort"

	"co2dash/internal/models"
)

// Enrich left-joins emission records to the registry by code and derives the
// per-country running total and per-capita value. Records without a country
// keep an empty continent and a nil population. Output is grouped by code in
// first-seen order and sorted by year inside each group.
//
// Per-capita figures divide by the registry's single population estimate for
// every year, so early years are only an approximation.
func Enrich(records []models.EmissionRecord, reg *GeoRegistry) []models.EnrichedRecord {
	var order []string
	parts := make(map[string][]models.EmissionRecord)
	for _, r := range records {
		if _, seen := parts[r.Code]; !seen {
			order = append(order, r.Code)
		}
		parts[r.Code] = append(parts[r.Code], r)
	}

	out := make([]models.EnrichedRecord, 0, len(records))
	for _, code := range order {
		part := parts[code]
		sort.SliceStable(part, func(i, j int) bool { return part[i].Year < part[j].Year })

		var continent string
		var pop *float64
		if c, ok := reg.Lookup(code); ok {
			continent = c.Continent
			pop = c.PopulationEstimate
		}

		var running float64
		for _, r := range part {
			running += r.CO2
			out = append(out, models.EnrichedRecord{
				EmissionRecord:     r,
				Continent:          continent,
				PopulationEstimate: pop,
				CO2Cumulative:      running,
				CO2PerCapita:       perCapita(r.CO2, pop),
			})
		}
	}
	return out
}

// perCapita is nil when the population is absent or zero.
func perCapita(co2 float64, pop *float64) *float64 {
	if pop == nil || *pop == 0 {
		return nil
	}
	v := co2 / *pop
	return &v
}
