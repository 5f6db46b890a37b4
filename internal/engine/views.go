package engine

import (
	"math"
	"sort"

	"co2dash/internal/models"
)

const (
	DefaultProjection = "natural earth"
	DefaultColorScale = "Reds"

	defaultMapYear    = 2020
	defaultRangeStart = 1900
)

// Projections and ColorScales are passed through to the renderer; they are
// listed so a UI can offer them.
var (
	Projections = []string{"natural earth", "orthographic", "mercator", "equirectangular"}
	ColorScales = []string{"Reds", "Plasma", "Viridis", "Magma", "Turbo"}

	defaultTrendCountries = []string{"China", "United States", "India", "United Kingdom", "Germany", "Brazil"}
)

// ViewBuilder derives chart-ready slices from an immutable Table and
// GeoRegistry. Every method is a pure function of its arguments.
type ViewBuilder struct {
	table *Table
	geo   *GeoRegistry
}

func NewViewBuilder(table *Table, geo *GeoRegistry) *ViewBuilder {
	return &ViewBuilder{table: table, geo: geo}
}

// AnnualByCountry returns the year's per-country totals at or above MinCO2,
// the master codes with no row (the "no data" layer) and the result codes with
// no geometry.
func (v *ViewBuilder) AnnualByCountry(q models.MapQuery) (*models.MapView, error) {
	if math.IsNaN(q.MinCO2) || math.IsInf(q.MinCO2, 0) {
		return nil, &InvalidFilterError{Field: "min_co2", Reason: "must be a finite number"}
	}
	if q.MinCO2 < 0 {
		return nil, &InvalidFilterError{Field: "min_co2", Reason: "must be non-negative"}
	}
	if q.Projection == "" {
		q.Projection = DefaultProjection
	}
	if q.ColorScale == "" {
		q.ColorScale = DefaultColorScale
	}

	view := &models.MapView{
		Year:       q.Year,
		MinCO2:     q.MinCO2,
		Projection: q.Projection,
		ColorScale: q.ColorScale,
		ColorRange: [2]float64{0, v.table.MaxCO2},
		Rows:       []models.MapRow{},
	}

	yearRows := v.table.Year(q.Year)
	if len(yearRows) == 0 {
		view.Reason = models.ReasonNoRecordsForYear
		view.NoData = sortedCodes(v.geo.Codes())
		return view, nil
	}

	kept := yearRows[:0]
	for _, r := range yearRows {
		if r.CO2 >= q.MinCO2 {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		view.Reason = models.ReasonAllBelowThreshold
		view.NoData = sortedCodes(v.geo.Codes())
		return view, nil
	}

	view.Rows = sumByCode(kept)
	present := make(map[string]struct{}, len(view.Rows))
	for _, r := range view.Rows {
		present[r.Code] = struct{}{}
		if _, ok := v.geo.Lookup(r.Code); !ok {
			view.Unmapped = append(view.Unmapped, r.Code)
		}
	}
	view.NoData = []string{}
	for _, code := range v.geo.Codes() {
		if _, ok := present[code]; !ok {
			view.NoData = append(view.NoData, code)
		}
	}
	sort.Strings(view.NoData)
	sort.Strings(view.Unmapped)
	return view, nil
}

// TrendByCountries returns every row for the named countries inside the
// range, sorted by year then country.
func (v *ViewBuilder) TrendByCountries(countries []string, r models.YearRange) (*models.TrendView, error) {
	if len(countries) == 0 {
		return nil, &InvalidFilterError{Field: "countries", Reason: "select at least one country"}
	}
	if err := validRange(r); err != nil {
		return nil, err
	}

	want := toSet(countries)
	view := &models.TrendView{Countries: sortedKeys(want), Range: r, Rows: []models.EnrichedRecord{}}
	for _, rec := range v.table.Records {
		if _, ok := want[rec.Country]; ok && r.Contains(rec.Year) {
			view.Rows = append(view.Rows, rec)
		}
	}
	sort.SliceStable(view.Rows, func(i, j int) bool {
		if view.Rows[i].Year != view.Rows[j].Year {
			return view.Rows[i].Year < view.Rows[j].Year
		}
		return view.Rows[i].Country < view.Rows[j].Country
	})
	if len(view.Rows) == 0 {
		view.Reason = models.ReasonNoRecordsInRange
	}
	return view, nil
}

// RegionTimeSeries sums CO2 per (year, continent) for the selected
// continents inside the range. The result is sparse.
func (v *ViewBuilder) RegionTimeSeries(regions []string, r models.YearRange) (*models.RegionView, error) {
	if len(regions) == 0 {
		return nil, &InvalidFilterError{Field: "regions", Reason: "select at least one region"}
	}
	if err := validRange(r); err != nil {
		return nil, err
	}

	want := toSet(regions)
	view := &models.RegionView{Regions: sortedKeys(want), Range: r, Rows: []models.RegionPoint{}}
	if !v.anyContinent(want) {
		view.Reason = models.ReasonNoMatchingRegions
		return view, nil
	}

	var rows []models.EnrichedRecord
	for _, rec := range v.table.Records {
		if _, ok := want[rec.Continent]; ok && rec.Continent != "" && r.Contains(rec.Year) {
			rows = append(rows, rec)
		}
	}
	view.Rows = sumByYearContinent(rows)
	if len(view.Rows) == 0 {
		view.Reason = models.ReasonNoRecordsInRange
	}
	return view, nil
}

// CumulativeByRegion sums CO2 per (continent, country) up to and including
// yearLimit. Groups whose total is not positive are excluded.
func (v *ViewBuilder) CumulativeByRegion(regions []string, yearLimit int) (*models.CumulativeView, error) {
	if len(regions) == 0 {
		return nil, &InvalidFilterError{Field: "regions", Reason: "select at least one region"}
	}

	want := toSet(regions)
	view := &models.CumulativeView{Regions: sortedKeys(want), YearLimit: yearLimit, Groups: []models.CumulativeGroup{}}
	if !v.anyContinent(want) {
		view.Reason = models.ReasonNoMatchingRegions
		return view, nil
	}

	var rows []models.EnrichedRecord
	for _, rec := range v.table.Records {
		if _, ok := want[rec.Continent]; ok && rec.Continent != "" && rec.Year <= yearLimit {
			rows = append(rows, rec)
		}
	}
	view.Groups, view.Total = sumByContinentCountry(rows)
	if len(view.Groups) == 0 {
		view.Reason = models.ReasonNoRecordsInRange
	}
	return view, nil
}

// Options lists the selectable countries, regions and years.
func (v *ViewBuilder) Options() models.Options {
	return models.Options{
		Countries:   append([]string(nil), v.table.CountryDict...),
		Regions:     append([]string(nil), v.table.ContinentDict...),
		Years:       v.table.Years,
		Projections: append([]string(nil), Projections...),
		ColorScales: append([]string(nil), ColorScales...),
	}
}

// Defaults is the filter state every chart starts from and resets to.
func (v *ViewBuilder) Defaults() models.Defaults {
	years := v.table.Years
	span := models.YearRange{From: clamp(defaultRangeStart, years), To: years.To}

	var countries []string
	for _, c := range defaultTrendCountries {
		if v.table.HasCountry(c) {
			countries = append(countries, c)
		}
	}

	return models.Defaults{
		MapYear:         clamp(defaultMapYear, years),
		Projection:      DefaultProjection,
		ColorScale:      DefaultColorScale,
		TrendCountries:  countries,
		TrendRange:      span,
		Regions:         append([]string(nil), v.table.ContinentDict...),
		RegionRange:     span,
		CumulativeUntil: years.To,
	}
}

func (v *ViewBuilder) anyContinent(want map[string]struct{}) bool {
	for _, c := range v.table.ContinentDict {
		if _, ok := want[c]; ok {
			return true
		}
	}
	return false
}

func validRange(r models.YearRange) error {
	if r.From > r.To {
		return &InvalidFilterError{Field: "year_range", Reason: "start year is after end year"}
	}
	return nil
}

func clamp(year int, r models.YearRange) int {
	if year < r.From {
		return r.From
	}
	if year > r.To {
		return r.To
	}
	return year
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
