package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2dash/internal/models"
)

func TestAnnualByCountry(t *testing.T) {
	v := testDataset().Views

	view, err := v.AnnualByCountry(models.MapQuery{Year: 2001})
	require.NoError(t, err)
	assert.Empty(t, view.Reason)
	assert.Equal(t, DefaultProjection, view.Projection)
	assert.Equal(t, DefaultColorScale, view.ColorScale)
	assert.Equal(t, [2]float64{0, 150}, view.ColorRange)

	var codes []string
	for _, r := range view.Rows {
		codes = append(codes, r.Code)
		assert.GreaterOrEqual(t, r.CO2, 0.0)
	}
	assert.Equal(t, []string{"USA", "CHN", "DEU", "IND", "KOS"}, codes, "FRA is a net sink in 2001")
	assert.Equal(t, []string{"ATA", "FRA"}, view.NoData)
	assert.Equal(t, []string{"KOS"}, view.Unmapped)
}

func TestAnnualByCountryThreshold(t *testing.T) {
	v := testDataset().Views

	view, err := v.AnnualByCountry(models.MapQuery{Year: 2001, MinCO2: 80})
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "USA", view.Rows[0].Code)
	assert.Equal(t, "CHN", view.Rows[1].Code)
	assert.Contains(t, view.NoData, "DEU")

	// The year exists but everything is filtered out.
	view, err = v.AnnualByCountry(models.MapQuery{Year: 2001, MinCO2: 1000})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonAllBelowThreshold, view.Reason)
	assert.Empty(t, view.Rows)
	assert.Len(t, view.NoData, 6)

	// The year itself has no rows.
	view, err = v.AnnualByCountry(models.MapQuery{Year: 1995})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoRecordsForYear, view.Reason)
	assert.NotNil(t, view.Rows)
	assert.Equal(t, []string{"ATA", "CHN", "DEU", "FRA", "IND", "USA"}, view.NoData)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = v.AnnualByCountry(models.MapQuery{Year: 2001, MinCO2: bad})
		assert.True(t, IsInvalidFilter(err), "min_co2=%v", bad)
	}
}

func TestAnnualByCountryKeepsPassThroughOptions(t *testing.T) {
	view, err := testDataset().Views.AnnualByCountry(models.MapQuery{Year: 2000, Projection: "orthographic", ColorScale: "Viridis"})
	require.NoError(t, err)
	assert.Equal(t, "orthographic", view.Projection)
	assert.Equal(t, "Viridis", view.ColorScale)
}

func TestTrendByCountries(t *testing.T) {
	v := testDataset().Views

	view, err := v.TrendByCountries([]string{"United States", "China"}, models.YearRange{From: 2000, To: 2001})
	require.NoError(t, err)
	assert.Empty(t, view.Reason)
	assert.Equal(t, []string{"China", "United States"}, view.Countries)

	require.Len(t, view.Rows, 4)
	got := make([][2]interface{}, len(view.Rows))
	for i, r := range view.Rows {
		got[i] = [2]interface{}{r.Year, r.Country}
	}
	assert.Equal(t, [][2]interface{}{
		{2000, "China"}, {2000, "United States"},
		{2001, "China"}, {2001, "United States"},
	}, got)
	assert.Equal(t, 255.0, view.Rows[3].CO2Cumulative, "cumulative counts years before the range")

	view, err = v.TrendByCountries([]string{"China"}, models.YearRange{From: 1950, To: 1960})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoRecordsInRange, view.Reason)
	assert.NotNil(t, view.Rows)
}

func TestTrendByCountriesInvalid(t *testing.T) {
	v := testDataset().Views

	_, err := v.TrendByCountries(nil, models.YearRange{From: 2000, To: 2001})
	require.Error(t, err)
	var ife *InvalidFilterError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "countries", ife.Field)

	_, err = v.TrendByCountries([]string{"China"}, models.YearRange{From: 2001, To: 2000})
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "year_range", ife.Field)
}

func TestRegionTimeSeries(t *testing.T) {
	ds := testDataset()
	r := models.YearRange{From: 2000, To: 2001}

	view, err := ds.Views.RegionTimeSeries([]string{"Asia", "Europe"}, r)
	require.NoError(t, err)
	assert.Equal(t, []models.RegionPoint{
		{Year: 2000, Continent: "Asia", CO2: 50},
		{Year: 2000, Continent: "Europe", CO2: 10},
		{Year: 2001, Continent: "Asia", CO2: 100},
		{Year: 2001, Continent: "Europe", CO2: 18},
	}, view.Rows)

	// Every point equals the sum of the rows it covers.
	for _, p := range view.Rows {
		var sum float64
		for _, rec := range ds.Table.Records {
			if rec.Year == p.Year && rec.Continent == p.Continent {
				sum += rec.CO2
			}
		}
		assert.Equal(t, sum, p.CO2, "%d %s", p.Year, p.Continent)
	}
}

func TestRegionTimeSeriesEmptyStates(t *testing.T) {
	v := testDataset().Views

	view, err := v.RegionTimeSeries([]string{"Atlantis"}, models.YearRange{From: 2000, To: 2001})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoMatchingRegions, view.Reason)

	// Antarctica is in the registry but has no emission rows.
	view, err = v.RegionTimeSeries([]string{"Antarctica"}, models.YearRange{From: 2000, To: 2001})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoMatchingRegions, view.Reason)

	view, err = v.RegionTimeSeries([]string{"Asia"}, models.YearRange{From: 1990, To: 1995})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoRecordsInRange, view.Reason)
	assert.Empty(t, view.Rows)

	_, err = v.RegionTimeSeries([]string{}, models.YearRange{From: 2000, To: 2001})
	assert.True(t, IsInvalidFilter(err))

	_, err = v.RegionTimeSeries([]string{"Asia"}, models.YearRange{From: 2002, To: 2001})
	assert.True(t, IsInvalidFilter(err))
}

func TestCumulativeByRegion(t *testing.T) {
	v := testDataset().Views

	view, err := v.CumulativeByRegion([]string{"Asia", "Europe", "North America"}, 2001)
	require.NoError(t, err)
	assert.Empty(t, view.Reason)
	assert.Equal(t, 435.0, view.Total)

	require.Len(t, view.Groups, 4, "France nets to -2 and is dropped")
	assert.Equal(t, "China", view.Groups[0].Country)
	assert.Equal(t, 130.0, view.Groups[0].CO2)
	assert.Equal(t, "India", view.Groups[1].Country)
	assert.Equal(t, "Germany", view.Groups[2].Country)
	assert.Equal(t, "United States", view.Groups[3].Country)
	assert.Equal(t, 255.0, view.Groups[3].CO2)

	var shares float64
	for _, g := range view.Groups {
		assert.Positive(t, g.CO2)
		shares += g.Share
	}
	assert.InDelta(t, 1.0, shares, 1e-9)
}

func TestCumulativeByRegionYearLimit(t *testing.T) {
	v := testDataset().Views

	view, err := v.CumulativeByRegion([]string{"Asia", "Europe", "North America"}, 2000)
	require.NoError(t, err)
	assert.Equal(t, 165.0, view.Total)
	assert.Len(t, view.Groups, 3)

	view, err = v.CumulativeByRegion([]string{"Asia"}, 1980)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoRecordsInRange, view.Reason)
	assert.Zero(t, view.Total)

	view, err = v.CumulativeByRegion([]string{"Atlantis"}, 2001)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoMatchingRegions, view.Reason)

	_, err = v.CumulativeByRegion(nil, 2001)
	assert.True(t, IsInvalidFilter(err))
}

func TestOptions(t *testing.T) {
	opts := testDataset().Views.Options()

	assert.Equal(t, []string{"China", "France", "Germany", "India", "Kosovo", "United States"}, opts.Countries)
	assert.Equal(t, []string{"Asia", "Europe", "North America"}, opts.Regions)
	assert.Equal(t, models.YearRange{From: 1990, To: 2001}, opts.Years)
	assert.Contains(t, opts.Projections, DefaultProjection)
	assert.Contains(t, opts.ColorScales, DefaultColorScale)
}

func TestDefaults(t *testing.T) {
	v := testDataset().Views
	d := v.Defaults()

	assert.Equal(t, 2001, d.MapYear, "2020 is clamped to the last year")
	assert.Zero(t, d.MinCO2)
	assert.Equal(t, []string{"China", "United States", "India", "Germany"}, d.TrendCountries)
	assert.Equal(t, models.YearRange{From: 1990, To: 2001}, d.TrendRange)
	assert.Equal(t, d.TrendRange, d.RegionRange)
	assert.Equal(t, []string{"Asia", "Europe", "North America"}, d.Regions)
	assert.Equal(t, 2001, d.CumulativeUntil)

	// Defaults always produce a valid query.
	_, err := v.AnnualByCountry(models.MapQuery{Year: d.MapYear, MinCO2: d.MinCO2, Projection: d.Projection, ColorScale: d.ColorScale})
	require.NoError(t, err)
	_, err = v.TrendByCountries(d.TrendCountries, d.TrendRange)
	require.NoError(t, err)
	_, err = v.RegionTimeSeries(d.Regions, d.RegionRange)
	require.NoError(t, err)
	_, err = v.CumulativeByRegion(d.Regions, d.CumulativeUntil)
	require.NoError(t, err)
}

func TestViewsDoNotMutateTable(t *testing.T) {
	ds := testDataset()
	before := append([]models.EnrichedRecord(nil), ds.Table.Records...)

	_, _ = ds.Views.AnnualByCountry(models.MapQuery{Year: 2001, MinCO2: 50})
	_, _ = ds.Views.TrendByCountries([]string{"China"}, models.YearRange{From: 1990, To: 2001})
	_, _ = ds.Views.RegionTimeSeries([]string{"Asia"}, models.YearRange{From: 1990, To: 2001})
	_, _ = ds.Views.CumulativeByRegion([]string{"Asia"}, 2001)

	assert.Equal(t, before, ds.Table.Records)
}
