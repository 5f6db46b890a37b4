package models

import "github.com/twpayne/go-geom"

// Country is one row of the master geometry table.
type Country struct {
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	Continent          string   `json:"continent,omitempty"`
	PopulationEstimate *float64 `json:"population_estimate"`
	Geometry           geom.T   `json:"-"`
}

// EmissionRecord is a single (country, year) measurement from the emissions source.
type EmissionRecord struct {
	Code    string  `json:"code"`
	Country string  `json:"country"`
	Year    int     `json:"year"`
	CO2     float64 `json:"co2"`
}

// EnrichedRecord is an EmissionRecord joined with its country metadata.
// CO2PerCapita uses a single present-day population estimate for every year.
type EnrichedRecord struct {
	EmissionRecord
	Continent          string   `json:"continent,omitempty"`
	PopulationEstimate *float64 `json:"population_estimate"`
	CO2Cumulative      float64  `json:"co2_cumulative"`
	CO2PerCapita       *float64 `json:"co2_per_capita"`
}

// Reason explains why a view came back empty.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoRecordsForYear  Reason = "NO_RECORDS_FOR_YEAR"
	ReasonAllBelowThreshold Reason = "ALL_BELOW_THRESHOLD"
	ReasonNoRecordsInRange  Reason = "NO_RECORDS_IN_RANGE"
	ReasonNoMatchingRegions Reason = "NO_MATCHING_REGIONS"
)

// YearRange is an inclusive [From, To] interval.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether year lies inside the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

// --- VIEW QUERIES ---

type MapQuery struct {
	Year       int
	MinCO2     float64
	Projection string
	ColorScale string
}

// --- VIEW RESULTS ---

type MapRow struct {
	Code      string  `json:"code"`
	Country   string  `json:"country"`
	Continent string  `json:"continent,omitempty"`
	CO2       float64 `json:"co2"`
}

// MapView feeds the choropleth. NoData lists master codes drawn in the grey
// layer; Unmapped lists result codes that have no geometry.
type MapView struct {
	Year       int        `json:"year"`
	MinCO2     float64    `json:"min_co2"`
	Projection string     `json:"projection"`
	ColorScale string     `json:"color_scale"`
	ColorRange [2]float64 `json:"color_range"`
	Rows       []MapRow   `json:"rows"`
	NoData     []string   `json:"no_data"`
	Unmapped   []string   `json:"unmapped,omitempty"`
	Reason     Reason     `json:"reason,omitempty"`
}

type TrendView struct {
	Countries []string         `json:"countries"`
	Range     YearRange        `json:"range"`
	Rows      []EnrichedRecord `json:"rows"`
	Reason    Reason           `json:"reason,omitempty"`
}

type RegionPoint struct {
	Year      int     `json:"year"`
	Continent string  `json:"continent"`
	CO2       float64 `json:"co2"`
}

type RegionView struct {
	Regions []string      `json:"regions"`
	Range   YearRange     `json:"range"`
	Rows    []RegionPoint `json:"rows"`
	Reason  Reason        `json:"reason,omitempty"`
}

type CumulativeGroup struct {
	Continent string  `json:"continent"`
	Country   string  `json:"country"`
	CO2       float64 `json:"co2"`
	Share     float64 `json:"share"`
}

type CumulativeView struct {
	Regions   []string          `json:"regions"`
	YearLimit int               `json:"year_limit"`
	Total     float64           `json:"total"`
	Groups    []CumulativeGroup `json:"groups"`
	Reason    Reason            `json:"reason,omitempty"`
}

// Options lists the values a UI can offer in its selectors.
type Options struct {
	Countries   []string  `json:"countries"`
	Regions     []string  `json:"regions"`
	Years       YearRange `json:"years"`
	Projections []string  `json:"projections"`
	ColorScales []string  `json:"color_scales"`
}

// Defaults is the initial (and reset) filter state of every chart.
type Defaults struct {
	MapYear         int       `json:"map_year"`
	MinCO2          float64   `json:"min_co2"`
	Projection      string    `json:"projection"`
	ColorScale      string    `json:"color_scale"`
	TrendCountries  []string  `json:"trend_countries"`
	TrendRange      YearRange `json:"trend_range"`
	Regions         []string  `json:"regions"`
	RegionRange     YearRange `json:"region_range"`
	CumulativeUntil int       `json:"cumulative_until"`
}

// Summary describes a loaded dataset.
type Summary struct {
	Countries int       `json:"countries"`
	Records   int       `json:"records"`
	Entities  int       `json:"entities"`
	Unmatched int       `json:"unmatched_records"`
	Years     YearRange `json:"years"`
	MaxCO2    float64   `json:"max_co2"`
}
