package engine

import (
	"github.com/twpayne/go-geom"

	"co2dash/internal/models"
)

func f64(v float64) *float64 { return &v }

func square(x, y float64) *geom.MultiPolygon {
	return geom.NewMultiPolygonFlat(geom.XY, []float64{
		x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y,
	}, [][]int{{10}})
}

// testRegistry: USA/CHN/IND with populations, DEU with a zero population,
// ATA with none, and a duplicated FRA where the first row wins.
func testRegistry() *GeoRegistry {
	return NewGeoRegistry([]models.Country{
		{Code: "usa", Name: "United States of America", Continent: "North America", PopulationEstimate: f64(300), Geometry: square(0, 0)},
		{Code: "CHN", Name: "China", Continent: "Asia", PopulationEstimate: f64(1000), Geometry: square(10, 0)},
		{Code: "IND", Name: "India", Continent: "Asia", PopulationEstimate: f64(500), Geometry: square(20, 0)},
		{Code: "FRA", Name: "France", Continent: "Europe", PopulationEstimate: f64(60), Geometry: square(30, 0)},
		{Code: "FRA", Name: "France (overseas)", Continent: "South America", PopulationEstimate: f64(1), Geometry: square(40, 0)},
		{Code: "DEU", Name: "Germany", Continent: "Europe", PopulationEstimate: f64(0), Geometry: square(50, 0)},
		{Code: "ATA", Name: "Antarctica", Continent: "Antarctica", Geometry: square(60, 0)},
	})
}

// testRecords is deliberately out of year order. KOS has no registry row.
func testRecords() []models.EmissionRecord {
	return []models.EmissionRecord{
		{Code: "USA", Country: "United States", Year: 2001, CO2: 150},
		{Code: "USA", Country: "United States", Year: 2000, CO2: 100},
		{Code: "CHN", Country: "China", Year: 2000, CO2: 50},
		{Code: "CHN", Country: "China", Year: 2001, CO2: 80},
		{Code: "IND", Country: "India", Year: 2001, CO2: 20},
		{Code: "FRA", Country: "France", Year: 2000, CO2: 10},
		{Code: "FRA", Country: "France", Year: 2001, CO2: -12},
		{Code: "DEU", Country: "Germany", Year: 2001, CO2: 30},
		{Code: "KOS", Country: "Kosovo", Year: 2001, CO2: 5},
		{Code: "USA", Country: "United States", Year: 1990, CO2: 5},
	}
}

func testDataset() *Dataset {
	return Build(testRegistry(), testRecords())
}
