package engine

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"co2dash/internal/models"
)

// Sources locates and describes the two input files.
type Sources struct {
	GeometryPath  string
	EmissionsPath string
	Geo           GeoFields
	Columns       EmissionsColumns
}

// Dataset is everything built at load time. It is read-only afterwards and
// safe to share between concurrent requests.
type Dataset struct {
	Geo   *GeoRegistry
	Table *Table
	Views *ViewBuilder
	Stats LoadStats
}

// Build enriches already-loaded inputs into a Dataset.
func Build(reg *GeoRegistry, records []models.EmissionRecord) *Dataset {
	table := NewTable(Enrich(records, reg))
	return &Dataset{
		Geo:   reg,
		Table: table,
		Views: NewViewBuilder(table, reg),
	}
}

// Load reads both sources concurrently and builds the Dataset. Either
// failure aborts the whole load.
func Load(ctx context.Context, src Sources) (*Dataset, error) {
	start := time.Now()

	var (
		reg     *GeoRegistry
		records []models.EmissionRecord
		stats   LoadStats
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reg, err = LoadGeoRegistry(ctx, src.GeometryPath, src.Geo)
		return err
	})
	g.Go(func() error {
		var err error
		records, stats, err = LoadEmissions(ctx, src.EmissionsPath, src.Columns)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := Build(reg, records)
	ds.Stats = stats

	sum := ds.Summary()
	log.Infof("Dataset ready. Countries: %d, records: %d, unmatched: %d, years: %d-%d. Time: %v",
		sum.Countries, sum.Records, sum.Unmatched, sum.Years.From, sum.Years.To, time.Since(start))
	return ds, nil
}

// Summary reports dataset-level counts.
func (d *Dataset) Summary() models.Summary {
	return d.Table.Summary(d.Geo.Len())
}
