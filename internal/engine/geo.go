package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jonas-p/go-shp"
	"github.com/labstack/gommon/log"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"co2dash/internal/models"
)

// GeoFields names the attributes read from each geometry feature.
type GeoFields struct {
	Code       string
	Name       string
	Continent  string
	Population string
}

// DefaultGeoFields matches the Natural Earth admin-0 countries layer.
func DefaultGeoFields() GeoFields {
	return GeoFields{Code: "ISO_A3", Name: "NAME", Continent: "CONTINENT", Population: "POP_EST"}
}

// GeoRegistry is the master geometry table: one Country per ISO3 code, in
// first-seen order. It is immutable once built.
type GeoRegistry struct {
	countries []models.Country
	index     map[string]int
}

// NewGeoRegistry normalizes codes and keeps the first Country seen for each.
// Countries whose normalized code is not ISO3 length are skipped.
func NewGeoRegistry(countries []models.Country) *GeoRegistry {
	g := &GeoRegistry{index: make(map[string]int, len(countries))}
	for _, c := range countries {
		c.Code = NormalizeCode(c.Code)
		if !ValidCode(c.Code) {
			continue
		}
		if _, dup := g.index[c.Code]; dup {
			continue
		}
		if c.PopulationEstimate != nil && *c.PopulationEstimate < 0 {
			c.PopulationEstimate = nil
		}
		g.index[c.Code] = len(g.countries)
		g.countries = append(g.countries, c)
	}
	return g
}

// Len returns the number of countries.
func (g *GeoRegistry) Len() int { return len(g.countries) }

// Lookup returns the country for a normalized code.
func (g *GeoRegistry) Lookup(code string) (models.Country, bool) {
	i, ok := g.index[code]
	if !ok {
		return models.Country{}, false
	}
	return g.countries[i], true
}

// Codes returns every code in first-seen order.
func (g *GeoRegistry) Codes() []string {
	out := make([]string, len(g.countries))
	for i, c := range g.countries {
		out[i] = c.Code
	}
	return out
}

// Countries returns a copy of the master rows.
func (g *GeoRegistry) Countries() []models.Country {
	return append([]models.Country(nil), g.countries...)
}

// Bounds returns the extent of every geometry, or nil when none is set.
func (g *GeoRegistry) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, c := range g.countries {
		if c.Geometry == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(geom.XY)
		}
		b.Extend(c.Geometry)
	}
	return b
}

// FeatureCollection renders the registry as GeoJSON keyed by code, the shape a
// choropleth renderer matches its `locations` against. Countries without a
// geometry are left out.
func (g *GeoRegistry) FeatureCollection() *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		BBox:     g.Bounds(),
		Features: make([]*geojson.Feature, 0, len(g.countries)),
	}
	for _, c := range g.countries {
		if c.Geometry == nil {
			continue
		}
		props := map[string]interface{}{"name": c.Name}
		if c.Continent != "" {
			props["continent"] = c.Continent
		}
		if c.PopulationEstimate != nil {
			props["population_estimate"] = *c.PopulationEstimate
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         c.Code,
			Geometry:   c.Geometry,
			Properties: props,
		})
	}
	return fc
}

// LoadGeoRegistry reads a shapefile or a GeoJSON FeatureCollection, picked by
// file extension.
func LoadGeoRegistry(ctx context.Context, path string, fields GeoFields) (*GeoRegistry, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, sourceErr(path, "stat", err)
	}

	var (
		countries []models.Country
		err       error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		countries, err = readShapefile(path, fields)
	case ".geojson", ".json":
		countries, err = readGeoJSON(path, fields)
	default:
		err = sourceErr(path, "detect format", fmt.Errorf("unsupported geometry extension %q", ext))
	}
	if err != nil {
		return nil, err
	}

	g := NewGeoRegistry(countries)
	log.Infof("Geometry loaded. Features: %d, countries: %d. Time: %v", len(countries), g.Len(), time.Since(start))
	return g, nil
}

func readGeoJSON(path string, fields GeoFields) ([]models.Country, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, sourceErr(path, "read", err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(content, &fc); err != nil {
		return nil, sourceErr(path, "decode geojson", err)
	}

	out := make([]models.Country, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := foldKeys(f.Properties)
		out = append(out, models.Country{
			Code:               propString(props, fields.Code),
			Name:               propString(props, fields.Name),
			Continent:          propString(props, fields.Continent),
			PopulationEstimate: propFloat(props, fields.Population),
			Geometry:           f.Geometry,
		})
	}
	return out, nil
}

func readShapefile(path string, fields GeoFields) ([]models.Country, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, sourceErr(path, "open shapefile", err)
	}
	defer r.Close()

	// Attribute columns by folded name.
	cols := make(map[string]int)
	for i, f := range r.Fields() {
		cols[normalizeHeader(f.String())] = i
	}
	codeIdx, ok := cols[normalizeHeader(fields.Code)]
	if !ok {
		return nil, sourceErr(path, "read attributes", fmt.Errorf("missing code field %q", fields.Code))
	}
	attr := func(row int, name string) string {
		i, ok := cols[normalizeHeader(name)]
		if !ok {
			return ""
		}
		return dbfValue(r.ReadAttribute(row, i))
	}

	var out []models.Country
	for r.Next() {
		n, shape := r.Shape()
		g, err := shapeGeometry(shape)
		if err != nil {
			return nil, sourceErr(path, fmt.Sprintf("read shape %d", n), err)
		}
		out = append(out, models.Country{
			Code:               dbfValue(r.ReadAttribute(n, codeIdx)),
			Name:               attr(n, fields.Name),
			Continent:          attr(n, fields.Continent),
			PopulationEstimate: parsePopulation(attr(n, fields.Population)),
			Geometry:           g,
		})
	}
	if err := r.Err(); err != nil {
		return nil, sourceErr(path, "read shapes", err)
	}
	return out, nil
}

// dbfValue strips the space and NUL padding of a fixed-width DBF field.
func dbfValue(s string) string {
	return strings.Trim(s, " \x00")
}

// shapeGeometry converts a shapefile polygon into a go-geom MultiPolygon.
// Rings are grouped by winding: a clockwise ring starts a new polygon and
// counter-clockwise rings are holes of the current one.
func shapeGeometry(s shp.Shape) (geom.T, error) {
	var parts []int32
	var points []shp.Point
	switch p := s.(type) {
	case *shp.Polygon:
		parts, points = p.Parts, p.Points
	case *shp.PolygonZ:
		parts, points = p.Parts, p.Points
	case *shp.PolygonM:
		parts, points = p.Parts, p.Points
	case *shp.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", s)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var rings [][]geom.Coord
	flush := func() error {
		if len(rings) == 0 {
			return nil
		}
		poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
		if err != nil {
			return err
		}
		rings = nil
		return mp.Push(poly)
	}

	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		if signedArea(ring) <= 0 || len(rings) == 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		rings = append(rings, ring)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return mp, nil
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var a float64
	for i := 0; i+1 < len(ring); i++ {
		a += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return a / 2
}

func foldKeys(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[normalizeHeader(k)] = v
	}
	return out
}

func propString(props map[string]interface{}, name string) string {
	switch v := props[normalizeHeader(name)].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func propFloat(props map[string]interface{}, name string) *float64 {
	switch v := props[normalizeHeader(name)].(type) {
	case float64:
		if v < 0 {
			return nil
		}
		return &v
	case int:
		if v < 0 {
			return nil
		}
		f := float64(v)
		return &f
	case string:
		return parsePopulation(v)
	default:
		return nil
	}
}

func parsePopulation(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// sortedCodes returns a sorted copy.
func sortedCodes(codes []string) []string {
	out := append([]string(nil), codes...)
	sort.Strings(out)
	return out
}
