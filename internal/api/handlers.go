package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"co2dash/internal/engine"
	"co2dash/internal/models"
)

type Handler struct {
	data  atomic.Pointer[engine.Dataset]
	cache *viewCache
}

// NewHandler serves data, which may be nil until SetData is called.
func NewHandler(data *engine.Dataset, cacheTTL time.Duration) *Handler {
	h := &Handler{cache: newViewCache(cacheTTL)}
	if data != nil {
		h.data.Store(data)
	}
	return h
}

// SetData installs a freshly loaded dataset and drops cached views.
func (h *Handler) SetData(data *engine.Dataset) {
	h.data.Store(data)
	h.cache.flush()
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.GetHealth)
	api.GET("/summary", h.GetSummary, h.requireData)
	api.GET("/options", h.GetOptions, h.requireData)
	api.GET("/defaults", h.GetDefaults, h.requireData)
	api.GET("/map", h.GetMap, h.requireData)
	api.GET("/trend", h.GetTrend, h.requireData)
	api.GET("/regions", h.GetRegions, h.requireData)
	api.GET("/cumulative", h.GetCumulative, h.requireData)
	api.GET("/geometry", h.GetGeometry, h.requireData)
	api.GET("/export/arrow", h.GetArrow, h.requireData)
}

// requireData answers 503 while the background load is still running.
func (h *Handler) requireData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.data.Load() == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "data is still loading")
		}
		return next(c)
	}
}

// --- HANDLERS ---

func (h *Handler) GetHealth(c echo.Context) error {
	ds := h.data.Load()
	if ds == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"summary": ds.Summary(),
	})
}

func (h *Handler) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.data.Load().Summary())
}

func (h *Handler) GetOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.data.Load().Views.Options())
}

func (h *Handler) GetDefaults(c echo.Context) error {
	return c.JSON(http.StatusOK, h.data.Load().Views.Defaults())
}

// map: ?year=2020&min_co2=0&projection=...&color_scale=...
func (h *Handler) GetMap(c echo.Context) error {
	views := h.data.Load().Views
	defaults := views.Defaults()

	year, err := intParam(c, "year", defaults.MapYear)
	if err != nil {
		return err
	}
	minCO2, err := floatParam(c, "min_co2", 0)
	if err != nil {
		return err
	}
	q := models.MapQuery{
		Year:       year,
		MinCO2:     minCO2,
		Projection: c.QueryParam("projection"),
		ColorScale: c.QueryParam("color_scale"),
	}

	return h.cached(c, cacheKey("map", year, minCO2, q.Projection, q.ColorScale), func() (interface{}, error) {
		return views.AnnualByCountry(q)
	})
}

// trend: ?countries=China,India&from=1900&to=2020 (or repeated country=)
func (h *Handler) GetTrend(c echo.Context) error {
	views := h.data.Load().Views
	defaults := views.Defaults()

	countries := listParam(c, "countries", "country")
	r, err := rangeParams(c, defaults.TrendRange)
	if err != nil {
		return err
	}

	return h.cached(c, cacheKey("trend", countries, r.From, r.To), func() (interface{}, error) {
		return views.TrendByCountries(countries, r)
	})
}

// regions: ?regions=Asia,Europe&from=1900&to=2020
func (h *Handler) GetRegions(c echo.Context) error {
	views := h.data.Load().Views
	defaults := views.Defaults()

	regions := listParam(c, "regions", "region")
	r, err := rangeParams(c, defaults.RegionRange)
	if err != nil {
		return err
	}

	return h.cached(c, cacheKey("regions", regions, r.From, r.To), func() (interface{}, error) {
		return views.RegionTimeSeries(regions, r)
	})
}

// cumulative: ?regions=Asia,Europe&until=2020
func (h *Handler) GetCumulative(c echo.Context) error {
	views := h.data.Load().Views
	defaults := views.Defaults()

	regions := listParam(c, "regions", "region")
	until, err := intParam(c, "until", defaults.CumulativeUntil)
	if err != nil {
		return err
	}

	return h.cached(c, cacheKey("cumulative", regions, until), func() (interface{}, error) {
		return views.CumulativeByRegion(regions, until)
	})
}

func (h *Handler) GetGeometry(c echo.Context) error {
	return c.JSON(http.StatusOK, h.data.Load().Geo.FeatureCollection())
}

func (h *Handler) GetArrow(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/vnd.apache.arrow.stream")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="co2_enriched.arrows"`)
	res.WriteHeader(http.StatusOK)
	return h.data.Load().Table.WriteArrow(res)
}

// cached memoizes a view result and maps filter errors to 400.
func (h *Handler) cached(c echo.Context, key string, build func() (interface{}, error)) error {
	if v, ok := h.cache.get(key); ok {
		return c.JSON(http.StatusOK, v)
	}
	v, err := build()
	if err != nil {
		return filterError(err)
	}
	h.cache.set(key, v)
	return c.JSON(http.StatusOK, v)
}

func filterError(err error) error {
	var ife *engine.InvalidFilterError
	if errors.As(err, &ife) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"error": ife.Reason,
			"field": ife.Field,
		})
	}
	return err
}

// --- PARAMS ---

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"error": "must be an integer",
			"field": name,
		})
	}
	return v, nil
}

func floatParam(c echo.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"error": "must be a finite number",
			"field": name,
		})
	}
	return v, nil
}

func rangeParams(c echo.Context, def models.YearRange) (models.YearRange, error) {
	from, err := intParam(c, "from", def.From)
	if err != nil {
		return models.YearRange{}, err
	}
	to, err := intParam(c, "to", def.To)
	if err != nil {
		return models.YearRange{}, err
	}
	return models.YearRange{From: from, To: to}, nil
}

// listParam merges a comma-separated parameter with a repeated one.
func listParam(c echo.Context, csvName, repeatedName string) []string {
	var out []string
	for _, part := range strings.Split(c.QueryParam(csvName), ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	for _, v := range c.QueryParams()[repeatedName] {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
