package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"

	"co2dash/internal/engine"
)

// Config holds all user-facing configuration for co2dash.
type Config struct {
	Data      DataConfig      `toml:"data" yaml:"data"`
	Geo       GeoConfig       `toml:"geo" yaml:"geo"`
	Emissions EmissionsConfig `toml:"emissions" yaml:"emissions"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

type DataConfig struct {
	Geometry  string `toml:"geometry" yaml:"geometry"`
	Emissions string `toml:"emissions" yaml:"emissions"`
}

// GeoConfig names the geometry attributes.
type GeoConfig struct {
	CodeField       string `toml:"code_field" yaml:"code_field"`
	NameField       string `toml:"name_field" yaml:"name_field"`
	ContinentField  string `toml:"continent_field" yaml:"continent_field"`
	PopulationField string `toml:"population_field" yaml:"population_field"`
}

// EmissionsConfig names the emissions table headers. An empty ValueColumn
// means "the sole non-key column"; "first" opts into first-in-order.
type EmissionsConfig struct {
	CountryColumn string `toml:"country_column" yaml:"country_column"`
	CodeColumn    string `toml:"code_column" yaml:"code_column"`
	YearColumn    string `toml:"year_column" yaml:"year_column"`
	ValueColumn   string `toml:"value_column" yaml:"value_column"`
}

type ServerConfig struct {
	Host            string   `toml:"host" yaml:"host"`
	Port            int      `toml:"port" yaml:"port"`
	RateLimit       float64  `toml:"rate_limit" yaml:"rate_limit"`
	AllowOrigins    []string `toml:"allow_origins" yaml:"allow_origins"`
	CacheTTLSeconds int      `toml:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	geo := engine.DefaultGeoFields()
	cols := engine.DefaultEmissionsColumns()
	return &Config{
		Data: DataConfig{
			Geometry:  filepath.Join("Data", "ne_50m_admin_0_countries.shp"),
			Emissions: filepath.Join("Data", "annual-co2-emissions-per-country.csv"),
		},
		Geo: GeoConfig{
			CodeField:       geo.Code,
			NameField:       geo.Name,
			ContinentField:  geo.Continent,
			PopulationField: geo.Population,
		},
		Emissions: EmissionsConfig{
			CountryColumn: cols.Country,
			CodeColumn:    cols.Code,
			YearColumn:    cols.Year,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			RateLimit:       20,
			AllowOrigins:    []string{"*"},
			CacheTTLSeconds: 600,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML or YAML config file, picked by extension. If the file
// does not exist, built-in defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(content), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be non-negative")
	}
	if c.Server.CacheTTLSeconds < 0 {
		return fmt.Errorf("server.cache_ttl_seconds must be non-negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Sources maps the data sections onto the engine's loader inputs.
func (c *Config) Sources() engine.Sources {
	return engine.Sources{
		GeometryPath:  c.Data.Geometry,
		EmissionsPath: c.Data.Emissions,
		Geo: engine.GeoFields{
			Code:       c.Geo.CodeField,
			Name:       c.Geo.NameField,
			Continent:  c.Geo.ContinentField,
			Population: c.Geo.PopulationField,
		},
		Columns: engine.EmissionsColumns{
			Country:     c.Emissions.CountryColumn,
			Code:        c.Emissions.CodeColumn,
			Year:        c.Emissions.YearColumn,
			ValueColumn: c.Emissions.ValueColumn,
		},
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ParseLevel maps a level name onto gommon's levels.
func ParseLevel(name string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG, nil
	case "", "info":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
