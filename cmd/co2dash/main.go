package main

import (
	"fmt"
	"os"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"co2dash/internal/config"
)

var (
	configPath    string
	geometryPath  string
	emissionsPath string
	valueColumn   string
	logLevel      string
	cfg           *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "co2dash",
		Short: "Serve chart-ready views of national CO2 emissions joined with country geometries",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("geometry") {
				cfg.Data.Geometry = geometryPath
			}
			if flags.Changed("emissions") {
				cfg.Data.Emissions = emissionsPath
			}
			if flags.Changed("value-column") {
				cfg.Emissions.ValueColumn = valueColumn
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}

			lvl, err := config.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "co2dash.toml", "Path to configuration file (TOML or YAML)")
	rootCmd.PersistentFlags().StringVar(&geometryPath, "geometry", "", "Country geometry source (.shp or .geojson)")
	rootCmd.PersistentFlags().StringVar(&emissionsPath, "emissions", "", "Emissions table (.csv or .xlsx)")
	rootCmd.PersistentFlags().StringVar(&valueColumn, "value-column", "", `Emissions value column ("first" picks the first non-key column)`)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error, off")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
