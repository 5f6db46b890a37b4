package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"co2dash/internal/engine"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "export [arrow|geojson]",
		Short:     "Write the enriched table (Arrow IPC stream) or the master geometry (GeoJSON)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"arrow", "geojson"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			if format != "arrow" && format != "geojson" {
				return fmt.Errorf("unknown export format %q", format)
			}

			ds, err := engine.Load(cmd.Context(), cfg.Sources())
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "arrow":
				err = ds.Table.WriteArrow(w)
			case "geojson":
				err = json.NewEncoder(w).Encode(ds.Geo.FeatureCollection())
			}
			if err != nil {
				return fmt.Errorf("writing %s: %w", format, err)
			}
			if output != "" && output != "-" {
				log.Infof("Wrote %s export to %s", format, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
