package main

import (
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"co2dash/internal/engine"
	"co2dash/internal/models"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Load both sources and print dataset counts and default filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := engine.Load(cmd.Context(), cfg.Sources())
			if err != nil {
				return err
			}

			out := struct {
				Summary  models.Summary   `json:"summary"`
				Stats    engine.LoadStats `json:"load"`
				Options  models.Options   `json:"options"`
				Defaults models.Defaults  `json:"defaults"`
			}{
				Summary:  ds.Summary(),
				Stats:    ds.Stats,
				Options:  ds.Views.Options(),
				Defaults: ds.Views.Defaults(),
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
