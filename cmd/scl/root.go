package main

import (
	"os"

	"github.com/forest-guardian/sentinel-scl/internal/logger"
	"github.com/forest-guardian/sentinel-scl/internal/properties"
	"github.com/forest-guardian/sentinel-scl/internal/ui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd(p *pipeline) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "scl",
		Short: "Download the latest Sentinel-2 L2A product for an area and map its scene classification",
		Long: `scl searches the Copernicus Data Space catalogue for Sentinel-2 Level-2A
products intersecting an area of interest, downloads the most recently ingested
one, extracts its Scene Classification Layer (SCL) and renders it as a
categorical map with a class legend.`,
		Example: `  scl --user me@example.com --password secret \
    --footprint "POLYGON((10 50, 10 50.5, 10.5 50.5, 10.5 50, 10 50))" \
    --date_start 20230101 --date_end 20230110

  # footprint from a GeoJSON file, interactive display
  scl --user me@example.com --password secret --footprint farm.geojson \
    --date_start 20230101 --date_end 20230110 --output_viz_path ""`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return logger.Setup(os.Stderr, properties.LogLevel(), properties.LogFormat())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintBanner("Sentinel SCL")
			p.run(cmd.Context(), opts)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.User, "user", "", "Copernicus Data Space username")
	flags.StringVar(&opts.Password, "password", "", "Copernicus Data Space password")
	flags.StringVar(&opts.Footprint, "footprint", "", "area of interest as a WKT polygon, or a path to a .geojson/.json file")
	flags.StringVar(&opts.DateStart, "date_start", "", "start of the ingestion date range (YYYYMMDD)")
	flags.StringVar(&opts.DateEnd, "date_end", "", "end of the ingestion date range (YYYYMMDD)")
	flags.IntVar(&opts.CloudCover, "cloud_cover", 30, "maximum cloud cover percentage (0-100)")
	flags.StringVar(&opts.DownloadPath, "download_path", "./sentinel_downloads", "directory for downloaded products")
	flags.StringVar(&opts.OutputVizPath, "output_viz_path", "./scl_visualization.png", "PNG output path; empty opens the map in an image viewer")
	flags.StringVar(&opts.OutputTiff, "output_tiff", "", "optional GeoTIFF output path for the SCL grid")
	flags.StringVar(&opts.StatsCSV, "stats_csv", "", "optional CSV output path for per-class pixel statistics")

	for _, name := range []string{"user", "password", "footprint", "date_start", "date_end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
