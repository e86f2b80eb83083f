package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/forest-guardian/sentinel-scl/internal/notification"
	"github.com/forest-guardian/sentinel-scl/internal/scene"
	"github.com/forest-guardian/sentinel-scl/internal/sentinel"
	"github.com/forest-guardian/sentinel-scl/internal/ui"
	"github.com/forest-guardian/sentinel-scl/output"
)

type options struct {
	User          string
	Password      string
	Footprint     string
	DateStart     string
	DateEnd       string
	CloudCover    int
	DownloadPath  string
	OutputVizPath string
	OutputTiff    string
	StatsCSV      string
}

// pipeline runs acquire, extract and render in order. Each stage is a
// failure boundary: its error is reported and the remaining stages are
// skipped.
type pipeline struct {
	newCatalog func(user, password string) sentinel.Catalog
	extract    func(productPath string) (*scene.Grid, *scene.Metadata, error)
	render     func(grid *scene.Grid, meta *scene.Metadata, outputPath string) error
	notify     func(success bool, message string)
}

func newPipeline() *pipeline {
	return &pipeline{
		newCatalog: func(user, password string) sentinel.Catalog {
			return sentinel.NewClient(user, password)
		},
		// built per call so settings loaded from .env after startup apply
		extract: func(productPath string) (*scene.Grid, *scene.Metadata, error) {
			return scene.NewExtractor().Extract(productPath)
		},
		render: output.CreateSCLImage,
		notify: sendNotification,
	}
}

// run reports whether every stage completed.
func (p *pipeline) run(ctx context.Context, opts options) bool {
	if _, err := os.Stat(opts.DownloadPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(opts.DownloadPath, 0o755); err != nil {
			ui.PrintError(fmt.Sprintf("could not create download directory: %v", err))
		} else {
			ui.Printf("Created download directory: %s\n", opts.DownloadPath)
		}
	}

	ui.PrintInfo("Step 1: Downloading Sentinel imagery...")
	productPath := p.acquire(ctx, opts)
	if productPath == "" {
		ui.PrintError("Failed to download Sentinel imagery.")
		ui.Println("Please check your credentials, AOI, date range, and the log output above.")
		p.notify(false, "Failed to download Sentinel imagery.")
		return false
	}
	ui.PrintSuccess(fmt.Sprintf("Successfully downloaded product to: %s", productPath))

	ui.PrintInfo("\nStep 2: Generating Scene Classification (SCL) map...")
	grid, meta, err := p.extract(productPath)
	if err != nil {
		ui.PrintError(err.Error())
		ui.PrintError("Failed to generate SCL map.")
		p.notify(false, fmt.Sprintf("Failed to generate SCL map for %s: %v", productPath, err))
		return false
	}
	ui.PrintSuccess("Successfully generated SCL map data.")
	ui.Printf("SCL data shape: (%d, %d), driver: %s\n", grid.Height, grid.Width, meta.Driver)

	p.writeExtras(grid, meta, opts)

	ui.PrintInfo("\nStep 3: Visualizing SCL map...")
	if err := p.render(grid, meta, opts.OutputVizPath); err != nil {
		slog.Error("render failed", "error", err)
		ui.PrintError("Failed to visualize SCL map.")
		p.notify(false, fmt.Sprintf("Failed to render SCL map: %v", err))
		return false
	}
	if opts.OutputVizPath != "" {
		ui.Printf("Visualization saved to %s\n", opts.OutputVizPath)
	} else {
		ui.Println("Visualization displayed interactively.")
	}

	ui.PrintSuccess("\nProcessing complete.")
	p.notify(true, fmt.Sprintf("SCL map generated from %s", productPath))
	return true
}

func (p *pipeline) acquire(ctx context.Context, opts options) string {
	criteria, err := sentinel.NewCriteria(opts.Footprint, opts.DateStart, opts.DateEnd, opts.CloudCover)
	if err != nil {
		ui.PrintError(err.Error())
		return ""
	}

	path, err := sentinel.Acquire(ctx, p.newCatalog(opts.User, opts.Password), criteria, opts.DownloadPath)
	switch {
	case errors.Is(err, sentinel.ErrNoProducts):
		ui.Println("No products found for the given criteria.")
		return ""
	case err != nil:
		ui.PrintError(err.Error())
		return ""
	}
	return path
}

// writeExtras persists the optional GeoTIFF and class statistics. Failures
// here are reported but do not stop rendering.
func (p *pipeline) writeExtras(grid *scene.Grid, meta *scene.Metadata, opts options) {
	stats := scene.ClassStats(grid)
	for _, s := range stats {
		if s.Pixels > 0 {
			ui.Printf("  %2d %-26s %6.2f%%\n", s.Code, s.Label, s.Percent)
		}
	}

	if opts.OutputTiff != "" {
		if err := scene.WriteGeoTIFF(grid, meta, opts.OutputTiff); err != nil {
			ui.PrintWarning(fmt.Sprintf("could not write GeoTIFF: %v", err))
		} else {
			ui.Printf("SCL GeoTIFF saved to %s\n", opts.OutputTiff)
		}
	}
	if opts.StatsCSV != "" {
		if err := scene.WriteClassStatsCSV(opts.StatsCSV, stats); err != nil {
			ui.PrintWarning(fmt.Sprintf("could not write class statistics: %v", err))
		} else {
			ui.Printf("Class statistics saved to %s\n", opts.StatsCSV)
		}
	}
}

func sendNotification(success bool, message string) {
	send := notification.SendDiscordErrorNotification
	if success {
		send = notification.SendDiscordSuccessNotification
	}
	if err := send(message); err != nil {
		slog.Warn("discord notification failed", "error", err)
	}
}
