package sentinel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/forest-guardian/sentinel-scl/internal/ui"
)

var (
	// ErrNoProducts means the query matched nothing. It is not a fault.
	ErrNoProducts = errors.New("no products found for the given criteria")
	// ErrDownloadFailed means neither download attempt produced a file.
	ErrDownloadFailed = errors.New("download failed")
)

// Acquire searches the catalog, picks the most recently ingested product and
// downloads it into destDir, returning the local archive path.
//
// The download is attempted at most twice: once with checksum verification
// and, if that does not leave a file on disk, once more without it.
func Acquire(ctx context.Context, catalog Catalog, criteria Criteria, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	if err := catalog.Open(ctx); err != nil {
		return "", err
	}

	entries, err := catalog.Query(ctx, criteria)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoProducts
	}

	product := SelectLatest(entries)
	ui.Printf("Found product: %s\n", product.Title)
	ui.Printf("Ingestion date: %s\n", product.IngestionDate.UTC().Format("2006-01-02T15:04:05Z"))
	ui.Printf("Cloud cover: %.2f%%\n", product.CloudCover)
	slog.Debug("selected product", "id", product.ID, "candidates", len(entries))

	ui.Printf("Downloading product %s...\n", product.ID)
	info, err := catalog.Download(ctx, product, destDir, true)
	if err == nil && exists(info.Path) {
		ui.Printf("Product downloaded to: %s\n", info.Path)
		return info.Path, nil
	}
	if err != nil {
		slog.Warn("verified download failed", "id", product.ID, "error", err)
	}

	ui.PrintWarning(fmt.Sprintf("Failed to download product %s. Attempting download without checksum verification...", product.ID))
	info, err = catalog.Download(ctx, product, destDir, false)
	if err == nil && exists(info.Path) {
		ui.Printf("Product downloaded (without checksum) to: %s\n", info.Path)
		return info.Path, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: product %s: %v", ErrDownloadFailed, product.ID, err)
	}
	return "", fmt.Errorf("%w: product %s: %q does not exist", ErrDownloadFailed, product.ID, info.Path)
}

// SelectLatest returns the entry with the greatest ingestion date. Entries
// with identical dates keep their catalog order, so the earliest listed wins.
func SelectLatest(entries []Entry) Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IngestionDate.After(sorted[j].IngestionDate)
	})
	return sorted[0]
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
