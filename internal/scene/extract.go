package scene

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/sentinel-scl/internal/properties"
	"github.com/forest-guardian/sentinel-scl/internal/ui"
	"github.com/klauspost/compress/zip"
)

const (
	archiveSuffix   = ".zip"
	safeSuffix      = ".safe"
	extractedSuffix = "_extracted"
)

// SCLPatterns are tried in order against file base names below the product
// root. The first pattern with a match wins.
var SCLPatterns = []string{
	"*_SCL_20m.jp2",
	"*_SCL_60m.jp2",
	"*_SCL_*.jp2",
}

var (
	ErrProductNotFound = errors.New("product path does not exist")
	ErrInvalidProduct  = errors.New("product must be a .zip archive or a .SAFE directory")
	ErrNoSafeDirectory = errors.New("no .SAFE directory in extracted archive")
	ErrSCLNotFound     = errors.New("SCL file not found")
)

// Extractor locates and decodes the SCL band of a downloaded product.
type Extractor struct {
	// StrictLayout makes an archive without a top-level .SAFE directory an
	// error instead of searching the whole extraction directory.
	StrictLayout bool
}

func NewExtractor() *Extractor {
	return &Extractor{StrictLayout: properties.StrictSafeLayout()}
}

// Extract returns the SCL grid and its metadata for a product archive or
// .SAFE directory. Archives are unpacked next to themselves and left there.
func (e *Extractor) Extract(productPath string) (*Grid, *Metadata, error) {
	root, err := e.ProductRoot(productPath)
	if err != nil {
		return nil, nil, err
	}

	ui.Printf("Searching for SCL file in: %s\n", root)
	sclPath, _, err := FindSCLFile(root)
	if err != nil {
		return nil, nil, err
	}
	ui.Printf("Found SCL file: %s\n", sclPath)

	grid, meta, err := ReadSCL(sclPath)
	if err != nil {
		return nil, nil, err
	}
	ui.Printf("Successfully read SCL data from %s. Shape: (%d, %d)\n", sclPath, grid.Height, grid.Width)
	return grid, meta, nil
}

// ProductRoot resolves the directory to search for the SCL file.
func (e *Extractor) ProductRoot(productPath string) (string, error) {
	info, err := os.Stat(productPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrProductNotFound, productPath)
		}
		return "", err
	}

	lower := strings.ToLower(productPath)
	switch {
	case !info.IsDir() && strings.HasSuffix(lower, archiveSuffix):
		extracted, err := ExtractArchive(productPath)
		if err != nil {
			return "", err
		}
		return e.safeRoot(extracted)
	case info.IsDir() && strings.HasSuffix(strings.TrimRight(lower, `/\`), safeSuffix):
		return productPath, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidProduct, productPath)
	}
}

func (e *Extractor) safeRoot(extracted string) (string, error) {
	entries, err := os.ReadDir(extracted)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), safeSuffix) {
			return filepath.Join(extracted, entry.Name()), nil
		}
	}
	if e.StrictLayout {
		return "", fmt.Errorf("%w: %s", ErrNoSafeDirectory, extracted)
	}
	ui.PrintWarning(fmt.Sprintf("No .SAFE directory found in %s, searching the whole extraction directory", extracted))
	return extracted, nil
}

// ExtractionDir is the sibling directory an archive is unpacked into.
func ExtractionDir(archivePath string) string {
	base := filepath.Base(archivePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(archivePath), base+extractedSuffix)
}

// ExtractArchive unpacks archivePath unless its extraction directory already
// exists, and returns that directory.
func ExtractArchive(archivePath string) (string, error) {
	dest := ExtractionDir(archivePath)
	if _, err := os.Stat(dest); err == nil {
		ui.Printf("Using existing extracted directory: %s\n", dest)
		return dest, nil
	}

	ui.Printf("Extracting %s to %s...\n", archivePath, dest)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create extraction directory: %w", err)
	}
	if err := unzip(archivePath, dest); err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("extract %s: %w", archivePath, err)
	}
	ui.Println("Extraction complete.")
	return dest, nil
}

func unzip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal file path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	slog.Debug("archive extracted", "archive", archivePath, "files", len(r.File))
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FindSCLFile searches root recursively for the SCL raster. It returns the
// first match and the patterns that were evaluated to find it.
func FindSCLFile(root string) (string, []string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	var evaluated []string
	for _, pattern := range SCLPatterns {
		evaluated = append(evaluated, pattern)
		for _, file := range files {
			if ok, _ := filepath.Match(pattern, filepath.Base(file)); ok {
				return file, evaluated, nil
			}
		}
	}
	return "", evaluated, fmt.Errorf("%w in %s using patterns %v", ErrSCLNotFound, root, SCLPatterns)
}
