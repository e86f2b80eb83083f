package scene

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/sentinel-scl/internal/ui"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const granule = "S2A_MSIL2A_20231009T103021_N0509_R108_T31UFU_20231009T134442.SAFE"

func TestMain(m *testing.M) {
	godal.RegisterAll()
	ui.Output = io.Discard
	os.Exit(m.Run())
}

func sampleGrid(width, height int, fill func(x, y int) uint8) *Grid {
	grid := NewGrid(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			grid.Set(x, y, fill(x, y))
		}
	}
	return grid
}

func sampleMeta() *Metadata {
	nodata := 0.0
	gt := [6]float64{600000, 20, 0, 5700000, 0, -20}
	return &Metadata{NoData: &nodata, GeoTransform: &gt}
}

func writeSCL(t *testing.T, path string, grid *Grid) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, WriteGeoTIFF(grid, sampleMeta(), path))
}

// buildSafe lays out a minimal L2A product with 20m and 60m SCL rasters
// holding distinct values.
func buildSafe(t *testing.T, parent string) string {
	t.Helper()
	safe := filepath.Join(parent, granule)
	img := filepath.Join(safe, "GRANULE", "L2A_T31UFU", "IMG_DATA")
	writeSCL(t, filepath.Join(img, "R20m", "T31UFU_20231009T103021_SCL_20m.jp2"),
		sampleGrid(6, 4, func(x, y int) uint8 { return uint8((x + y) % 12) }))
	writeSCL(t, filepath.Join(img, "R60m", "T31UFU_20231009T103021_SCL_60m.jp2"),
		sampleGrid(2, 2, func(int, int) uint8 { return 9 }))
	require.NoError(t, os.WriteFile(filepath.Join(safe, "MTD_MSIL2A.xml"), []byte("<xml/>"), 0o644))
	return safe
}

func zipDir(t *testing.T, src, archive string) {
	t.Helper()
	out, err := os.Create(archive)
	require.NoError(t, err)
	defer out.Close()
	zw := zip.NewWriter(out)
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestExtractFromArchivePrefers20m(t *testing.T) {
	staging := t.TempDir()
	buildSafe(t, staging)
	downloads := t.TempDir()
	archive := filepath.Join(downloads, "S2A_MSIL2A_20231009.zip")
	zipDir(t, staging, archive)

	grid, meta, err := (&Extractor{}).Extract(archive)
	require.NoError(t, err)
	assert.Equal(t, 6, grid.Width)
	assert.Equal(t, 4, grid.Height)
	assert.Equal(t, uint8(0), grid.At(0, 0))
	assert.Equal(t, uint8(8), grid.At(5, 3))

	assert.Equal(t, "GTiff", meta.Driver)
	assert.Equal(t, "uint8", meta.DType)
	assert.Equal(t, 1, meta.Count)
	assert.Equal(t, 6, meta.Width)
	require.NotNil(t, meta.NoData)
	assert.Equal(t, 0.0, *meta.NoData)
	require.NotNil(t, meta.GeoTransform)
	assert.Equal(t, 20.0, meta.GeoTransform[1])

	assert.DirExists(t, filepath.Join(downloads, "S2A_MSIL2A_20231009_extracted", granule))
}

func TestExtractReusesExtractionDirectory(t *testing.T) {
	staging := t.TempDir()
	buildSafe(t, staging)
	archive := filepath.Join(t.TempDir(), "product.zip")
	zipDir(t, staging, archive)

	first, _, err := (&Extractor{}).Extract(archive)
	require.NoError(t, err)

	// a corrupt archive proves the second run never reopens it
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0o644))
	second, _, err := (&Extractor{}).Extract(archive)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractFromSafeDirectory(t *testing.T) {
	safe := buildSafe(t, t.TempDir())

	grid, _, err := (&Extractor{}).Extract(safe)
	require.NoError(t, err)
	assert.Equal(t, 6, grid.Width)
}

func TestExtractIsDeterministic(t *testing.T) {
	safe := buildSafe(t, t.TempDir())

	a, metaA, err := (&Extractor{}).Extract(safe)
	require.NoError(t, err)
	b, metaB, err := (&Extractor{}).Extract(safe)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, metaA, metaB)
}

func TestExtractRejectsMissingAndInvalidPaths(t *testing.T) {
	dir := t.TempDir()

	_, _, err := (&Extractor{}).Extract(filepath.Join(dir, "nope.zip"))
	assert.ErrorIs(t, err, ErrProductNotFound)

	text := filepath.Join(dir, "product.txt")
	require.NoError(t, os.WriteFile(text, []byte("x"), 0o644))
	_, _, err = (&Extractor{}).Extract(text)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	plain := filepath.Join(dir, "folder")
	require.NoError(t, os.Mkdir(plain, 0o755))
	_, _, err = (&Extractor{}).Extract(plain)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestExtractArchiveWithoutSafeDirectory(t *testing.T) {
	staging := t.TempDir()
	writeSCL(t, filepath.Join(staging, "IMG_DATA", "T31UFU_SCL_20m.jp2"),
		sampleGrid(3, 3, func(int, int) uint8 { return 4 }))
	downloads := t.TempDir()
	archive := filepath.Join(downloads, "flat.zip")
	zipDir(t, staging, archive)

	_, _, err := (&Extractor{StrictLayout: true}).Extract(archive)
	assert.ErrorIs(t, err, ErrNoSafeDirectory)

	grid, _, err := (&Extractor{}).Extract(archive)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), grid.At(1, 1))
}

func TestExtractArchiveRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	out, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("../escape.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	_, err = ExtractArchive(archive)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
	assert.NoDirExists(t, ExtractionDir(archive))
}

func TestFindSCLFilePatternOrder(t *testing.T) {
	root := t.TempDir()
	touch := func(rel string) string {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		return path
	}

	_, evaluated, err := FindSCLFile(root)
	assert.ErrorIs(t, err, ErrSCLNotFound)
	assert.Equal(t, SCLPatterns, evaluated)

	generic := touch("R10m/T31UFU_SCL_10m.jp2")
	found, evaluated, err := FindSCLFile(root)
	require.NoError(t, err)
	assert.Equal(t, generic, found)
	assert.Len(t, evaluated, 3)

	sixty := touch("R60m/T31UFU_SCL_60m.jp2")
	found, evaluated, err = FindSCLFile(root)
	require.NoError(t, err)
	assert.Equal(t, sixty, found)
	assert.Equal(t, SCLPatterns[:2], evaluated)

	twenty := touch("R20m/T31UFU_SCL_20m.jp2")
	found, evaluated, err = FindSCLFile(root)
	require.NoError(t, err)
	assert.Equal(t, twenty, found)
	assert.Equal(t, SCLPatterns[:1], evaluated)
}

func TestExtractSCLNotFound(t *testing.T) {
	safe := filepath.Join(t.TempDir(), granule)
	require.NoError(t, os.MkdirAll(filepath.Join(safe, "GRANULE"), 0o755))

	_, _, err := (&Extractor{}).Extract(safe)
	assert.ErrorIs(t, err, ErrSCLNotFound)
}

func TestReadSCLCorruptRaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "T31UFU_SCL_20m.jp2")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, _, err := ReadSCL(path)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestWriteGeoTIFFRoundTrip(t *testing.T) {
	grid := sampleGrid(5, 3, func(x, y int) uint8 { return uint8(x * y) })
	meta := sampleMeta()
	path := filepath.Join(t.TempDir(), "scl.tif")
	require.NoError(t, WriteGeoTIFF(grid, meta, path))

	back, backMeta, err := ReadSCL(path)
	require.NoError(t, err)
	assert.Equal(t, grid.Pix, back.Pix)
	assert.Equal(t, "GTiff", backMeta.SourceDriver)
	assert.Equal(t, "uint8", backMeta.SourceDType)
	assert.Equal(t, *meta.GeoTransform, *backMeta.GeoTransform)
}

func TestWriteGeoTIFFRejectsInvalidGrid(t *testing.T) {
	err := WriteGeoTIFF(&Grid{Width: 2, Height: 2, Pix: []uint8{1}}, nil, filepath.Join(t.TempDir(), "x.tif"))
	assert.Error(t, err)
}
