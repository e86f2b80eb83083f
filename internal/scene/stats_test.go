package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassStats(t *testing.T) {
	grid := &Grid{Width: 4, Height: 2, Pix: []uint8{4, 4, 4, 6, 9, 0, 200, 255}}

	stats := ClassStats(grid)
	require.Len(t, stats, 13)
	assert.Equal(t, ClassStat{Code: 4, Label: "Vegetation", Pixels: 3, Percent: 37.5}, stats[4])
	assert.Equal(t, 1, stats[6].Pixels)
	assert.Equal(t, 1, stats[9].Pixels)
	assert.Equal(t, 0, stats[11].Pixels)

	last := stats[12]
	assert.Equal(t, OutOfRangeCode, last.Code)
	assert.Equal(t, 2, last.Pixels)
	assert.Equal(t, 25.0, last.Percent)

	total := 0
	for _, s := range stats {
		total += s.Pixels
	}
	assert.Equal(t, len(grid.Pix), total)
}

func TestClassStatsEmptyGrid(t *testing.T) {
	stats := ClassStats(nil)
	require.Len(t, stats, 13)
	for _, s := range stats {
		assert.Zero(t, s.Pixels)
		assert.Zero(t, s.Percent)
	}
}

func TestWriteClassStatsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	stats := ClassStats(&Grid{Width: 2, Height: 1, Pix: []uint8{6, 6}})
	require.NoError(t, WriteClassStatsCSV(path, stats))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var rows []ClassStat
	require.NoError(t, gocsv.UnmarshalFile(file, &rows))
	require.Len(t, rows, 13)
	assert.Equal(t, "Water", rows[6].Label)
	assert.Equal(t, 100.0, rows[6].Percent)
}
