package scene

import (
	"fmt"
	"os"

	"github.com/forest-guardian/sentinel-scl/internal/properties"
	"github.com/gocarina/gocsv"
)

// OutOfRangeCode marks the row counting pixels outside the SCL legend.
const OutOfRangeCode = -1

type ClassStat struct {
	Code    int     `csv:"code"`
	Label   string  `csv:"label"`
	Pixels  int     `csv:"pixels"`
	Percent float64 `csv:"percent"`
}

// ClassStats counts pixels per SCL class. It always returns one row per class
// in code order followed by an out of range row.
func ClassStats(grid *Grid) []ClassStat {
	var counts [256]int
	total := 0
	if grid.Valid() {
		for _, v := range grid.Pix {
			counts[v]++
		}
		total = len(grid.Pix)
	}

	stats := make([]ClassStat, 0, properties.SCLClassCount+1)
	covered := 0
	for _, class := range properties.SortedSCLClasses() {
		n := counts[class.Code]
		covered += n
		stats = append(stats, ClassStat{
			Code:    int(class.Code),
			Label:   class.Label,
			Pixels:  n,
			Percent: percent(n, total),
		})
	}
	rest := total - covered
	stats = append(stats, ClassStat{
		Code:    OutOfRangeCode,
		Label:   "out_of_range",
		Pixels:  rest,
		Percent: percent(rest, total),
	})
	return stats
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func WriteClassStatsCSV(path string, stats []ClassStat) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&stats, file); err != nil {
		return fmt.Errorf("failed to write class statistics: %w", err)
	}
	return nil
}
