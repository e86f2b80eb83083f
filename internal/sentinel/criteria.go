package sentinel

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

// DateLayout is the operator-facing calendar date format.
const DateLayout = "20060102"

const (
	PlatformName   = "SENTINEL-2"
	ProductTypeL2A = "S2MSI2A"
)

var ErrInvalidCriteria = errors.New("invalid search criteria")

// Criteria holds the immutable search filters for one run.
type Criteria struct {
	Footprint     string
	Start         time.Time
	End           time.Time
	MaxCloudCover int
}

// NewCriteria validates operator input. footprint is either a WKT polygon or a
// path to a GeoJSON file. End is extended to the last millisecond of its day.
func NewCriteria(footprint, dateStart, dateEnd string, maxCloudCover int) (Criteria, error) {
	aoi, err := LoadFootprint(footprint)
	if err != nil {
		return Criteria{}, fmt.Errorf("%w: footprint: %v", ErrInvalidCriteria, err)
	}

	start, err := ParseDate(dateStart)
	if err != nil {
		return Criteria{}, fmt.Errorf("%w: date_start: %v", ErrInvalidCriteria, err)
	}
	end, err := ParseDate(dateEnd)
	if err != nil {
		return Criteria{}, fmt.Errorf("%w: date_end: %v", ErrInvalidCriteria, err)
	}
	if end.Before(start) {
		return Criteria{}, fmt.Errorf("%w: date_end %s is before date_start %s", ErrInvalidCriteria, dateEnd, dateStart)
	}

	if maxCloudCover < 0 || maxCloudCover > 100 {
		return Criteria{}, fmt.Errorf("%w: cloud_cover must be between 0 and 100, got %d", ErrInvalidCriteria, maxCloudCover)
	}

	return Criteria{
		Footprint:     aoi,
		Start:         start,
		End:           end.AddDate(0, 0, 1).Add(-time.Millisecond),
		MaxCloudCover: maxCloudCover,
	}, nil
}

func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// NormalizeWKT parses a polygon or multipolygon and re-encodes it.
func NormalizeWKT(value string) (string, error) {
	geom, err := wkt.Unmarshal(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("failed to parse WKT: %w", err)
	}
	return normalizeGeometry(geom)
}

func normalizeGeometry(geom orb.Geometry) (string, error) {
	switch geom.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return "", fmt.Errorf("footprint must be a polygon, got %s", geom.GeoJSONType())
	}
	if math.Abs(planar.Area(geom)) == 0 {
		return "", errors.New("footprint has no area")
	}
	return wkt.MarshalString(geom), nil
}
