package sentinel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadFootprint returns the WKT of an area of interest given either inline WKT
// or a path to a .geojson/.json file.
func LoadFootprint(value string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(value)))
	if ext == ".geojson" || ext == ".json" {
		return FootprintFromGeoJSON(value)
	}
	return NormalizeWKT(value)
}

// FootprintFromGeoJSON reads a FeatureCollection, Feature or bare geometry and
// converts the first polygon geometry it finds to WKT.
func FootprintFromGeoJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	geom, err := firstGeometry(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return normalizeGeometry(geom)
}

func firstGeometry(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		for _, f := range fc.Features {
			if f.Geometry != nil {
				return f.Geometry, nil
			}
		}
		return nil, errors.New("feature collection has no geometry")
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		if f.Geometry == nil {
			return nil, errors.New("feature has no geometry")
		}
		return f.Geometry, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		return g.Geometry(), nil
	}
}
