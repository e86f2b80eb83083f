package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/airbusgeo/godal"
)

const (
	OutputDriver = "GTiff"
	OutputDType  = "uint8"
)

var ErrDecode = errors.New("failed to decode SCL raster")

// Grid is a row-major single band raster of SCL class codes.
type Grid struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Valid reports whether the grid is two dimensional and its buffer matches
// its dimensions.
func (g *Grid) Valid() bool {
	return g != nil && g.Width > 0 && g.Height > 0 && len(g.Pix) == g.Width*g.Height
}

func (g *Grid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

func (g *Grid) Set(x, y int, v uint8) {
	g.Pix[y*g.Width+x] = v
}

// Metadata describes how a grid should be persisted as a GeoTIFF.
type Metadata struct {
	Driver       string
	SourceDriver string
	SourceDType  string
	Width        int
	Height       int
	Count        int
	DType        string
	NoData       *float64
	GeoTransform *[6]float64
	Projection   string
}

func openOptions() godal.OpenOption {
	return godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	})
}

// ReadSCL decodes the first band of the raster at path.
func ReadSCL(path string) (*Grid, *Metadata, error) {
	ds, err := godal.Open(path, openOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.NBands < 1 || structure.SizeX < 1 || structure.SizeY < 1 {
		return nil, nil, fmt.Errorf("%w: %s has no raster band", ErrDecode, path)
	}

	band := ds.Bands()[0]
	grid := NewGrid(structure.SizeX, structure.SizeY)
	if err := band.Read(0, 0, grid.Pix, grid.Width, grid.Height); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	meta := &Metadata{
		Driver:       OutputDriver,
		SourceDriver: ds.Driver().ShortName(),
		SourceDType:  dtypeName(band.Structure().DataType),
		Width:        grid.Width,
		Height:       grid.Height,
		Count:        1,
		DType:        OutputDType,
		Projection:   ds.Projection(),
	}
	if nd, ok := band.NoData(); ok {
		meta.NoData = &nd
	}
	if gt, err := ds.GeoTransform(); err == nil {
		meta.GeoTransform = &gt
	}

	slog.Debug("decoded SCL raster", "path", path, "driver", meta.SourceDriver, "width", grid.Width, "height", grid.Height)
	return grid, meta, nil
}

// WriteGeoTIFF persists grid as a single band byte GeoTIFF using the
// georeferencing carried by meta.
func WriteGeoTIFF(grid *Grid, meta *Metadata, path string) (err error) {
	if !grid.Valid() {
		return fmt.Errorf("cannot write %s: invalid grid", path)
	}

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, grid.Width, grid.Height,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	band := ds.Bands()[0]
	if meta != nil {
		if meta.GeoTransform != nil {
			if err := ds.SetGeoTransform(*meta.GeoTransform); err != nil {
				return fmt.Errorf("failed to set geotransform: %w", err)
			}
		}
		if meta.Projection != "" {
			if err := ds.SetProjection(meta.Projection); err != nil {
				return fmt.Errorf("failed to set projection: %w", err)
			}
		}
		if meta.NoData != nil {
			if err := band.SetNoData(*meta.NoData); err != nil {
				return fmt.Errorf("failed to set nodata: %w", err)
			}
		}
	}

	if err := band.Write(0, 0, grid.Pix, grid.Width, grid.Height); err != nil {
		return fmt.Errorf("failed to write raster data: %w", err)
	}
	return nil
}

func dtypeName(dt godal.DataType) string {
	switch dt {
	case godal.Byte:
		return "uint8"
	case godal.UInt16:
		return "uint16"
	case godal.Int16:
		return "int16"
	case godal.UInt32:
		return "uint32"
	case godal.Int32:
		return "int32"
	case godal.Float32:
		return "float32"
	case godal.Float64:
		return "float64"
	default:
		return "unknown"
	}
}
