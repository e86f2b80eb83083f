package output

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/sentinel-scl/internal/properties"
	"github.com/forest-guardian/sentinel-scl/internal/scene"
	"github.com/forest-guardian/sentinel-scl/internal/ui"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	MapTitle     = "Scene Classification Map (SCL)"
	LegendTitle  = "SCL Classes"
	ColumnLabel  = "Pixel Column"
	RowLabel     = "Pixel Row"
	DefaultSize  = 800
	legendWidth  = 280
	legendRowH   = 22
	marginLeft   = 80
	marginTop    = 60
	marginBottom = 70
	marginRight  = 20
	panelGap     = 30
)

var ErrNotGrid = errors.New("scl data must be a 2-D grid")

// SCLRenderer draws an SCL grid as a categorical map with a class legend.
type SCLRenderer struct {
	// Displayer shows the figure when no output path is given.
	Displayer Displayer
	// MaxSize is the target length in pixels of the longer side of the map.
	MaxSize int
}

func NewSCLRenderer() *SCLRenderer {
	return &SCLRenderer{
		Displayer: SystemViewer{Command: properties.Viewer()},
		MaxSize:   DefaultSize,
	}
}

// CreateSCLImage renders grid and saves it as PNG at outputPath, or shows it
// in the system viewer when outputPath is empty.
func CreateSCLImage(grid *scene.Grid, meta *scene.Metadata, outputPath string) error {
	return NewSCLRenderer().Render(grid, meta, outputPath)
}

// Render draws the map. meta is not used for drawing.
func (r *SCLRenderer) Render(grid *scene.Grid, meta *scene.Metadata, outputPath string) error {
	if !grid.Valid() {
		ui.PrintError(ErrNotGrid.Error() + ".")
		return ErrNotGrid
	}
	if meta != nil {
		slog.Debug("rendering SCL map", "width", grid.Width, "height", grid.Height, "source", meta.SourceDriver)
	}

	face, err := loadFace(14)
	if err != nil {
		ui.PrintError(fmt.Sprintf("failed to load font: %v", err))
		return err
	}
	titleFace, err := loadFace(18)
	if err != nil {
		ui.PrintError(fmt.Sprintf("failed to load font: %v", err))
		return err
	}

	layout := newFigureLayout(grid.Width, grid.Height, r.maxSize())
	// gg has no release API; the surface is dropped when dc goes out of scope
	dc := gg.NewContext(layout.Width, layout.Height)

	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(Upscale(Colorize(grid), layout.Scale), layout.Map.Min.X, layout.Map.Min.Y)
	drawAxes(dc, face, layout, grid.Width, grid.Height)
	drawTitle(dc, titleFace, layout)
	drawLegend(dc, face, titleFace, layout)

	if outputPath != "" {
		if err := dc.SavePNG(outputPath); err != nil {
			ui.PrintError(fmt.Sprintf("failed to save SCL visualization to %s: %v", outputPath, err))
			return fmt.Errorf("failed to save %s: %w", outputPath, err)
		}
		ui.Printf("SCL visualization saved to: %s\n", outputPath)
		return nil
	}
	return r.display(dc)
}

func (r *SCLRenderer) display(dc *gg.Context) error {
	tmp, err := os.CreateTemp("", "scl-*.png")
	if err != nil {
		ui.PrintError(fmt.Sprintf("failed to create preview file: %v", err))
		return err
	}
	path := tmp.Name()
	tmp.Close()

	if err := dc.SavePNG(path); err != nil {
		os.Remove(path)
		ui.PrintError(fmt.Sprintf("failed to save preview: %v", err))
		return err
	}
	if r.Displayer == nil {
		ui.Printf("SCL visualization written to: %s\n", path)
		return nil
	}
	// the viewer owns the preview once it starts
	if err := r.Displayer.Display(path); err != nil {
		os.Remove(path)
		ui.PrintError(fmt.Sprintf("failed to display SCL visualization: %v", err))
		return err
	}
	return nil
}

func (r *SCLRenderer) maxSize() int {
	if r.MaxSize <= 0 {
		return DefaultSize
	}
	return r.MaxSize
}

// Palette lists the SCL colors in code order, so code v maps to Palette()[v].
func Palette() []color.RGBA {
	classes := properties.SortedSCLClasses()
	palette := make([]color.RGBA, len(classes))
	for i, class := range classes {
		palette[i] = class.Color
	}
	return palette
}

// Colorize maps each grid value to its class color. Values without a class
// stay transparent.
func Colorize(grid *scene.Grid) *image.RGBA {
	palette := Palette()
	img := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if v := int(grid.At(x, y)); v < len(palette) {
				img.SetRGBA(x, y, palette[v])
			}
		}
	}
	return img
}

// Upscale enlarges img by an integer factor without interpolation.
func Upscale(img *image.RGBA, scale int) *image.RGBA {
	if scale <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// LegendEntries returns the legend labels in code order.
func LegendEntries() []string {
	classes := properties.SortedSCLClasses()
	entries := make([]string, len(classes))
	for i, class := range classes {
		entries[i] = fmt.Sprintf("%d: %s", class.Code, class.Label)
	}
	return entries
}

type figureLayout struct {
	Width  int
	Height int
	Scale  int
	Map    image.Rectangle
	Legend image.Rectangle
}

func newFigureLayout(width, height, maxSize int) figureLayout {
	scale := maxSize / max(width, height)
	if scale < 1 {
		scale = 1
	}
	mapRect := image.Rect(marginLeft, marginTop, marginLeft+width*scale, marginTop+height*scale)

	legendHeight := 2*legendRowH + properties.SCLClassCount*legendRowH
	legendX := mapRect.Max.X + panelGap
	legendRect := image.Rect(legendX, marginTop, legendX+legendWidth, marginTop+legendHeight)

	return figureLayout{
		Width:  legendRect.Max.X + marginRight,
		Height: max(mapRect.Max.Y, legendRect.Max.Y) + marginBottom,
		Scale:  scale,
		Map:    mapRect,
		Legend: legendRect,
	}
}

func drawTitle(dc *gg.Context, face font.Face, l figureLayout) {
	dc.SetFontFace(face)
	dc.SetRGB(0, 0, 0)
	cx := float64(l.Map.Min.X+l.Map.Max.X) / 2
	dc.DrawStringAnchored(MapTitle, cx, float64(marginTop)/2, 0.5, 0.5)
}

func drawAxes(dc *gg.Context, face font.Face, l figureLayout, width, height int) {
	dc.SetFontFace(face)
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(float64(l.Map.Min.X), float64(l.Map.Min.Y), float64(l.Map.Dx()), float64(l.Map.Dy()))
	dc.Stroke()

	scale := float64(l.Scale)
	for _, col := range ticks(width) {
		x := float64(l.Map.Min.X) + (float64(col)+0.5)*scale
		y := float64(l.Map.Max.Y)
		dc.DrawLine(x, y, x, y+5)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprint(col), x, y+16, 0.5, 0.5)
	}
	for _, row := range ticks(height) {
		x := float64(l.Map.Min.X)
		y := float64(l.Map.Min.Y) + (float64(row)+0.5)*scale
		dc.DrawLine(x-5, y, x, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprint(row), x-8, y, 1, 0.5)
	}

	cx := float64(l.Map.Min.X+l.Map.Max.X) / 2
	dc.DrawStringAnchored(ColumnLabel, cx, float64(l.Map.Max.Y)+42, 0.5, 0.5)

	cy := float64(l.Map.Min.Y+l.Map.Max.Y) / 2
	dc.Push()
	dc.RotateAbout(-math.Pi/2, 20, cy)
	dc.DrawStringAnchored(RowLabel, 20, cy, 0.5, 0.5)
	dc.Pop()
}

func drawLegend(dc *gg.Context, face, titleFace font.Face, l figureLayout) {
	x := float64(l.Legend.Min.X)
	y := float64(l.Legend.Min.Y)

	dc.SetRGB(0.4, 0.4, 0.4)
	dc.DrawRectangle(x, y, float64(l.Legend.Dx()), float64(l.Legend.Dy()))
	dc.Stroke()

	dc.SetFontFace(titleFace)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(LegendTitle, x+float64(l.Legend.Dx())/2, y+legendRowH, 0.5, 0.5)

	dc.SetFontFace(face)
	entries := LegendEntries()
	for i, class := range properties.SortedSCLClasses() {
		rowY := y + float64(2*legendRowH+i*legendRowH)

		dc.SetColor(class.Color)
		dc.DrawRectangle(x+10, rowY-7, 14, 14)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(x+10, rowY-7, 14, 14)
		dc.Stroke()

		dc.DrawStringAnchored(entries[i], x+32, rowY, 0, 0.5)
	}
}

// ticks picks about five evenly spaced pixel indices in [0, n).
func ticks(n int) []int {
	step := niceStep(n)
	var out []int
	for v := 0; v < n; v += step {
		out = append(out, v)
	}
	return out
}

func niceStep(n int) int {
	raw := float64(n) / 5
	if raw <= 1 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			return int(m * mag)
		}
	}
	return int(10 * mag)
}

func loadFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}
