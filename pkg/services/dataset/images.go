package dataset

import (
	"context"
	"image"
	"math"
	"os"

	// Decoder registrations for the formats the walker inventories.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

// analysisGrid bounds the pixels sampled per image. Large images are
// read on a stride so the pass costs the same regardless of resolution.
const analysisGrid = 128

// imageStats is the product of the pixel pass.
type imageStats struct {
	brightness Accumulator // per-image brightness credit, 0..100
	contrast   Accumulator // per-image contrast credit, 0..100
	sharpness  Accumulator // per-image laplacian variance, raw
	resolution Accumulator // per-image resolution credit, 0..1
	lowQuality int64
	decoded    int64
	corrupt    int64
	attempted  int64
}

func (s *imageStats) merge(b imageStats) {
	s.brightness.Merge(b.brightness)
	s.contrast.Merge(b.contrast)
	s.sharpness.Merge(b.sharpness)
	s.resolution.Merge(b.resolution)
	s.lowQuality += b.lowQuality
	s.decoded += b.decoded
	s.corrupt += b.corrupt
	s.attempted += b.attempted
}

// analyzeImages decodes pixels and measures sharpness, brightness,
// contrast and resolution per image. Quick mode decodes a fixed stride
// sample and takes the corrupt ratio from the header pass, which already
// touched every file.
func analyzeImages(ctx context.Context, inv *Inventory, settings Settings, headers *headerStats) (*imageStats, error) {
	files := inv.Images
	if settings.Quick {
		files = sampled(files, settings)
	}

	partials, err := parallelFold(ctx, files, settings.Workers, func(ctx context.Context, chunk []FileRef) (imageStats, error) {
		var part imageStats
		for _, ref := range chunk {
			if err := ctx.Err(); err != nil {
				return part, err
			}
			part.attempted++
			m, ok := analyzeOneImage(ref, settings)
			if !ok {
				part.corrupt++
				continue
			}
			part.decoded++
			part.brightness.Add(m.brightnessCredit)
			part.contrast.Add(m.contrastCredit)
			part.sharpness.Add(m.sharpnessVar)
			part.resolution.Add(m.resolutionCredit)
			if m.lowQuality {
				part.lowQuality++
			}
		}
		return part, nil
	})
	if err != nil {
		return nil, err
	}

	total := &imageStats{}
	for _, p := range partials {
		total.merge(p)
	}
	if settings.Quick && headers != nil && headers.total > 0 {
		total.corrupt = headers.unreadable
		total.attempted = headers.total
	}
	if total.attempted == 0 {
		return nil, &domain.DataUnavailableError{
			Dimension: domain.DimImageQuality,
			Reason:    "the dataset holds no image files to measure",
		}
	}
	return total, nil
}

type perImage struct {
	brightnessCredit float64
	contrastCredit   float64
	sharpnessVar     float64
	resolutionCredit float64
	lowQuality       bool
}

func analyzeOneImage(ref FileRef, settings Settings) (perImage, bool) {
	f, err := os.Open(ref.Path)
	if err != nil {
		return perImage{}, false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return perImage{}, false
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return perImage{}, false
	}

	grid := lumaGrid(img)
	var luma Accumulator
	for _, row := range grid {
		for _, v := range row {
			luma.Add(v)
		}
	}

	out := perImage{
		sharpnessVar:     laplacianVariance(grid),
		resolutionCredit: clamp01(float64(min(w, h)) / float64(settings.TargetMinSide)),
	}
	mean := luma.Mean()
	out.brightnessCredit = clamp01(1-math.Abs(mean-127.5)/127.5) * 100
	out.contrastCredit = clamp01(luma.StdDev()/64) * 100
	out.lowQuality = out.sharpnessVar < settings.MinSharpness ||
		mean < settings.BrightnessFloor ||
		mean > settings.BrightnessCeil ||
		min(w, h) < settings.TargetMinSide/2
	return out, true
}

// lumaGrid samples the image on a fixed stride and converts to a 0..255
// luminance plane.
func lumaGrid(img image.Image) [][]float64 {
	b := img.Bounds()
	strideX := max(1, b.Dx()/analysisGrid)
	strideY := max(1, b.Dy()/analysisGrid)

	var grid [][]float64
	for y := b.Min.Y; y < b.Max.Y; y += strideY {
		var row []float64
		for x := b.Min.X; x < b.Max.X; x += strideX {
			r, g, bl, _ := img.At(x, y).RGBA()
			l := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			row = append(row, l/257.0)
		}
		grid = append(grid, row)
	}
	return grid
}

// laplacianVariance is the classic blur measure: the variance of the
// 4-neighbour laplacian over the luminance plane. Sharp images produce
// strong edge responses and a high variance.
func laplacianVariance(grid [][]float64) float64 {
	rows := len(grid)
	if rows < 3 {
		return 0
	}
	cols := len(grid[0])
	if cols < 3 {
		return 0
	}

	var acc Accumulator
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			lap := 4*grid[y][x] - grid[y-1][x] - grid[y+1][x] - grid[y][x-1] - grid[y][x+1]
			acc.Add(lap)
		}
	}
	return acc.Variance()
}

// Metrics converts the pixel findings into the image quality inputs.
func (s *imageStats) Metrics() domain.RawMetricSet {
	set := domain.NewRawMetricSet(domain.DimImageQuality)
	if s.decoded > 0 {
		set.Values[domain.MetricResolutionScore] = s.resolution.Mean() * 100
		set.Values[domain.MetricSharpnessVar] = s.sharpness.Mean()
		set.Values[domain.MetricBrightnessScore] = s.brightness.Mean()
		set.Values[domain.MetricContrastScore] = s.contrast.Mean()
		set.Values[domain.MetricLowQualityRatio] = float64(s.lowQuality) / float64(s.decoded)
	}
	if s.attempted > 0 {
		set.Values[domain.MetricCorruptFileRatio] = float64(s.corrupt) / float64(s.attempted)
	}
	return set
}
