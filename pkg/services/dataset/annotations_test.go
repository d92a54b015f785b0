package dataset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

func TestParseYOLOLine(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		valid bool
	}{
		{"well formed box", "0 0.5 0.5 0.2 0.2", true},
		{"segmentation extras tolerated", "1 0.4 0.4 0.1 0.3 0.1 0.2 0.3", true},
		{"too few fields", "0 0.5 0.5", false},
		{"class out of range", "5 0.5 0.5 0.1 0.1", false},
		{"negative class", "-1 0.5 0.5 0.1 0.1", false},
		{"center outside the image", "0 1.5 0.5 0.1 0.1", false},
		{"zero width", "0 0.5 0.5 0 0.1", false},
		{"not numbers", "a b c d e", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := parseYOLOLine(tc.line, 3)
			assert.Equal(t, tc.valid, ok)
		})
	}
}

func TestAnalyzeAnnotations_YOLO(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.yaml"), "names:\n  - car\n  - person\n  - sign\n")
	writeFile(t, filepath.Join(root, "images", "img_001.jpg"), "x")
	writeFile(t, filepath.Join(root, "images", "img_002.jpg"), "x")
	writeFile(t, filepath.Join(root, "images", "img_003.jpg"), "x")
	writeFile(t, filepath.Join(root, "images", "img_004.jpg"), "x")
	writeFile(t, filepath.Join(root, "labels", "img_001.txt"), "0 0.5 0.5 0.2 0.2\n")
	writeFile(t, filepath.Join(root, "labels", "img_002.txt"), "1 0.4 0.4 0.1 0.3\n")
	writeFile(t, filepath.Join(root, "labels", "img_003.txt"), "2 0.5 0.5 0.1 0.1\n")
	writeFile(t, filepath.Join(root, "labels", "img_004.txt"), "5 0.5 0.5 0.1 0.1\n0 1.5 0.5 0.1 0.1\ngarbage\n")

	inv, err := BuildInventory(context.Background(), domain.Dataset{Path: root, Format: domain.FormatAuto})
	require.NoError(t, err)

	stats, err := analyzeAnnotations(context.Background(), inv, DefaultSettings())
	require.NoError(t, err)

	set := stats.Metrics()
	assert.Equal(t, domain.DimAnnotationQuality, set.Dimension)
	assert.InDelta(t, 100, set.Values[domain.MetricClassBalanceScore], 1e-9)
	assert.InDelta(t, 0, set.Values[domain.MetricClassImbalanceRatio], 1e-9)
	assert.Equal(t, 3.0, set.Values[domain.MetricClassCount])
	assert.InDelta(t, 50, set.Values[domain.MetricBboxValidityScore], 1e-9)
	assert.InDelta(t, 0.5, set.Values[domain.MetricInvalidBboxRatio], 1e-9)
	assert.InDelta(t, 75, set.Values[domain.MetricLabelCoverageScore], 1e-9)
}

func TestAnalyzeAnnotations_SkewedClasses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "classes.txt"), "dog\ncat\n")
	for i := 0; i < 9; i++ {
		name := string(rune('a' + i))
		writeFile(t, filepath.Join(root, name+".jpg"), "x")
		writeFile(t, filepath.Join(root, name+".txt"), "0 0.5 0.5 0.1 0.1\n")
	}
	writeFile(t, filepath.Join(root, "j.jpg"), "x")
	writeFile(t, filepath.Join(root, "j.txt"), "1 0.5 0.5 0.1 0.1\n")

	inv, err := BuildInventory(context.Background(), domain.Dataset{Path: root, Format: domain.FormatAuto})
	require.NoError(t, err)

	stats, err := analyzeAnnotations(context.Background(), inv, DefaultSettings())
	require.NoError(t, err)

	set := stats.Metrics()
	assert.InDelta(t, 1-1.0/9.0, set.Values[domain.MetricClassImbalanceRatio], 1e-9)
	assert.Less(t, set.Values[domain.MetricClassBalanceScore], 60.0)
}

func TestAnalyzeAnnotations_VOC(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "images", "scene_1.jpg"), "x")
	writeFile(t, filepath.Join(root, "images", "scene_2.jpg"), "x")
	writeFile(t, filepath.Join(root, "annotations", "scene_1.xml"), `
<annotation>
  <size><width>640</width><height>480</height></size>
  <object><name>car</name><bndbox><xmin>10</xmin><ymin>10</ymin><xmax>100</xmax><ymax>80</ymax></bndbox></object>
  <object><name>person</name><bndbox><xmin>200</xmin><ymin>50</ymin><xmax>260</xmax><ymax>200</ymax></bndbox></object>
</annotation>`)
	writeFile(t, filepath.Join(root, "annotations", "scene_2.xml"), `
<annotation>
  <size><width>640</width><height>480</height></size>
  <object><name>car</name><bndbox><xmin>300</xmin><ymin>100</ymin><xmax>200</xmax><ymax>150</ymax></bndbox></object>
</annotation>`)

	inv, err := BuildInventory(context.Background(), domain.Dataset{Path: root, Format: domain.FormatAuto})
	require.NoError(t, err)
	require.Equal(t, domain.FormatVOC, inv.Format)

	stats, err := analyzeAnnotations(context.Background(), inv, DefaultSettings())
	require.NoError(t, err)

	set := stats.Metrics()
	assert.InDelta(t, 100.0*2/3, set.Values[domain.MetricBboxValidityScore], 1e-9)
	assert.Equal(t, 2.0, set.Values[domain.MetricClassCount])
	assert.InDelta(t, 50, set.Values[domain.MetricLabelCoverageScore], 1e-9)
}

func TestAnalyzeAnnotations_COCO(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "annotations.json"), `{
		"images": [
			{"id": 1, "file_name": "a.jpg", "width": 100, "height": 100},
			{"id": 2, "file_name": "b.jpg", "width": 100, "height": 100}
		],
		"annotations": [
			{"image_id": 1, "category_id": 1, "bbox": [10, 10, 30, 30]},
			{"image_id": 1, "category_id": 7, "bbox": [0, 0, 20, 20]},
			{"image_id": 2, "category_id": 1, "bbox": [50, 50, -5, 20]},
			{"image_id": 2, "category_id": 1, "bbox": [90, 90, 40, 40]}
		],
		"categories": [{"id": 1, "name": "car"}]
	}`)
	writeFile(t, filepath.Join(root, "a.jpg"), "x")
	writeFile(t, filepath.Join(root, "b.jpg"), "x")

	inv, err := BuildInventory(context.Background(), domain.Dataset{Path: root, Format: domain.FormatAuto})
	require.NoError(t, err)
	require.Equal(t, domain.FormatCOCO, inv.Format)

	stats, err := analyzeAnnotations(context.Background(), inv, DefaultSettings())
	require.NoError(t, err)

	set := stats.Metrics()
	assert.InDelta(t, 50, set.Values[domain.MetricBboxValidityScore], 1e-9)
	assert.InDelta(t, 0.5, set.Values[domain.MetricInvalidBboxRatio], 1e-9)
	assert.Equal(t, 2.0, set.Values[domain.MetricClassCount])
	// image 1 has valid boxes, image 2 has none
	assert.InDelta(t, 50, set.Values[domain.MetricLabelCoverageScore], 1e-9)
}

func TestAnalyzeAnnotations_UnresolvedFormat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "x")

	inv, err := BuildInventory(context.Background(), domain.Dataset{Path: root, Format: domain.FormatAuto})
	require.NoError(t, err)

	_, err = analyzeAnnotations(context.Background(), inv, DefaultSettings())
	var unavailable *domain.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, domain.DimAnnotationQuality, unavailable.Dimension)
}

func TestAnalyzeAnnotations_QuickSampling(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		name := string(rune('a' + i))
		writeFile(t, filepath.Join(root, name+".jpg"), "x")
		writeFile(t, filepath.Join(root, name+".txt"), "0 0.5 0.5 0.1 0.1\n")
	}

	inv, err := BuildInventory(context.Background(), domain.Dataset{Path: root, Format: domain.FormatAuto})
	require.NoError(t, err)

	settings := DefaultSettings()
	settings.Quick = true
	settings.QuickSample = 3

	stats, err := analyzeAnnotations(context.Background(), inv, settings)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.unitsSeen)

	again, err := analyzeAnnotations(context.Background(), inv, settings)
	require.NoError(t, err)
	assert.Equal(t, stats.Metrics(), again.Metrics())
}

func TestAnnotationStats_NoBoxesYieldsEmptySet(t *testing.T) {
	var stats annotationStats
	set := stats.Metrics()
	assert.True(t, set.Empty())
}
