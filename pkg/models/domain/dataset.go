package domain

import "fmt"

type AnnotationFormat string

const (
	FormatAuto AnnotationFormat = "auto"
	FormatYOLO AnnotationFormat = "yolo"
	FormatCOCO AnnotationFormat = "coco"
	FormatVOC  AnnotationFormat = "voc"
)

func ParseAnnotationFormat(s string) (AnnotationFormat, error) {
	switch AnnotationFormat(s) {
	case FormatAuto, FormatYOLO, FormatCOCO, FormatVOC:
		return AnnotationFormat(s), nil
	case "":
		return FormatAuto, nil
	}
	return "", fmt.Errorf("unknown annotation format %q", s)
}

// Dataset identifies one image dataset registered for assessment.
type Dataset struct {
	Name      string
	Path      string
	Format    AnnotationFormat
	ClassFile string
}

func (d Dataset) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Path)
}
