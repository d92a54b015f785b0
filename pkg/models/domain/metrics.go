package domain

// Metric names shared between the collectors, the default scoring
// configuration, and the issue detector. Metrics ending in _score are on a
// 0–100 scale; _ratio metrics are 0–1; counts are raw.
const (
	MetricImageCount             = "image_count"
	MetricAnnotationCount        = "annotation_count"
	MetricCoverageScore          = "coverage_score"
	MetricStructureScore         = "structure_score"
	MetricNamingScore            = "naming_score"
	MetricMissingImageRatio      = "missing_image_ratio"
	MetricMissingAnnotationRatio = "missing_annotation_ratio"
	MetricCorruptFileRatio       = "corrupt_file_ratio"

	MetricResolutionScore = "resolution_score"
	MetricSharpnessVar    = "sharpness_variance"
	MetricBrightnessScore = "brightness_score"
	MetricContrastScore   = "contrast_score"
	MetricLowQualityRatio = "low_quality_ratio"

	MetricClassBalanceScore   = "class_balance_score"
	MetricBboxValidityScore   = "bbox_validity_score"
	MetricLabelCoverageScore  = "label_coverage_score"
	MetricClassImbalanceRatio = "class_imbalance_ratio"
	MetricInvalidBboxRatio    = "invalid_bbox_ratio"
	MetricClassCount          = "class_count"

	MetricResolutionDiversityScore = "resolution_diversity_score"
	MetricFormatDiversityScore     = "format_diversity_score"
	MetricSizeSpreadScore          = "size_spread_score"
	MetricAspectSpreadScore        = "aspect_ratio_spread_score"
	MetricClassCountScore          = "class_count_score"

	MetricResolutionConsistencyScore = "resolution_consistency_score"
	MetricSizeConsistencyScore       = "size_consistency_score"
	MetricAnnotationConsistencyScore = "annotation_consistency_score"
)
