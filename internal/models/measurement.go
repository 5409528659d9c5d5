package models

import (
	"sort"
)

// FeatureDescriptor is one step of a part's construction history.
type FeatureDescriptor struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	SketchPointCount   *int   `json:"sketch_point_count,omitempty"`
	SketchSegmentCount *int   `json:"sketch_segment_count,omitempty"`
}

// Equal reports structural equality: every field, including the optional
// sketch counts, must match.
func (f FeatureDescriptor) Equal(other FeatureDescriptor) bool {
	return f.Name == other.Name &&
		f.Type == other.Type &&
		equalCount(f.SketchPointCount, other.SketchPointCount) &&
		equalCount(f.SketchSegmentCount, other.SketchSegmentCount)
}

func equalCount(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Signature is the ordered construction history of one part.
type Signature []FeatureDescriptor

func (s Signature) Len() int {
	return len(s)
}

// AnnotationSet is a sorted, deduplicated set of normalized annotation strings.
// Build it with NewAnnotationSet to keep it sorted.
type AnnotationSet []string

func NewAnnotationSet(items ...string) AnnotationSet {
	if len(items) == 0 {
		return AnnotationSet{}
	}

	seen := make(map[string]struct{}, len(items))
	set := make(AnnotationSet, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		set = append(set, item)
	}

	sort.Strings(set)
	return set
}

func (s AnnotationSet) Len() int {
	return len(s)
}

func (s AnnotationSet) Contains(item string) bool {
	i := sort.SearchStrings(s, item)
	return i < len(s) && s[i] == item
}

// Annotations groups the tolerance annotations of one part by subtype.
type Annotations struct {
	FeatureControlFrames     AnnotationSet `json:"feature_control_frames"`
	AutoToleranceAnnotations AnnotationSet `json:"auto_tolerance_annotations"`
	Datums                   AnnotationSet `json:"datums"`
	Combined                 AnnotationSet `json:"combined"`
}

// Measurement is everything the extraction worker reports about one part.
type Measurement struct {
	Signature      Signature   `json:"signature"`
	VolumeMM3      float64     `json:"volume_mm3"`
	SurfaceAreaMM2 float64     `json:"surface_area_mm2"`
	Annotations    Annotations `json:"annotations"`
}

// EmptyMeasurement is the degraded default used for failed extractions.
func EmptyMeasurement() Measurement {
	return Measurement{
		Signature: Signature{},
		Annotations: Annotations{
			FeatureControlFrames:     AnnotationSet{},
			AutoToleranceAnnotations: AnnotationSet{},
			Datums:                   AnnotationSet{},
			Combined:                 AnnotationSet{},
		},
	}
}

type ExtractionStatus string

const (
	ExtractionSucceeded ExtractionStatus = "Success"
	ExtractionFailed    ExtractionStatus = "Failed"
)

func (s ExtractionStatus) String() string {
	return string(s)
}

// ExtractionResult is the tagged outcome of extracting one part file.
// A failed result always carries EmptyMeasurement and a non-empty Error.
type ExtractionResult struct {
	Status      ExtractionStatus `json:"status"`
	Measurement Measurement      `json:"measurement"`
	Error       string           `json:"error,omitempty"`
}

func SucceededExtraction(m Measurement) ExtractionResult {
	return ExtractionResult{
		Status:      ExtractionSucceeded,
		Measurement: m,
	}
}

func FailedExtraction(message string) ExtractionResult {
	if message == "" {
		message = "extraction failed"
	}
	return ExtractionResult{
		Status:      ExtractionFailed,
		Measurement: EmptyMeasurement(),
		Error:       message,
	}
}

func (r ExtractionResult) Succeeded() bool {
	return r.Status == ExtractionSucceeded
}
