package analyzer

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

// UnknownFeatureType replaces a blank feature type reported by the worker.
const UnknownFeatureType = "Unknown"

// NormalizeSignature returns the canonical form of a raw signature: names and
// types trimmed, blank types defaulted, negative sketch counts dropped.
// Order is preserved; a nil input yields an empty signature.
func NormalizeSignature(raw models.Signature) models.Signature {
	sig := make(models.Signature, 0, len(raw))
	for _, f := range raw {
		sig = append(sig, normalizeFeature(f))
	}
	return sig
}

func normalizeFeature(f models.FeatureDescriptor) models.FeatureDescriptor {
	out := models.FeatureDescriptor{
		Name: strings.TrimSpace(f.Name),
		Type: strings.TrimSpace(f.Type),
	}
	if out.Type == "" {
		out.Type = UnknownFeatureType
	}
	out.SketchPointCount = normalizeCount(f.SketchPointCount)
	out.SketchSegmentCount = normalizeCount(f.SketchSegmentCount)
	return out
}

func normalizeCount(c *int) *int {
	if c == nil || *c < 0 {
		return nil
	}
	v := *c
	return &v
}

// NormalizeAnnotation folds compatibility characters (NFKC), collapses
// whitespace and trims. It returns "" for blank input.
func NormalizeAnnotation(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func NormalizeAnnotationSet(items []string) models.AnnotationSet {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if n := NormalizeAnnotation(item); n != "" {
			out = append(out, n)
		}
	}
	return models.NewAnnotationSet(out...)
}

// NormalizeAnnotations normalizes every subtype. Combined falls back to the
// union of the subtypes when the worker did not report it.
func NormalizeAnnotations(a models.Annotations) models.Annotations {
	out := models.Annotations{
		FeatureControlFrames:     NormalizeAnnotationSet(a.FeatureControlFrames),
		AutoToleranceAnnotations: NormalizeAnnotationSet(a.AutoToleranceAnnotations),
		Datums:                   NormalizeAnnotationSet(a.Datums),
		Combined:                 NormalizeAnnotationSet(a.Combined),
	}
	if out.Combined.Len() == 0 {
		union := make([]string, 0, out.FeatureControlFrames.Len()+out.AutoToleranceAnnotations.Len()+out.Datums.Len())
		union = append(union, out.FeatureControlFrames...)
		union = append(union, out.AutoToleranceAnnotations...)
		union = append(union, out.Datums...)
		out.Combined = models.NewAnnotationSet(union...)
	}
	return out
}

func normalizeVolume(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// NormalizeExtraction applies every ingestion default. Failed results are
// reset to the empty measurement so nothing partial leaks downstream.
func NormalizeExtraction(r models.ExtractionResult) models.ExtractionResult {
	if !r.Succeeded() {
		return models.FailedExtraction(strings.TrimSpace(r.Error))
	}

	return models.SucceededExtraction(models.Measurement{
		Signature:      NormalizeSignature(r.Measurement.Signature),
		VolumeMM3:      normalizeVolume(r.Measurement.VolumeMM3),
		SurfaceAreaMM2: normalizeVolume(r.Measurement.SurfaceAreaMM2),
		Annotations:    NormalizeAnnotations(r.Measurement.Annotations),
	})
}
