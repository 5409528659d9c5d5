package integration

import (
	"github.com/tidwall/gjson"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/service/analyzer"
)

// DecodeExtraction turns a worker payload into a normalized ExtractionResult.
// The worker's JSON is loosely typed, so every field is read leniently:
// missing or ill-typed values take their ingestion default and an unreadable
// document becomes a failed extraction.
func DecodeExtraction(raw []byte) models.ExtractionResult {
	if !gjson.ValidBytes(raw) {
		return models.FailedExtraction("invalid extraction payload")
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return models.FailedExtraction("extraction payload is not an object")
	}

	if doc.Get("status").String() != string(models.ExtractionSucceeded) {
		return analyzer.NormalizeExtraction(models.ExtractionResult{
			Status: models.ExtractionFailed,
			Error:  doc.Get("error").String(),
		})
	}

	return analyzer.NormalizeExtraction(models.SucceededExtraction(models.Measurement{
		Signature:      decodeSignature(doc.Get("signature")),
		VolumeMM3:      number(doc.Get("volume_mm3")),
		SurfaceAreaMM2: number(doc.Get("surface_area_mm2")),
		Annotations:    decodeAnnotations(doc.Get("annotations")),
	}))
}

func decodeSignature(v gjson.Result) models.Signature {
	sig := models.Signature{}
	if !v.IsArray() {
		return sig
	}

	v.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		sig = append(sig, models.FeatureDescriptor{
			Name:               item.Get("name").String(),
			Type:               item.Get("type").String(),
			SketchPointCount:   count(item, "sketch_point_count", "sketch_points"),
			SketchSegmentCount: count(item, "sketch_segment_count", "sketch_segments"),
		})
		return true
	})
	return sig
}

// count reads the first present numeric field among keys.
func count(item gjson.Result, keys ...string) *int {
	for _, key := range keys {
		v := item.Get(key)
		if v.Type != gjson.Number {
			continue
		}
		n := int(v.Int())
		return &n
	}
	return nil
}

func number(v gjson.Result) float64 {
	if v.Type != gjson.Number {
		return 0
	}
	return v.Float()
}

func decodeAnnotations(v gjson.Result) models.Annotations {
	return models.Annotations{
		FeatureControlFrames:     stringSet(v.Get("feature_control_frames")),
		AutoToleranceAnnotations: stringSet(v.Get("auto_tolerance_annotations")),
		Datums:                   stringSet(v.Get("datums")),
		Combined:                 stringSet(v.Get("combined")),
	}
}

func stringSet(v gjson.Result) models.AnnotationSet {
	if !v.IsArray() {
		return models.AnnotationSet{}
	}

	var items []string
	v.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			items = append(items, item.Str)
		}
		return true
	})
	return models.NewAnnotationSet(items...)
}
