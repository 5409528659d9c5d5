package integration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/service/integration"
)

const workerPayload = `{
	"status": "Success",
	"signature": [
		{"name": "Origin", "type": "OriginProfileFeature", "sketch_points": 0, "sketch_segments": 0},
		{"name": "Sketch1", "type": "ProfileFeature", "sketch_point_count": 4, "sketch_segment_count": 4},
		{"name": "Boss-Extrude1", "type": ""},
		"garbage"
	],
	"volume_mm3": 1000.5,
	"surface_area_mm2": 640.25,
	"annotations": {
		"feature_control_frames": ["⏥ 0.05", "⏥  0.05", 7],
		"datums": ["A", "B"]
	},
	"error": ""
}`

func TestDecodeExtractionSuccess(t *testing.T) {
	res := integration.DecodeExtraction([]byte(workerPayload))

	require.True(t, res.Succeeded())
	m := res.Measurement
	require.Len(t, m.Signature, 3)

	require.NotNil(t, m.Signature[0].SketchPointCount)
	assert.Equal(t, 0, *m.Signature[0].SketchPointCount, "worker alias is accepted")
	assert.Equal(t, 4, *m.Signature[1].SketchSegmentCount)
	assert.Equal(t, "Unknown", m.Signature[2].Type)
	assert.Nil(t, m.Signature[2].SketchPointCount)

	assert.Equal(t, 1000.5, m.VolumeMM3)
	assert.Equal(t, 640.25, m.SurfaceAreaMM2)
	assert.Equal(t, models.AnnotationSet{"⏥ 0.05"}, m.Annotations.FeatureControlFrames)
	assert.Equal(t, models.AnnotationSet{"A", "B", "⏥ 0.05"}, m.Annotations.Combined)
	assert.Empty(t, m.Annotations.AutoToleranceAnnotations)
}

func TestDecodeExtractionFailedStatusDropsPartialData(t *testing.T) {
	res := integration.DecodeExtraction([]byte(`{
		"status": "Failed",
		"signature": [{"name": "Origin", "type": "x"}],
		"volume_mm3": 12,
		"error": "Failed to open document."
	}`))

	assert.False(t, res.Succeeded())
	assert.Equal(t, "Failed to open document.", res.Error)
	assert.Empty(t, res.Measurement.Signature)
	assert.Equal(t, 0.0, res.Measurement.VolumeMM3)
	assert.Empty(t, res.Measurement.Annotations.Combined)
}

func TestDecodeExtractionLenientTypes(t *testing.T) {
	res := integration.DecodeExtraction([]byte(`{
		"status": "Success",
		"signature": "not a list",
		"volume_mm3": "12",
		"annotations": null
	}`))

	require.True(t, res.Succeeded())
	assert.Empty(t, res.Measurement.Signature)
	assert.Equal(t, 0.0, res.Measurement.VolumeMM3)

	negative := integration.DecodeExtraction([]byte(`{"status":"Success","volume_mm3":-3}`))
	assert.Equal(t, 0.0, negative.Measurement.VolumeMM3)
}

func TestDecodeExtractionRejectsGarbage(t *testing.T) {
	for _, raw := range []string{``, `{`, `[]`, `"Success"`} {
		res := integration.DecodeExtraction([]byte(raw))
		assert.False(t, res.Succeeded(), raw)
		assert.NotEmpty(t, res.Error, raw)
	}

	missing := integration.DecodeExtraction([]byte(`{}`))
	assert.False(t, missing.Succeeded())
	assert.Equal(t, "extraction failed", missing.Error)
}
