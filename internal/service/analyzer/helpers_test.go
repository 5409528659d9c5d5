package analyzer_test

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/service/analyzer"
	"github.com/RubachokBoss/cad-assessment/pkg/hash"
)

func intPtr(v int) *int { return &v }

func feature(name, typ string) models.FeatureDescriptor {
	return models.FeatureDescriptor{Name: name, Type: typ}
}

func sketch(name string, points, segments int) models.FeatureDescriptor {
	return models.FeatureDescriptor{
		Name:               name,
		Type:               "ProfileFeature",
		SketchPointCount:   intPtr(points),
		SketchSegmentCount: intPtr(segments),
	}
}

// baseSignature is the faculty base every student starts from.
func baseSignature() models.Signature {
	return models.Signature{
		feature("Origin", "OriginProfileFeature"),
		feature("Front Plane", "RefPlane"),
		sketch("Sketch1", 4, 4),
		feature("Boss-Extrude1", "Extrusion"),
	}
}

// steps returns n distinct features named with the given prefix.
func steps(prefix string, n int) models.Signature {
	out := make(models.Signature, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, feature(fmt.Sprintf("%s%d", prefix, i), "Cut"))
	}
	return out
}

func concat(parts ...models.Signature) models.Signature {
	out := models.Signature{}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newClusterer(threshold int, tolerance float64) analyzer.SimilarityClusterer {
	return analyzer.NewSimilarityClusterer(
		hash.NewContentHasher(hash.SHA256),
		analyzer.ClusterConfig{ComplexityThreshold: threshold, VolumeTolerance: tolerance},
		zerolog.Nop(),
	)
}

func annotations(items ...string) models.Annotations {
	return analyzer.NormalizeAnnotations(models.Annotations{
		FeatureControlFrames: models.NewAnnotationSet(items...),
	})
}
