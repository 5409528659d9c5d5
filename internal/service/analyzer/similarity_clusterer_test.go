package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/service/analyzer"
)

// SimilarityClustererSuite groups tests for class-wide plagiarism clustering.
type SimilarityClustererSuite struct {
	suite.Suite
	clusterer analyzer.SimilarityClusterer
}

func (s *SimilarityClustererSuite) SetupTest() {
	s.clusterer = newClusterer(analyzer.DefaultComplexityThreshold, analyzer.DefaultVolumeTolerance)
}

func TestSimilarityClustererSuite(t *testing.T) {
	suite.Run(t, new(SimilarityClustererSuite))
}

func (s *SimilarityClustererSuite) cluster(deltas map[string]models.Signature, volumes map[string]float64) map[string]models.PlagiarismVerdict {
	verdicts, err := s.clusterer.Cluster(deltas, volumes)
	require.NoError(s.T(), err)
	s.assertSymmetric(verdicts)
	return verdicts
}

func (s *SimilarityClustererSuite) assertSymmetric(verdicts map[string]models.PlagiarismVerdict) {
	for a, va := range verdicts {
		s.Equal(len(va.CopiedFrom) > 0, va.IsPlagiarised, a)
		for _, b := range va.CopiedFrom {
			s.NotEqual(a, b, "a student never copies from itself")
			s.Contains(verdicts[b].CopiedFrom, a, "%s lists %s but not vice versa", a, b)
		}
	}
}

// TestMatchingFiveFeatureDeltas: two 5-feature twins are flagged, each with
// the other as sole peer.
func (s *SimilarityClustererSuite) TestMatchingFiveFeatureDeltas() {
	deltas := map[string]models.Signature{
		"101_bracket.sldprt": steps("Cut", 5),
		"102_bracket.sldprt": steps("Cut", 5),
		"103_bracket.sldprt": steps("Hole", 5),
	}
	volumes := map[string]float64{
		"101_bracket.sldprt": 1000,
		"102_bracket.sldprt": 1010,
		"103_bracket.sldprt": 1020,
	}

	v := s.cluster(deltas, volumes)
	s.True(v["101_bracket.sldprt"].IsPlagiarised)
	s.Equal([]string{"102_bracket.sldprt"}, v["101_bracket.sldprt"].CopiedFrom)
	s.Equal([]string{"101_bracket.sldprt"}, v["102_bracket.sldprt"].CopiedFrom)
	s.Equal([]models.Evidence{models.EvidenceDeltaHash}, v["102_bracket.sldprt"].Evidence)
	s.False(v["103_bracket.sldprt"].IsPlagiarised)
	s.Empty(v["103_bracket.sldprt"].CopiedFrom)
}

// TestShortDeltasAreNotEvidence: identical 2-feature deltas stay below T.
func (s *SimilarityClustererSuite) TestShortDeltasAreNotEvidence() {
	deltas := map[string]models.Signature{
		"a": steps("Fillet", 2),
		"b": steps("Fillet", 2),
	}
	volumes := map[string]float64{"a": 500, "b": 600}

	v := s.cluster(deltas, volumes)
	s.False(v["a"].IsPlagiarised)
	s.False(v["b"].IsPlagiarised)
}

func (s *SimilarityClustererSuite) TestThresholdBoundaryIsExclusive() {
	deltas := map[string]models.Signature{
		"a": steps("Cut", 3),
		"b": steps("Cut", 3),
		"c": steps("Rib", 4),
		"d": steps("Rib", 4),
	}

	v := s.cluster(deltas, nil)
	s.False(v["a"].IsPlagiarised, "len == T is excluded")
	s.True(v["c"].IsPlagiarised, "len > T is grouped")
	s.Equal([]string{"d"}, v["c"].CopiedFrom)
}

func (s *SimilarityClustererSuite) TestNearIdenticalVolumeAloneIsEnough() {
	deltas := map[string]models.Signature{
		"a": steps("Cut", 6),
		"b": steps("Renamed", 6),
		"c": models.Signature{},
	}
	volumes := map[string]float64{
		"a": 1234.5670,
		"b": 1234.5675,
		"c": 1300,
	}

	v := s.cluster(deltas, volumes)
	s.Equal([]string{"b"}, v["a"].CopiedFrom)
	s.Equal([]models.Evidence{models.EvidenceVolume}, v["a"].Evidence)
	s.False(v["c"].IsPlagiarised)
}

func (s *SimilarityClustererSuite) TestVolumeToleranceIsStrict() {
	clusterer := newClusterer(3, 0.5)
	verdicts, err := clusterer.Cluster(nil, map[string]float64{"a": 10, "b": 10.5, "c": 10.49})
	s.Require().NoError(err)
	s.assertSymmetric(verdicts)

	// a–c and b–c are within 0.5, a–b is exactly 0.5 and not; merging
	// still puts all three in one cluster through c.
	s.ElementsMatch([]string{"b", "c"}, verdicts["a"].CopiedFrom)
}

func (s *SimilarityClustererSuite) TestEvidenceSourcesMerge() {
	deltas := map[string]models.Signature{
		"a": steps("Cut", 4),
		"b": steps("Cut", 4),
		"c": steps("Boss", 7),
	}
	volumes := map[string]float64{"a": 900, "b": 950, "c": 950.0002}

	v := s.cluster(deltas, volumes)
	s.Equal([]string{"b", "c"}, v["a"].CopiedFrom)
	s.Equal([]string{"a", "c"}, v["b"].CopiedFrom)
	s.Equal([]string{"a", "b"}, v["c"].CopiedFrom)
	s.Equal([]models.Evidence{models.EvidenceDeltaHash, models.EvidenceVolume}, v["b"].Evidence)
}

func (s *SimilarityClustererSuite) TestFailedExtractionsAreNotTwins() {
	v := s.cluster(
		map[string]models.Signature{"a": {}, "b": {}},
		map[string]float64{"a": 0, "b": 0},
	)
	s.False(v["a"].IsPlagiarised)
	s.False(v["b"].IsPlagiarised)
}

func (s *SimilarityClustererSuite) TestVerdictForEveryStudent() {
	v := s.cluster(
		map[string]models.Signature{"a": steps("Cut", 1)},
		map[string]float64{"b": 10},
	)
	s.Len(v, 2)
	s.Contains(v, "a")
	s.Contains(v, "b")
}

func (s *SimilarityClustererSuite) TestHashIgnoresNothingStructural() {
	a := models.Signature{sketch("Sketch2", 3, 3)}
	b := models.Signature{sketch("Sketch2", 3, 4)}

	ha, err := s.clusterer.HashDelta(a)
	s.Require().NoError(err)
	hb, err := s.clusterer.HashDelta(b)
	s.Require().NoError(err)
	again, err := s.clusterer.HashDelta(models.Signature{sketch("Sketch2", 3, 3)})
	s.Require().NoError(err)

	s.NotEqual(ha, hb)
	s.Equal(ha, again)
}

func TestClusterIsSymmetricOnLargeClass(t *testing.T) {
	c := newClusterer(3, 0.01)
	deltas := map[string]models.Signature{}
	volumes := map[string]float64{}
	for i := 0; i < 40; i++ {
		id := string(rune('A'+i%26)) + string(rune('a'+i/26))
		deltas[id] = steps("Cut", 4+i%3)
		volumes[id] = 1000 + float64(i%7)*0.004
	}

	verdicts, err := c.Cluster(deltas, volumes)
	require.NoError(t, err)
	for a, va := range verdicts {
		for _, b := range va.CopiedFrom {
			require.Contains(t, verdicts[b].CopiedFrom, a)
		}
	}
}
