package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/service/analyzer"
)

type GradeAggregatorSuite struct {
	suite.Suite
	agg analyzer.GradeAggregator
}

func (s *GradeAggregatorSuite) SetupTest() {
	agg, err := analyzer.NewGradeAggregator(analyzer.DefaultGradePolicy())
	require.NoError(s.T(), err)
	s.agg = agg
}

func TestGradeAggregatorSuite(t *testing.T) {
	suite.Run(t, new(GradeAggregatorSuite))
}

func (s *GradeAggregatorSuite) TestHalfCubicMillimetreIsAPlus() {
	dev, ok := s.agg.VolumeDeviation(1000.0, 1000.5)
	s.True(ok)
	s.InDelta(0.05, dev, 1e-9)
	s.Equal("A+", s.agg.AccuracyGrade(dev))
}

func (s *GradeAggregatorSuite) TestAccuracyBandEdges() {
	cases := map[float64]string{
		0:    "A+",
		0.5:  "A+",
		0.51: "A",
		1.5:  "A",
		3.0:  "B",
		4.99: "C",
		5.0:  "C",
		5.01: "F",
		80:   "F",
	}
	for dev, want := range cases {
		s.Equal(want, s.agg.AccuracyGrade(dev), "deviation %v", dev)
	}
}

func (s *GradeAggregatorSuite) TestGDTBandEdges() {
	cases := map[float64]string{
		100:   "A+",
		95:    "A+",
		94.99: "A",
		90:    "A",
		80:    "B",
		70:    "C",
		69.99: "F",
		0:     "F",
	}
	for score, want := range cases {
		s.Equal(want, s.agg.GDTGrade(score), "score %v", score)
	}
}

func (s *GradeAggregatorSuite) TestOverallWeighting() {
	// 2% deviation: accuracy 80, overall 80*0.6 + 50*0.4 = 68.
	res := s.agg.Aggregate(1000, 1020, 50)
	s.InDelta(2.0, res.DeviationPercent, 1e-9)
	s.InDelta(80.0, res.AccuracyPercent, 1e-9)
	s.InDelta(68.0, res.OverallScore, 1e-9)
	s.Equal("Satisfactory", res.OverallGrade)
	s.Equal("B", res.AccuracyGrade)
	s.Equal(models.BandWarning, res.AccuracyStatus)
	s.Equal("F", res.GDTGrade)
}

func (s *GradeAggregatorSuite) TestLargeDeviationZeroesAccuracy() {
	res := s.agg.Aggregate(1000, 1150, 100)
	s.Equal(0.0, res.AccuracyPercent)
	s.InDelta(40.0, res.OverallScore, 1e-9)
	s.Equal("Needs Improvement", res.OverallGrade)
	s.Equal(models.BandFail, res.AccuracyStatus)

	under := s.agg.Aggregate(1000, 0, 100)
	s.InDelta(100.0, under.DeviationPercent, 1e-9)
	s.Equal(0.0, under.AccuracyPercent)
}

func (s *GradeAggregatorSuite) TestPerfectSubmissionIsExcellent() {
	res := s.agg.Aggregate(1000, 1000, 100)
	s.Equal(100.0, res.OverallScore)
	s.Equal("Excellent", res.OverallGrade)
	s.Equal(models.BandPass, res.AccuracyStatus)
	s.True(res.DeviationAvailable)
}

func (s *GradeAggregatorSuite) TestZeroMasterVolumeIsNotAvailable() {
	dev, ok := s.agg.VolumeDeviation(0, 1234)
	s.False(ok)
	s.Equal(0.0, dev)

	res := s.agg.Aggregate(0.0, 1234, 80)
	s.False(res.DeviationAvailable)
	s.Equal(0.0, res.DeviationPercent)
	s.Equal(models.BandNA, res.AccuracyGrade)
	s.Equal(models.BandNA, res.AccuracyStatus)
	s.InDelta(80.0, res.OverallScore, 1e-9, "no perfect accuracy credit")
	s.Equal("Good", res.OverallGrade)
}

func (s *GradeAggregatorSuite) TestUnmeasuredPartIsNotAvailable() {
	res := s.agg.AggregateUnmeasured(1000, 80)
	s.False(res.DeviationAvailable)
	s.Equal(0.0, res.DeviationPercent)
	s.Equal(1000.0, res.MasterVolumeMM3)
	s.Equal(models.BandNA, res.AccuracyGrade)
	s.Equal(models.BandNA, res.AccuracyStatus)
	s.InDelta(80.0, res.OverallScore, 1e-9)
	s.Equal("Good", res.OverallGrade)

	measured := s.agg.Aggregate(1000, 0, 80)
	s.Equal("F", measured.AccuracyGrade, "a measured zero volume is still a real deviation")
}

func TestGradePolicyValidation(t *testing.T) {
	p := analyzer.DefaultGradePolicy()
	require.NoError(t, p.Validate())

	bad := analyzer.DefaultGradePolicy()
	bad.AccuracyWeight = 0.7
	_, err := analyzer.NewGradeAggregator(bad)
	assert.Error(t, err)

	empty := analyzer.DefaultGradePolicy()
	empty.GDT.Bands = nil
	assert.Error(t, empty.Validate())

	mult := analyzer.DefaultGradePolicy()
	mult.DeviationMultiplier = 0
	assert.Error(t, mult.Validate())
}

func TestCustomThresholdTablesAreHonoured(t *testing.T) {
	p := analyzer.DefaultGradePolicy()
	// Unsorted on purpose; the aggregator orders the bands itself.
	p.Accuracy.Bands = []analyzer.GradeBand{
		{Threshold: 10, Grade: "Pass"},
		{Threshold: 1, Grade: "Distinction"},
	}
	p.Accuracy.Fallback = "Fail"

	agg, err := analyzer.NewGradeAggregator(p)
	require.NoError(t, err)
	assert.Equal(t, "Distinction", agg.AccuracyGrade(0.9))
	assert.Equal(t, "Pass", agg.AccuracyGrade(7))
	assert.Equal(t, "Fail", agg.AccuracyGrade(11))
}
