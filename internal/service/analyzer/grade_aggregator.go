package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

type GradeBand struct {
	Threshold float64
	Grade     string
}

// GradeScale maps a value to a grade through ordered thresholds, with a
// fallback for values outside every band.
type GradeScale struct {
	Bands    []GradeBand
	Fallback string
}

type GradePolicy struct {
	// Accuracy bands match deviation% at or below the threshold.
	Accuracy GradeScale
	// GDT and Overall bands match scores at or above the threshold.
	GDT     GradeScale
	Overall GradeScale

	AccuracyWeight      float64
	GDTWeight           float64
	DeviationMultiplier float64
	// Deviation% at or below PassDeviation reads PASS, at or below
	// WarnDeviation reads WARNING, anything above FAIL.
	PassDeviation float64
	WarnDeviation float64
}

func DefaultGradePolicy() GradePolicy {
	return GradePolicy{
		Accuracy: GradeScale{
			Bands: []GradeBand{
				{Threshold: 0.5, Grade: "A+"},
				{Threshold: 1.5, Grade: "A"},
				{Threshold: 3.0, Grade: "B"},
				{Threshold: 5.0, Grade: "C"},
			},
			Fallback: "F",
		},
		GDT: GradeScale{
			Bands: []GradeBand{
				{Threshold: 95, Grade: "A+"},
				{Threshold: 90, Grade: "A"},
				{Threshold: 80, Grade: "B"},
				{Threshold: 70, Grade: "C"},
			},
			Fallback: "F",
		},
		Overall: GradeScale{
			Bands: []GradeBand{
				{Threshold: 90, Grade: "Excellent"},
				{Threshold: 75, Grade: "Good"},
				{Threshold: 60, Grade: "Satisfactory"},
			},
			Fallback: "Needs Improvement",
		},
		AccuracyWeight:      0.6,
		GDTWeight:           0.4,
		DeviationMultiplier: 10,
		PassDeviation:       1.5,
		WarnDeviation:       5.0,
	}
}

func (p GradePolicy) Validate() error {
	if len(p.Accuracy.Bands) == 0 || len(p.GDT.Bands) == 0 || len(p.Overall.Bands) == 0 {
		return fmt.Errorf("grade tables must not be empty")
	}
	if p.AccuracyWeight < 0 || p.GDTWeight < 0 {
		return fmt.Errorf("overall weights must be non-negative")
	}
	if math.Abs(p.AccuracyWeight+p.GDTWeight-1) > 1e-9 {
		return fmt.Errorf("overall weights must sum to 1, got %.4f", p.AccuracyWeight+p.GDTWeight)
	}
	if p.DeviationMultiplier <= 0 {
		return fmt.Errorf("deviation multiplier must be positive")
	}
	return nil
}

type GradeAggregator interface {
	VolumeDeviation(masterVolume, studentVolume float64) (deviation float64, available bool)
	AccuracyGrade(deviation float64) string
	GDTGrade(score float64) string
	Aggregate(masterVolume, studentVolume, gdtScore float64) models.GradeResult
	// AggregateUnmeasured grades a part whose volume could not be measured.
	AggregateUnmeasured(masterVolume, gdtScore float64) models.GradeResult
	Policy() GradePolicy
}

type gradeAggregator struct {
	policy   GradePolicy
	accuracy []GradeBand
	gdt      []GradeBand
	overall  []GradeBand
}

func NewGradeAggregator(policy GradePolicy) (GradeAggregator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grade policy: %w", err)
	}

	return &gradeAggregator{
		policy:   policy,
		accuracy: sortedBands(policy.Accuracy.Bands, true),
		gdt:      sortedBands(policy.GDT.Bands, false),
		overall:  sortedBands(policy.Overall.Bands, false),
	}, nil
}

func sortedBands(bands []GradeBand, ascending bool) []GradeBand {
	out := make([]GradeBand, len(bands))
	copy(out, bands)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Threshold < out[j].Threshold
		}
		return out[i].Threshold > out[j].Threshold
	})
	return out
}

func (a *gradeAggregator) Policy() GradePolicy {
	return a.policy
}

// VolumeDeviation is |student − master| / master × 100. A master volume of
// zero or less gives no usable baseline: the deviation is reported as 0 and
// available is false so callers can mark the record N/A.
func (a *gradeAggregator) VolumeDeviation(masterVolume, studentVolume float64) (float64, bool) {
	if masterVolume <= 0 {
		return 0, false
	}
	return math.Abs(studentVolume-masterVolume) / masterVolume * 100, true
}

func (a *gradeAggregator) AccuracyGrade(deviation float64) string {
	for _, b := range a.accuracy {
		if deviation <= b.Threshold {
			return b.Grade
		}
	}
	return a.policy.Accuracy.Fallback
}

func (a *gradeAggregator) GDTGrade(score float64) string {
	return atLeast(a.gdt, score, a.policy.GDT.Fallback)
}

func (a *gradeAggregator) overallGrade(score float64) string {
	return atLeast(a.overall, score, a.policy.Overall.Fallback)
}

func atLeast(bands []GradeBand, v float64, fallback string) string {
	for _, b := range bands {
		if v >= b.Threshold {
			return b.Grade
		}
	}
	return fallback
}

func (a *gradeAggregator) accuracyStatus(deviation float64) string {
	switch {
	case deviation <= a.policy.PassDeviation:
		return models.BandPass
	case deviation <= a.policy.WarnDeviation:
		return models.BandWarning
	default:
		return models.BandFail
	}
}

// Aggregate folds volume accuracy and GD&T coverage into one result. When
// the deviation is unavailable the accuracy axis is left out and the overall
// score rests on GD&T alone instead of crediting a perfect accuracy.
func (a *gradeAggregator) Aggregate(masterVolume, studentVolume, gdtScore float64) models.GradeResult {
	deviation, available := a.VolumeDeviation(masterVolume, studentVolume)
	return a.aggregate(masterVolume, studentVolume, deviation, available, gdtScore)
}

// AggregateUnmeasured leaves the accuracy axis N/A, as for a master without
// volume, so a failed extraction is not graded as a zero-volume part.
func (a *gradeAggregator) AggregateUnmeasured(masterVolume, gdtScore float64) models.GradeResult {
	return a.aggregate(masterVolume, 0, 0, false, gdtScore)
}

func (a *gradeAggregator) aggregate(masterVolume, studentVolume, deviation float64, available bool, gdtScore float64) models.GradeResult {
	gdtScore = clamp(gdtScore, 0, 100)

	result := models.GradeResult{
		MasterVolumeMM3:    masterVolume,
		StudentVolumeMM3:   studentVolume,
		DeviationPercent:   round2(deviation),
		DeviationAvailable: available,
		GDTScore:           gdtScore,
		GDTGrade:           a.GDTGrade(gdtScore),
	}

	var overall float64
	if available {
		accuracyPercent := 100 - math.Min(deviation*a.policy.DeviationMultiplier, 100)
		result.AccuracyGrade = a.AccuracyGrade(deviation)
		result.AccuracyStatus = a.accuracyStatus(deviation)
		result.AccuracyPercent = round2(accuracyPercent)
		overall = accuracyPercent*a.policy.AccuracyWeight + gdtScore*a.policy.GDTWeight
	} else {
		result.AccuracyGrade = models.BandNA
		result.AccuracyStatus = models.BandNA
		overall = gdtScore
	}

	result.OverallScore = round2(clamp(overall, 0, 100))
	result.OverallGrade = a.overallGrade(result.OverallScore)
	return result
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
