package analyzer

import (
	"math"
	"sort"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

// GDTPassScore is the score at or above which the GD&T band reads PASS.
const GDTPassScore = 95.0

// CompareAnnotations set-differences the student's combined annotations
// against the master's. Extra annotations never lower the score.
func CompareAnnotations(master, student models.Annotations) models.GDTComparison {
	m := master.Combined
	s := student.Combined

	missing := difference(m, s)
	extra := difference(s, m)
	matching := m.Len() - len(missing)

	score, status := scoreAnnotations(m.Len(), s.Len(), matching, len(missing), len(extra))

	return models.GDTComparison{
		Score:            score,
		Status:           status,
		Band:             gdtBand(score, len(missing)),
		Missing:          missing,
		Extra:            extra,
		MissingCount:     len(missing),
		ExtraCount:       len(extra),
		MatchingCount:    matching,
		TotalRequired:    m.Len(),
		TotalFound:       s.Len(),
		MasterBreakdown:  breakdown(master),
		StudentBreakdown: breakdown(student),
	}
}

func scoreAnnotations(masterCount, studentCount, matching, missing, extra int) (float64, models.GDTStatus) {
	switch {
	case masterCount == 0 && studentCount == 0:
		return 100, models.GDTStatusNotRequired
	case masterCount == 0:
		return 50, models.GDTStatusExtraOnly
	case studentCount == 0:
		return 0, models.GDTStatusMissing
	case missing > 0 && extra > 0:
		return coverage(matching, masterCount), models.GDTStatusPartialMatch
	case missing > 0:
		return coverage(matching, masterCount), models.GDTStatusIncomplete
	case extra > 0:
		return 100, models.GDTStatusCompleteExtras
	default:
		return 100, models.GDTStatusPerfectMatch
	}
}

func coverage(matching, total int) float64 {
	return round2(100 * float64(matching) / float64(total))
}

func gdtBand(score float64, missing int) string {
	switch {
	case score >= GDTPassScore:
		return models.BandPass
	case missing > 0:
		return models.BandWarning
	default:
		return models.BandInfo
	}
}

// difference returns the sorted, deduplicated items of a that are not in b.
func difference(a, b models.AnnotationSet) []string {
	in := make(map[string]struct{}, len(b))
	for _, item := range b {
		in[item] = struct{}{}
	}

	out := make([]string, 0)
	seen := make(map[string]struct{}, len(a))
	for _, item := range a {
		if _, ok := in[item]; ok {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func breakdown(a models.Annotations) models.AnnotationBreakdown {
	return models.AnnotationBreakdown{
		FeatureControlFrames:     a.FeatureControlFrames.Len(),
		AutoToleranceAnnotations: a.AutoToleranceAnnotations.Len(),
		Datums:                   a.Datums.Len(),
		Combined:                 a.Combined.Len(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
