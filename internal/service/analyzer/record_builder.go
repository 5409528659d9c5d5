package analyzer

import (
	"github.com/RubachokBoss/cad-assessment/internal/models"
)

// StudentAnalysis is the per-student output of the parallel stage, before
// the class-wide plagiarism verdict is known.
type StudentAnalysis struct {
	StudentID  string
	Identity   models.Identity
	Extraction models.ExtractionResult
	Delta      DeltaResult
	GDT        models.GDTComparison
	Grade      models.GradeResult
}

// BuildRecord merges one student's analysis with the plagiarism verdict.
// registrations maps student ids to registration ids for peer display.
func BuildRecord(a StudentAnalysis, verdict models.PlagiarismVerdict, registrations map[string]string) models.AssessmentRecord {
	copiedFrom := make([]string, len(verdict.CopiedFrom))
	copy(copiedFrom, verdict.CopiedFrom)

	var peerRegs []string
	for _, peer := range copiedFrom {
		if reg, ok := registrations[peer]; ok {
			peerRegs = append(peerRegs, reg)
		} else {
			peerRegs = append(peerRegs, PlaceholderRegistration)
		}
	}

	record := models.AssessmentRecord{
		StudentID:          a.StudentID,
		RegistrationID:     a.Identity.RegistrationID,
		PartName:           a.Identity.PartName,
		ExtractionStatus:   a.Extraction.Status,
		FeatureCount:       a.Extraction.Measurement.Signature.Len(),
		SharedPrefixLength: a.Delta.SharedPrefixLength,
		Delta:              cloneSignature(a.Delta.Delta),
		BaseModified:       a.Delta.BaseModified,
		SurfaceAreaMM2:     a.Extraction.Measurement.SurfaceAreaMM2,
		Grade:              a.Grade,
		GDT:                a.GDT,
		Plagiarism: models.PlagiarismVerdict{
			IsPlagiarised: verdict.IsPlagiarised,
			CopiedFrom:    copiedFrom,
			Evidence:      verdict.Evidence,
		},
		CopiedFromRegistrations: peerRegs,
		Error:                   a.Extraction.Error,
	}

	if !a.Extraction.Succeeded() {
		record.Faults = append(record.Faults, models.FaultExtractionFailure)
	}
	if a.Grade.MasterVolumeMM3 <= 0 {
		record.Faults = append(record.Faults, models.FaultMasterVolumeUnavailable)
	}
	if a.Delta.AmbiguousBase {
		record.Faults = append(record.Faults, models.FaultAmbiguousBase)
	}
	if a.Identity.Malformed {
		record.Faults = append(record.Faults, models.FaultMalformedIdentity)
	}

	return record
}

// BuildSummary produces the class summary table from the finished records,
// keeping their order.
func BuildSummary(records []models.AssessmentRecord) models.ClassSummary {
	summary := models.ClassSummary{
		TotalStudents:     len(records),
		GradeDistribution: make(map[string]int),
		Rows:              make([]models.SummaryRow, 0, len(records)),
	}

	var total float64
	for _, r := range records {
		row := models.SummaryRow{
			RegistrationID: r.RegistrationID,
			PartName:       r.PartName,
			AccuracyGrade:  r.Grade.AccuracyGrade,
			GDTScore:       r.GDT.Score,
			GDTStatus:      r.GDT.Status,
			MissingCount:   r.GDT.MissingCount,
			Plagiarised:    r.Plagiarism.IsPlagiarised,
			HasError:       r.HasError(),
			OverallScore:   r.Grade.OverallScore,
			OverallGrade:   r.Grade.OverallGrade,
		}
		if r.Grade.DeviationAvailable {
			dev := r.Grade.DeviationPercent
			row.DeviationPercent = &dev
		}
		summary.Rows = append(summary.Rows, row)

		if row.Plagiarised {
			summary.PlagiarisedCount++
		}
		if row.HasError {
			summary.FailedCount++
		}
		summary.GradeDistribution[r.Grade.OverallGrade]++
		total += r.Grade.OverallScore
	}

	if len(records) > 0 {
		summary.MeanOverallScore = round2(total / float64(len(records)))
	}
	return summary
}
