package models

import (
	"time"
)

type GDTStatus string

const (
	GDTStatusNotRequired    GDTStatus = "N/A (no GD&T required)"
	GDTStatusExtraOnly      GDTStatus = "Extra annotations present"
	GDTStatusMissing        GDTStatus = "Missing (no GD&T)"
	GDTStatusPartialMatch   GDTStatus = "Partial match"
	GDTStatusIncomplete     GDTStatus = "Incomplete"
	GDTStatusCompleteExtras GDTStatus = "Complete with extras"
	GDTStatusPerfectMatch   GDTStatus = "Perfect match"
)

func (s GDTStatus) String() string {
	return string(s)
}

// Status bands shown next to a grade.
const (
	BandPass    = "PASS"
	BandWarning = "WARNING"
	BandFail    = "FAIL"
	BandInfo    = "INFO"
	BandNA      = "N/A"
)

// AnnotationBreakdown holds raw per-subtype counts for one part.
type AnnotationBreakdown struct {
	FeatureControlFrames     int `json:"feature_control_frames"`
	AutoToleranceAnnotations int `json:"auto_tolerance_annotations"`
	Datums                   int `json:"datums"`
	Combined                 int `json:"combined"`
}

type GDTComparison struct {
	Score            float64             `json:"score"`
	Status           GDTStatus           `json:"status"`
	Band             string              `json:"band"`
	Missing          []string            `json:"missing_annotations"`
	Extra            []string            `json:"extra_annotations"`
	MissingCount     int                 `json:"missing_count"`
	ExtraCount       int                 `json:"extra_count"`
	MatchingCount    int                 `json:"matching_count"`
	TotalRequired    int                 `json:"total_required"`
	TotalFound       int                 `json:"total_found"`
	MasterBreakdown  AnnotationBreakdown `json:"master_breakdown"`
	StudentBreakdown AnnotationBreakdown `json:"student_breakdown"`
}

type GradeResult struct {
	MasterVolumeMM3    float64 `json:"master_volume_mm3"`
	StudentVolumeMM3   float64 `json:"student_volume_mm3"`
	DeviationPercent   float64 `json:"volume_deviation_percent"`
	DeviationAvailable bool    `json:"deviation_available"`
	AccuracyGrade      string  `json:"accuracy_grade"`
	AccuracyStatus     string  `json:"accuracy_status"`
	AccuracyPercent    float64 `json:"accuracy_percent"`
	GDTScore           float64 `json:"gdt_score"`
	GDTGrade           string  `json:"gdt_grade"`
	OverallScore       float64 `json:"overall_score"`
	OverallGrade       string  `json:"overall_grade"`
}

type Evidence string

const (
	EvidenceDeltaHash Evidence = "delta_hash"
	EvidenceVolume    Evidence = "volume"
)

type PlagiarismVerdict struct {
	IsPlagiarised bool       `json:"is_plagiarised"`
	CopiedFrom    []string   `json:"copied_from"`
	Evidence      []Evidence `json:"evidence,omitempty"`
}

// Fault is a per-student degradation surfaced as data on the record.
type Fault string

const (
	FaultExtractionFailure       Fault = "extraction_failure"
	FaultMasterVolumeUnavailable Fault = "master_volume_unavailable"
	FaultAmbiguousBase           Fault = "ambiguous_base"
	FaultMalformedIdentity       Fault = "malformed_identity"
)

// Identity is the report identity derived from a submission file name.
type Identity struct {
	FileName       string `json:"file_name"`
	RegistrationID string `json:"registration_id"`
	PartName       string `json:"part_name"`
	Malformed      bool   `json:"-"`
}

// AssessmentRecord is the per-student outcome of one grading job.
// It is built once by the record builder and never mutated afterwards.
type AssessmentRecord struct {
	StudentID               string            `json:"student_id"`
	RegistrationID          string            `json:"registration_id"`
	PartName                string            `json:"part_name"`
	ExtractionStatus        ExtractionStatus  `json:"extraction_status"`
	FeatureCount            int               `json:"feature_count"`
	SharedPrefixLength      int               `json:"shared_prefix_length"`
	Delta                   Signature         `json:"delta"`
	BaseModified            bool              `json:"base_modified"`
	SurfaceAreaMM2          float64           `json:"surface_area_mm2"`
	Grade                   GradeResult       `json:"grade"`
	GDT                     GDTComparison     `json:"gdt_comparison"`
	Plagiarism              PlagiarismVerdict `json:"plagiarism"`
	CopiedFromRegistrations []string          `json:"copied_from_registrations,omitempty"`
	Faults                  []Fault           `json:"faults,omitempty"`
	Error                   string            `json:"error,omitempty"`
}

func (r AssessmentRecord) HasError() bool {
	return r.Error != ""
}

// SummaryRow is one line of the class summary table.
type SummaryRow struct {
	RegistrationID   string    `json:"registration_id"`
	PartName         string    `json:"part_name"`
	DeviationPercent *float64  `json:"volume_deviation_percent"`
	AccuracyGrade    string    `json:"accuracy_grade"`
	GDTScore         float64   `json:"gdt_score"`
	GDTStatus        GDTStatus `json:"gdt_status"`
	MissingCount     int       `json:"missing_count"`
	Plagiarised      bool      `json:"plagiarised"`
	HasError         bool      `json:"has_error"`
	OverallScore     float64   `json:"overall_score"`
	OverallGrade     string    `json:"overall_grade"`
}

type ClassSummary struct {
	TotalStudents     int            `json:"total_students"`
	PlagiarisedCount  int            `json:"plagiarised_count"`
	FailedCount       int            `json:"failed_count"`
	MeanOverallScore  float64        `json:"mean_overall_score"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	Rows              []SummaryRow   `json:"rows"`
}

type MasterInfo struct {
	FileName        string  `json:"file_name"`
	FeatureCount    int     `json:"feature_count"`
	VolumeMM3       float64 `json:"volume_mm3"`
	SurfaceAreaMM2  float64 `json:"surface_area_mm2"`
	AnnotationCount int     `json:"annotation_count"`
}

type JobResult struct {
	JobID       string             `json:"job_id"`
	Master      MasterInfo         `json:"master"`
	Records     []AssessmentRecord `json:"records"`
	Summary     ClassSummary       `json:"summary"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
}
