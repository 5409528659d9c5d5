package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/repository"
	"github.com/RubachokBoss/cad-assessment/internal/service/analyzer"
	"github.com/RubachokBoss/cad-assessment/internal/service/integration"
	"github.com/RubachokBoss/cad-assessment/internal/worker/pool"
)

const tracerName = "github.com/RubachokBoss/cad-assessment/internal/service"

// macOSMetadataDir holds resource forks that archives created on macOS carry
// alongside the real files.
const macOSMetadataDir = "__MACOSX"

type GradingService interface {
	// RunJob grades the part files of one job held in the job store.
	RunJob(ctx context.Context, req models.GradingJobRequest) (*models.JobResult, error)
	// Evaluate grades extraction payloads supplied by the caller.
	Evaluate(ctx context.Context, req models.EvaluateRequest) (*models.JobResult, error)
	Policy() models.GradingPolicyView
	Stats() Stats
}

// TaskSubmitter schedules per-student work on a bounded pool.
type TaskSubmitter interface {
	Submit(ctx context.Context, task pool.Task) error
}

type GradingConfig struct {
	JobTimeout        time.Duration
	ExtractionTimeout time.Duration
	PartExtension     string
	HashAlgorithm     string
	Cluster           analyzer.ClusterConfig
}

type Stats struct {
	JobsCompleted int64 `json:"jobs_completed"`
	JobsFailed    int64 `json:"jobs_failed"`
}

type gradingService struct {
	store      repository.JobStore
	extractor  integration.Extractor
	aggregator analyzer.GradeAggregator
	clusterer  analyzer.SimilarityClusterer
	pool       TaskSubmitter
	config     GradingConfig
	logger     zerolog.Logger
	tracer     trace.Tracer

	completed atomic.Int64
	failed    atomic.Int64
}

func NewGradingService(
	store repository.JobStore,
	extractor integration.Extractor,
	aggregator analyzer.GradeAggregator,
	clusterer analyzer.SimilarityClusterer,
	submitter TaskSubmitter,
	config GradingConfig,
	logger zerolog.Logger,
) GradingService {
	if config.PartExtension == "" {
		config.PartExtension = ".sldprt"
	}
	if !strings.HasPrefix(config.PartExtension, ".") {
		config.PartExtension = "." + config.PartExtension
	}

	return &gradingService{
		store:      store,
		extractor:  extractor,
		aggregator: aggregator,
		clusterer:  clusterer,
		pool:       submitter,
		config:     config,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

func (s *gradingService) RunJob(ctx context.Context, req models.GradingJobRequest) (*models.JobResult, error) {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	master := strings.TrimSpace(req.Master)
	if master == "" {
		return nil, s.fail(models.NewJobError(jobID, models.ErrInvalidJob, "master is required"))
	}

	exists, err := s.store.Exists(ctx, master)
	if errors.Is(err, repository.ErrInvalidKey) {
		return nil, s.fail(models.NewJobError(jobID, models.ErrInvalidJob, err.Error()))
	}
	if err != nil {
		s.failed.Add(1)
		return nil, fmt.Errorf("failed to check master file: %w", err)
	}
	if !exists {
		return nil, s.fail(models.NewJobError(jobID, models.ErrMasterNotFound, master))
	}

	submissions, err := s.resolveSubmissions(ctx, master, req)
	if errors.Is(err, repository.ErrInvalidKey) {
		return nil, s.fail(models.NewJobError(jobID, models.ErrInvalidJob, err.Error()))
	}
	if err != nil {
		s.failed.Add(1)
		return nil, err
	}
	if len(submissions) == 0 {
		return nil, s.fail(models.NewJobError(jobID, models.ErrNoSubmissions, ""))
	}

	return s.grade(ctx, jobID, master, submissions, s.extractor)
}

func (s *gradingService) Evaluate(ctx context.Context, req models.EvaluateRequest) (*models.JobResult, error) {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	if req.Master.FileName == "" || len(req.Master.Payload) == 0 {
		return nil, s.fail(models.NewJobError(jobID, models.ErrInvalidJob, "master file name and payload are required"))
	}

	payloads := map[string][]byte{req.Master.FileName: req.Master.Payload}
	students := make([]string, 0, len(req.Students))
	for _, st := range req.Students {
		if st.FileName == "" {
			return nil, s.fail(models.NewJobError(jobID, models.ErrInvalidJob, "student file name is required"))
		}
		if _, dup := payloads[st.FileName]; dup {
			s.logger.Warn().Str("job_id", jobID).Str("file", st.FileName).Msg("Skipping duplicate submission")
			continue
		}
		payloads[st.FileName] = st.Payload
		students = append(students, st.FileName)
	}
	if len(students) == 0 {
		return nil, s.fail(models.NewJobError(jobID, models.ErrNoSubmissions, ""))
	}

	return s.grade(ctx, jobID, req.Master.FileName, students, integration.NewStaticExtractor(payloads))
}

func (s *gradingService) fail(err error) error {
	s.failed.Add(1)
	return err
}

// resolveSubmissions returns the student part files of a job in a stable
// order, without the master and without duplicates.
func (s *gradingService) resolveSubmissions(ctx context.Context, master string, req models.GradingJobRequest) ([]string, error) {
	candidates := req.Submissions
	if len(candidates) == 0 {
		prefix := req.Prefix
		if prefix == "" {
			if prefix = path.Dir(master); prefix == "." {
				prefix = ""
			}
		}

		keys, err := s.store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}
		for _, key := range keys {
			if s.isPartFile(key) {
				candidates = append(candidates, key)
			}
		}
	}

	seen := map[string]struct{}{master: {}}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			if c != master {
				s.logger.Warn().Str("file", c).Msg("Skipping duplicate submission")
			}
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func (s *gradingService) isPartFile(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == macOSMetadataDir {
			return false
		}
	}
	return strings.EqualFold(path.Ext(key), s.config.PartExtension)
}

func (s *gradingService) grade(ctx context.Context, jobID, masterFile string, students []string, extractor integration.Extractor) (*models.JobResult, error) {
	startedAt := time.Now()

	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "grading.job", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.master", masterFile),
		attribute.Int("job.students", len(students)),
		attribute.String("job.extractor", extractor.Name()),
	))
	defer span.End()

	logger := s.logger.With().Str("job_id", jobID).Logger()
	logger.Info().
		Str("master", masterFile).
		Int("students", len(students)).
		Msg("Grading job started")

	result, err := s.runPipeline(ctx, jobID, masterFile, students, extractor, logger)
	if err != nil {
		s.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("Grading job failed")
		return nil, err
	}

	result.StartedAt = startedAt
	result.CompletedAt = time.Now()
	s.completed.Add(1)

	logger.Info().
		Int("students", result.Summary.TotalStudents).
		Int("plagiarised", result.Summary.PlagiarisedCount).
		Int("failed_extractions", result.Summary.FailedCount).
		Float64("mean_score", result.Summary.MeanOverallScore).
		Dur("duration", result.CompletedAt.Sub(startedAt)).
		Msg("Grading job completed")

	return result, nil
}

func (s *gradingService) runPipeline(ctx context.Context, jobID, masterFile string, students []string, extractor integration.Extractor, logger zerolog.Logger) (*models.JobResult, error) {
	master := s.extract(ctx, extractor, masterFile, "grading.master")
	if !master.Succeeded() {
		switch err := ctx.Err(); {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, models.NewJobError(jobID, models.ErrJobTimeout, "while extracting master")
		case err != nil:
			return nil, fmt.Errorf("master extraction interrupted: %w", err)
		}
		return nil, models.NewJobError(jobID, models.ErrMasterExtraction, master.Error)
	}

	if master.Measurement.VolumeMM3 <= 0 {
		logger.Warn().Str("master", masterFile).Msg("Master volume unavailable; accuracy will be reported as N/A")
	}
	if master.Measurement.Signature.Len() == 0 {
		logger.Warn().Str("master", masterFile).Msg("Master signature is empty; every delta is the full student history")
	}

	analyses, err := s.analyseStudents(ctx, master.Measurement, students, extractor, logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewJobError(jobID, models.ErrJobTimeout, "while extracting submissions")
		}
		return nil, err
	}

	deltas := make(map[string]models.Signature, len(analyses))
	volumes := make(map[string]float64, len(analyses))
	registrations := make(map[string]string, len(analyses))
	for _, a := range analyses {
		deltas[a.StudentID] = a.Delta.Delta
		if a.Extraction.Succeeded() {
			volumes[a.StudentID] = a.Extraction.Measurement.VolumeMM3
		}
		registrations[a.StudentID] = a.Identity.RegistrationID
	}

	_, span := s.tracer.Start(ctx, "grading.cluster")
	verdicts, err := s.clusterer.Cluster(deltas, volumes)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("failed to cluster submissions: %w", err)
	}

	records := make([]models.AssessmentRecord, 0, len(analyses))
	for _, a := range analyses {
		record := analyzer.BuildRecord(a, verdicts[a.StudentID], registrations)
		if record.HasError() {
			logger.Warn().
				Str("student_id", record.StudentID).
				Str("registration_id", record.RegistrationID).
				Str("error", record.Error).
				Msg("Student extraction degraded")
		}
		records = append(records, record)
	}

	m := master.Measurement
	return &models.JobResult{
		JobID: jobID,
		Master: models.MasterInfo{
			FileName:        masterFile,
			FeatureCount:    m.Signature.Len(),
			VolumeMM3:       m.VolumeMM3,
			SurfaceAreaMM2:  m.SurfaceAreaMM2,
			AnnotationCount: m.Annotations.Combined.Len(),
		},
		Records: records,
		Summary: analyzer.BuildSummary(records),
	}, nil
}

func (s *gradingService) extract(ctx context.Context, extractor integration.Extractor, part, spanName string) models.ExtractionResult {
	if s.config.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ExtractionTimeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("part", part)))
	defer span.End()

	result := extractor.Extract(ctx, part)
	if !result.Succeeded() {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}

// analyseStudents fans the per-student work out on the pool and waits for
// every task to settle. Each task writes only its own slot.
func (s *gradingService) analyseStudents(ctx context.Context, master models.Measurement, students []string, extractor integration.Extractor, logger zerolog.Logger) ([]analyzer.StudentAnalysis, error) {
	analyses := make([]analyzer.StudentAnalysis, len(students))

	var (
		wg        sync.WaitGroup
		submitErr error
	)
	for i, student := range students {
		i, student := i, student
		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			analyses[i] = s.analyseStudent(ctx, master, student, extractor)
		})
		if err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return nil, fmt.Errorf("failed to schedule students: %w", submitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("per-student analysis interrupted: %w", err)
	}

	logger.Debug().Int("students", len(analyses)).Msg("Per-student analysis finished")
	return analyses, nil
}

func (s *gradingService) analyseStudent(ctx context.Context, master models.Measurement, student string, extractor integration.Extractor) analyzer.StudentAnalysis {
	extraction := s.extract(ctx, extractor, student, "grading.student")
	m := extraction.Measurement

	delta := analyzer.ExtractDelta(master.Signature, m.Signature)
	gdt := analyzer.CompareAnnotations(master.Annotations, m.Annotations)

	grade := s.aggregator.AggregateUnmeasured(master.VolumeMM3, gdt.Score)
	if extraction.Succeeded() {
		grade = s.aggregator.Aggregate(master.VolumeMM3, m.VolumeMM3, gdt.Score)
	}

	return analyzer.StudentAnalysis{
		StudentID:  student,
		Identity:   analyzer.ParseIdentity(student),
		Extraction: extraction,
		Delta:      delta,
		GDT:        gdt,
		Grade:      grade,
	}
}

func (s *gradingService) Policy() models.GradingPolicyView {
	p := s.aggregator.Policy()
	return models.GradingPolicyView{
		ComplexityThreshold: s.config.Cluster.ComplexityThreshold,
		VolumeTolerance:     s.config.Cluster.VolumeTolerance,
		HashAlgorithm:       s.config.HashAlgorithm,
		AccuracyGrades:      bandViews(p.Accuracy),
		GDTGrades:           bandViews(p.GDT),
		OverallGrades:       bandViews(p.Overall),
		AccuracyWeight:      p.AccuracyWeight,
		GDTWeight:           p.GDTWeight,
	}
}

func bandViews(scale analyzer.GradeScale) []models.GradeBandView {
	views := make([]models.GradeBandView, 0, len(scale.Bands))
	for _, b := range scale.Bands {
		views = append(views, models.GradeBandView{Threshold: b.Threshold, Grade: b.Grade})
	}
	return views
}

func (s *gradingService) Stats() Stats {
	return Stats{
		JobsCompleted: s.completed.Load(),
		JobsFailed:    s.failed.Load(),
	}
}
