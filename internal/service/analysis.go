package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
)

// ProgressReport is the client-facing view of a job.
type ProgressReport struct {
	JobID      string           `json:"job_id"`
	Status     domain.JobStatus `json:"status"`
	Progress   int              `json:"progress"`
	Total      int              `json:"total"`
	Percentage float64          `json:"percentage"`
	Error      string           `json:"error,omitempty"`
}

// ClassifyPreviewResult scores ad-hoc text without touching any comment.
type ClassifyPreviewResult struct {
	KeywordCount int  `json:"keyword_count"`
	Approved     bool `json:"approved"`
}

// AnalysisService is the API-facing entry point: it creates jobs, hands
// the work to the queue, and answers progress polls.
type AnalysisService struct {
	jobs       *repository.JobRepository
	queue      queue.Queue
	classifier *ClassificationService
	log        *logger.Logger
}

// NewAnalysisService creates the analysis service.
func NewAnalysisService(jobs *repository.JobRepository, q queue.Queue, classifier *ClassificationService, log *logger.Logger) *AnalysisService {
	if log == nil {
		log = logger.Default()
	}
	return &AnalysisService{jobs: jobs, queue: q, classifier: classifier, log: log}
}

// StartAnalysis creates a pending job for the username and enqueues the
// import task. Returns immediately with the job id; all work is async.
func (s *AnalysisService) StartAnalysis(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)

	job := &domain.AnalysisJob{
		ID:     uuid.New().String(),
		Status: domain.JobStatusPending,
		Total:  100,
	}
	if err := job.SetMetadata(map[string]string{"username": username}); err != nil {
		return "", err
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	task, err := queue.NewTask(queue.KindImportUser, queue.ImportUserPayload{
		JobID:    job.ID,
		Username: username,
	})
	if err != nil {
		return "", err
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return "", err
	}

	s.log.WithFields(logger.Fields{
		logger.FieldJobID:    job.ID,
		logger.FieldUsername: username,
	}).Info("Analysis job created")
	return job.ID, nil
}

// GetProgress reports the current state of a job.
func (s *AnalysisService) GetProgress(ctx context.Context, jobID string) (*ProgressReport, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &ProgressReport{
		JobID:      job.ID,
		Status:     job.Status,
		Progress:   job.Progress,
		Total:      job.Total,
		Percentage: job.ProgressPercentage(),
		Error:      job.ErrorMessage,
	}, nil
}

// ClassifyPreview scores free text synchronously against the active
// keyword set. Nothing is persisted.
func (s *AnalysisService) ClassifyPreview(ctx context.Context, text string) *ClassifyPreviewResult {
	count, approved := s.classifier.Evaluate(ctx, text)
	return &ClassifyPreviewResult{KeywordCount: count, Approved: approved}
}
