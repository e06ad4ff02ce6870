package service

import (
	"context"
	"errors"

	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
	"gorm.io/gorm"
)

// PipelineService drives one comment through translate and classify.
// Each queue task processes exactly one comment; the database status
// column is the coordination point, so two workers racing on the same
// comment resolve through the conditional status update.
type PipelineService struct {
	comments    *repository.CommentRepository
	jobs        *repository.JobRepository
	translation *TranslationService
	classifier  *ClassificationService
	metrics     *MetricsService
	importShare int
	log         *logger.Logger
}

// NewPipelineService creates the pipeline service. importShare must
// match the import orchestrator's so per-comment progress deltas fill
// exactly the remaining share.
func NewPipelineService(
	comments *repository.CommentRepository,
	jobs *repository.JobRepository,
	translation *TranslationService,
	classifier *ClassificationService,
	metrics *MetricsService,
	importShare int,
	log *logger.Logger,
) *PipelineService {
	if importShare <= 0 || importShare >= 100 {
		importShare = 50
	}
	if log == nil {
		log = logger.Default()
	}
	return &PipelineService{
		comments:    comments,
		jobs:        jobs,
		translation: translation,
		classifier:  classifier,
		metrics:     metrics,
		importShare: importShare,
		log:         log,
	}
}

// ProcessComment handles one translate_comment task. Guard refusals and
// lost races skip the comment without failing the task; a comment found
// already in processing is resumed, since each task owns exactly one
// comment and redelivery means the prior attempt died. Classification
// failures force-reject the comment so a job can always finish.
func (s *PipelineService) ProcessComment(ctx context.Context, payload queue.TranslateCommentPayload) error {
	ctx = logger.SetJobID(ctx, payload.JobID)
	ctx = logger.SetCommentID(ctx, payload.CommentID)
	log := logger.FromContext(ctx)

	comment, err := s.comments.GetByID(ctx, payload.CommentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Comment vanished before processing, skipping")
			return s.advanceProgress(ctx, payload)
		}
		return err
	}

	switch comment.Status {
	case domain.CommentStatusNew:
		from := comment.Status
		if _, err := domain.ApplyTransition(comment, domain.TransitionStartProcessing); err != nil {
			var invalid *domain.InvalidTransitionError
			if errors.As(err, &invalid) {
				log.WithField("reason", invalid.Error()).Warn("Comment not eligible for processing, skipping")
				return s.advanceProgress(ctx, payload)
			}
			return err
		}
		if err := s.comments.UpdateStatusFrom(ctx, comment.ID, from, comment.Status); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				log.Debug("Lost the processing race for comment, skipping")
				return nil
			}
			return err
		}
	case domain.CommentStatusProcessing:
		// Redelivery after a worker died mid-flight. This task owns the
		// comment, so resume where the previous attempt stopped.
		log.Info("Resuming half-processed comment")
	default:
		log.WithField(logger.FieldStatus, string(comment.Status)).Debug("Comment already decided, skipping")
		return s.advanceProgress(ctx, payload)
	}

	translated := s.translation.Translate(ctx, comment.Body)
	if err := s.comments.UpdateTranslatedBody(ctx, comment.ID, translated); err != nil {
		return err
	}
	comment.TranslatedBody = &translated

	count, approved, classifyErr := s.classifier.ClassifyComment(ctx, comment)
	if classifyErr != nil {
		log.WithError(classifyErr).Error("Classification failed, rejecting comment")
		if err := s.finishComment(ctx, comment, domain.TransitionReject); err != nil {
			return err
		}
		if err := s.advanceProgress(ctx, payload); err != nil {
			return err
		}
		return &domain.ClassificationError{CommentID: comment.ID, Err: classifyErr}
	}

	// The count is persisted before the terminal transition so metrics
	// computed on the new status always see it.
	if err := s.comments.UpdateKeywordCount(ctx, comment.ID, count); err != nil {
		return err
	}
	comment.KeywordCount = &count

	transition := domain.TransitionReject
	if approved {
		transition = domain.TransitionApprove
	}
	if err := s.finishComment(ctx, comment, transition); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		logger.FieldStatus: string(comment.Status),
		logger.FieldCount:  count,
	}).Info("Comment processed")
	return s.advanceProgress(ctx, payload)
}

// ReclassifyAll re-runs classification over every terminal comment,
// re-entering them through the reprocess edge. Keyword-set changes are
// the only caller. Failures on single comments are logged and skipped
// so one bad row cannot wedge the whole sweep.
func (s *PipelineService) ReclassifyAll(ctx context.Context, reason string) error {
	log := logger.FromContext(ctx).WithField("reason", reason)
	log.Info("Starting reclassification sweep")

	comments, err := s.comments.ListTerminal(ctx)
	if err != nil {
		return err
	}

	affectedUsers := map[uint]struct{}{}
	reclassified := 0
	for i := range comments {
		comment := &comments[i]
		changed, err := s.reclassifyOne(ctx, comment)
		if err != nil {
			log.WithError(err).WithField(logger.FieldCommentID, comment.ID).Warn("Skipping comment during reclassification")
			continue
		}
		reclassified++
		if changed {
			userID, err := s.comments.OwnerUserID(ctx, comment.ID)
			if err == nil {
				affectedUsers[userID] = struct{}{}
			}
		}
	}

	for userID := range affectedUsers {
		if err := s.metrics.Recalculate(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Metrics recalculation failed after reclassification")
		}
	}

	log.WithFields(logger.Fields{
		logger.FieldCount: reclassified,
		"users_affected":  len(affectedUsers),
	}).Info("Reclassification sweep finished")
	return nil
}

// reclassifyOne moves one terminal comment back through processing and
// re-applies the verdict. Returns whether the final status changed.
func (s *PipelineService) reclassifyOne(ctx context.Context, comment *domain.Comment) (bool, error) {
	previous := comment.Status

	if _, err := domain.ApplyTransition(comment, domain.TransitionReprocess); err != nil {
		return false, err
	}
	if err := s.comments.UpdateStatusFrom(ctx, comment.ID, previous, comment.Status); err != nil {
		// Lost to a concurrent transition; that writer owns the comment now.
		if errors.Is(err, repository.ErrStaleStatus) {
			return false, nil
		}
		return false, err
	}

	count, approved, err := s.classifier.ClassifyComment(ctx, comment)
	if err != nil {
		if finishErr := s.finishCommentNoMetrics(ctx, comment, domain.TransitionReject); finishErr != nil {
			return false, finishErr
		}
		return previous != domain.CommentStatusRejected, nil
	}

	if err := s.comments.UpdateKeywordCount(ctx, comment.ID, count); err != nil {
		return false, err
	}
	comment.KeywordCount = &count

	transition := domain.TransitionReject
	if approved {
		transition = domain.TransitionApprove
	}
	if err := s.finishCommentNoMetrics(ctx, comment, transition); err != nil {
		return false, err
	}
	return previous != comment.Status, nil
}

// finishComment applies a terminal transition, persists it, and honors
// the event's metrics recalculation request.
func (s *PipelineService) finishComment(ctx context.Context, comment *domain.Comment, tr domain.Transition) error {
	event, err := s.applyAndPersist(ctx, comment, tr)
	if err != nil {
		return err
	}
	if event != nil && event.RecalculateMetrics {
		userID, err := s.comments.OwnerUserID(ctx, comment.ID)
		if err != nil {
			return err
		}
		if err := s.metrics.Recalculate(ctx, userID); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Metrics recalculation failed")
		}
	}
	return nil
}

// finishCommentNoMetrics is the sweep variant: reclassification batches
// the recalculation at the end instead of per comment.
func (s *PipelineService) finishCommentNoMetrics(ctx context.Context, comment *domain.Comment, tr domain.Transition) error {
	_, err := s.applyAndPersist(ctx, comment, tr)
	return err
}

func (s *PipelineService) applyAndPersist(ctx context.Context, comment *domain.Comment, tr domain.Transition) (*domain.TransitionEvent, error) {
	from := comment.Status
	event, err := domain.ApplyTransition(comment, tr)
	if err != nil {
		return nil, err
	}
	if err := s.comments.UpdateStatusFrom(ctx, comment.ID, from, comment.Status); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			logger.FromContext(ctx).Debug("Comment status moved concurrently, dropping transition")
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// advanceProgress credits this task's slice of the job's remaining
// progress. Integer flooring of cumulative shares makes the deltas sum
// exactly to the remaining share regardless of comment count.
func (s *PipelineService) advanceProgress(ctx context.Context, payload queue.TranslateCommentPayload) error {
	if payload.Total <= 0 {
		return nil
	}
	remaining := 100 - s.importShare
	delta := cumulativeShare(payload.Index, payload.Total, remaining) -
		cumulativeShare(payload.Index-1, payload.Total, remaining)
	if delta == 0 {
		return nil
	}
	_, err := s.jobs.IncrementProgress(ctx, payload.JobID, delta)
	return err
}

func cumulativeShare(index, total, remaining int) int {
	if index <= 0 {
		return 0
	}
	return index * remaining / total
}
