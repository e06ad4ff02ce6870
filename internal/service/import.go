package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LariSevilha/comment-analysis/internal/breaker"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
	"github.com/LariSevilha/comment-analysis/internal/source"
)

// ContentAPI is the external content source collaborator.
type ContentAPI interface {
	Users(ctx context.Context) ([]source.ExternalUser, error)
	PostsByUser(ctx context.Context, userID int64) ([]source.ExternalPost, error)
	CommentsByPost(ctx context.Context, postID int64) ([]source.ExternalComment, error)
}

// ImportStats summarizes one import run.
type ImportStats struct {
	User          *domain.User
	PostsCount    int
	CommentsCount int
	TasksEnqueued int
}

// ImportConfig tunes the orchestrator.
type ImportConfig struct {
	// FetchConcurrency bounds parallel comment fetches across posts.
	FetchConcurrency int
	// RetryMaxAttempts is the inline retry budget per external call,
	// separate from the queue-level retry policy.
	RetryMaxAttempts int
	RetryBaseBackoff time.Duration
	// ImportShare is the percent of job progress the import phase
	// contributes; the rest is split across per-comment tasks.
	ImportShare int
}

func (c *ImportConfig) withDefaults() ImportConfig {
	cfg := *c
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBaseBackoff <= 0 {
		cfg.RetryBaseBackoff = 500 * time.Millisecond
	}
	if cfg.ImportShare <= 0 || cfg.ImportShare >= 100 {
		cfg.ImportShare = 50
	}
	return cfg
}

// ImportService fetches a user and its posts/comments from the content
// source, upserts them idempotently, and fans out one translation task
// per comment still in the new state.
type ImportService struct {
	content     ContentAPI
	users       *repository.UserRepository
	posts       *repository.PostRepository
	comments    *repository.CommentRepository
	jobs        *repository.JobRepository
	queue       queue.Queue
	breaker     *breaker.Breaker
	invalidator *cache.Invalidator
	cfg         ImportConfig
	log         *logger.Logger

	// sleep is swapped in tests to skip real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewImportService creates the import orchestrator.
func NewImportService(
	content ContentAPI,
	users *repository.UserRepository,
	posts *repository.PostRepository,
	comments *repository.CommentRepository,
	jobs *repository.JobRepository,
	q queue.Queue,
	brk *breaker.Breaker,
	invalidator *cache.Invalidator,
	cfg *ImportConfig,
	log *logger.Logger,
) *ImportService {
	if cfg == nil {
		cfg = &ImportConfig{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &ImportService{
		content:     content,
		users:       users,
		posts:       posts,
		comments:    comments,
		jobs:        jobs,
		queue:       q,
		breaker:     brk,
		invalidator: invalidator,
		cfg:         cfg.withDefaults(),
		log:         log,
		sleep:       sleepCtx,
	}
}

// ImportUser runs the import phase of a job. UserNotFound discards the
// run and fails the job; transient failures are retried inline and, once
// exhausted, surface as APIError for the queue's own retry policy.
func (s *ImportService) ImportUser(ctx context.Context, jobID, username string) (*ImportStats, error) {
	ctx = logger.SetJobID(ctx, jobID)
	log := logger.FromContext(ctx).WithField(logger.FieldUsername, username)
	log.Info("Starting import")

	stats, err := s.runImport(ctx, jobID, username)
	if err != nil {
		var notFound *domain.UserNotFoundError
		if errors.As(err, &notFound) {
			s.failJob(ctx, jobID, notFound.Error())
			return nil, err
		}

		apiErr := &domain.APIError{Service: "content source", Err: err}
		s.failJob(ctx, jobID, apiErr.Error())
		return nil, apiErr
	}

	log.WithFields(logger.Fields{
		"posts":    stats.PostsCount,
		"comments": stats.CommentsCount,
		"tasks":    stats.TasksEnqueued,
	}).Info("Import completed")
	return stats, nil
}

func (s *ImportService) runImport(ctx context.Context, jobID, username string) (*ImportStats, error) {
	external, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Upsert(ctx, &domain.User{
		ExternalID: external.ID,
		Name:       external.Name,
		Username:   external.Username,
		Email:      external.Email,
	})
	if err != nil {
		return nil, err
	}

	var externalPosts []source.ExternalPost
	err = s.withRetry(ctx, "fetch posts", func(callCtx context.Context) error {
		posts, err := s.content.PostsByUser(callCtx, external.ID)
		if err != nil {
			return err
		}
		externalPosts = posts
		return nil
	})
	if err != nil {
		return nil, err
	}

	postIDs := make([]uint, 0, len(externalPosts))
	var (
		mu            sync.Mutex
		commentsTotal int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)

	for _, externalPost := range externalPosts {
		post, err := s.posts.Upsert(ctx, &domain.Post{
			ExternalID: externalPost.ID,
			UserID:     user.ID,
			Title:      externalPost.Title,
			Body:       externalPost.Body,
		})
		if err != nil {
			return nil, err
		}
		postIDs = append(postIDs, post.ID)

		externalPostID := externalPost.ID
		localPostID := post.ID
		g.Go(func() error {
			var externalComments []source.ExternalComment
			err := s.withRetry(gctx, "fetch comments", func(callCtx context.Context) error {
				comments, err := s.content.CommentsByPost(callCtx, externalPostID)
				if err != nil {
					return err
				}
				externalComments = comments
				return nil
			})
			if err != nil {
				return err
			}

			for _, externalComment := range externalComments {
				if _, err := s.comments.Upsert(gctx, &domain.Comment{
					ExternalID: externalComment.ID,
					PostID:     localPostID,
					Name:       externalComment.Name,
					Email:      externalComment.Email,
					Body:       externalComment.Body,
				}); err != nil {
					return err
				}
				mu.Lock()
				commentsTotal++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Imported comments change this user's derived data.
	if s.invalidator != nil {
		userID := user.ID
		if err := s.invalidator.Fire(ctx, cache.TriggerCommentChange, &userID); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Cache invalidation after import failed")
		}
	}

	// The import phase contributes its fixed share of job progress.
	if _, err := s.jobs.UpdateProgress(ctx, jobID, s.cfg.ImportShare, ""); err != nil {
		return nil, err
	}

	enqueued, err := s.enqueueTranslationTasks(ctx, jobID, postIDs)
	if err != nil {
		return nil, err
	}

	return &ImportStats{
		User:          user,
		PostsCount:    len(postIDs),
		CommentsCount: commentsTotal,
		TasksEnqueued: enqueued,
	}, nil
}

// resolveUser matches the username case-insensitively against the
// external user list. Not finding it is terminal, never retried.
func (s *ImportService) resolveUser(ctx context.Context, username string) (*source.ExternalUser, error) {
	var users []source.ExternalUser
	err := s.withRetry(ctx, "fetch users", func(callCtx context.Context) error {
		fetched, err := s.content.Users(callCtx)
		if err != nil {
			return err
		}
		users = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, &domain.UserNotFoundError{Username: username}
}

// enqueueTranslationTasks fans out one task per comment in new state.
// If the job has no comments to process, the run completes immediately.
func (s *ImportService) enqueueTranslationTasks(ctx context.Context, jobID string, postIDs []uint) (int, error) {
	newComments, err := s.comments.ListByStatusForPosts(ctx, postIDs, domain.CommentStatusNew)
	if err != nil {
		return 0, err
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}

	if len(newComments) == 0 {
		if _, err := s.jobs.UpdateProgress(ctx, jobID, job.Total, ""); err != nil {
			return 0, err
		}
		return 0, nil
	}

	for i, comment := range newComments {
		task, err := queue.NewTask(queue.KindTranslateComment, queue.TranslateCommentPayload{
			JobID:     jobID,
			CommentID: comment.ID,
			Index:     i + 1,
			Total:     len(newComments),
		})
		if err != nil {
			return i, err
		}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			return i, err
		}
	}
	return len(newComments), nil
}

// withRetry runs fn through the circuit breaker with bounded exponential
// backoff. Only transient failures are retried; an open circuit fails
// fast without burning attempts.
func (s *ImportService) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.RetryMaxAttempts; attempt++ {
		lastErr = s.breaker.Execute(ctx, fn)
		if lastErr == nil {
			return nil
		}

		var open *breaker.CircuitOpenError
		if errors.As(lastErr, &open) {
			return lastErr
		}
		if !breaker.DefaultCountable(lastErr) {
			return lastErr
		}
		if attempt == s.cfg.RetryMaxAttempts {
			break
		}

		backoff := s.cfg.RetryBaseBackoff * (1 << (attempt - 1))
		logger.FromContext(ctx).WithError(lastErr).WithFields(logger.Fields{
			"op":      op,
			"attempt": attempt,
			"backoff": backoff.String(),
		}).Warn("Transient failure, retrying")

		if err := s.sleep(ctx, backoff); err != nil {
			return err
		}
	}
	return lastErr
}

func (s *ImportService) failJob(ctx context.Context, jobID, message string) {
	if _, err := s.jobs.UpdateProgress(ctx, jobID, 0, message); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to mark job as failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
