package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LariSevilha/comment-analysis/internal/alert"
	"github.com/LariSevilha/comment-analysis/internal/breaker"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
	"github.com/LariSevilha/comment-analysis/internal/source"
)

// env bundles the full service wiring over in-memory infrastructure.
type env struct {
	db          *gorm.DB
	cache       *cache.Cache
	invalidator *cache.Invalidator
	queue       *queue.MemoryQueue
	content     *fakeContent
	translator  *fakeTranslator

	users    *repository.UserRepository
	posts    *repository.PostRepository
	comments *repository.CommentRepository
	keywords *repository.KeywordRepository
	jobs     *repository.JobRepository

	importer   *ImportService
	pipeline   *PipelineService
	metrics    *MetricsService
	classifier *ClassificationService
	analysis   *AnalysisService
	keywordSvc *KeywordService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	// Each pool connection to a mattn ":memory:" DSN opens its own empty
	// database, so cap the pool at one connection to keep the migrated
	// schema visible to concurrent workers.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Keyword{},
		&domain.AnalysisJob{},
	))

	log := logger.Default()
	c := cache.New("test", cache.NewMemoryStore(), cache.NewStats(), log)
	invalidator := cache.NewInvalidator(c, log)
	q := queue.NewMemoryQueue(64)

	brk, err := breaker.New(breaker.Config{
		Name:             "test-upstream",
		FailureThreshold: 5,
		RecoveryTimeout:  time.Second,
		SuccessThreshold: 1,
		CallTimeout:      time.Second,
	}, c, breaker.DefaultCountable, alert.NewLogNotifier(log), log)
	require.NoError(t, err)

	e := &env{
		db:          db,
		cache:       c,
		invalidator: invalidator,
		queue:       q,
		content:     newFakeContent(),
		translator:  &fakeTranslator{},
		users:       repository.NewUserRepository(db),
		posts:       repository.NewPostRepository(db),
		comments:    repository.NewCommentRepository(db),
		keywords:    repository.NewKeywordRepository(db),
		jobs:        repository.NewJobRepository(db),
	}

	metricsRepo := repository.NewMetricsRepository(db)
	e.metrics = NewMetricsService(metricsRepo, c, invalidator, log)
	e.classifier = NewClassificationService(e.keywords, c, 2, log)

	translation := NewTranslationService(e.translator, brk, c, "pt", "en", log)
	e.pipeline = NewPipelineService(e.comments, e.jobs, translation, e.classifier, e.metrics, 50, log)

	e.importer = NewImportService(e.content, e.users, e.posts, e.comments, e.jobs, q, brk, invalidator, &ImportConfig{
		FetchConcurrency: 2,
		RetryMaxAttempts: 3,
		RetryBaseBackoff: time.Millisecond,
		ImportShare:      50,
	}, log)
	e.importer.sleep = func(context.Context, time.Duration) error { return nil }

	e.analysis = NewAnalysisService(e.jobs, q, e.classifier, log)
	e.keywordSvc = NewKeywordService(e.keywords, invalidator, q, log)
	return e
}

func (e *env) newJob(t *testing.T) *domain.AnalysisJob {
	t.Helper()
	job := &domain.AnalysisJob{ID: fmt.Sprintf("job-%d", time.Now().UnixNano()), Status: domain.JobStatusPending, Total: 100}
	require.NoError(t, e.jobs.Create(context.Background(), job))
	return job
}

func (e *env) seedKeywords(t *testing.T, words ...string) {
	t.Helper()
	for _, word := range words {
		require.NoError(t, e.keywords.Create(context.Background(), &domain.Keyword{Word: word, Active: true}))
	}
}

// drainQueue pops every queued task without blocking.
func (e *env) drainQueue(t *testing.T) []*queue.Task {
	t.Helper()
	var tasks []*queue.Task
	for {
		task, err := e.queue.Dequeue(context.Background(), 10*time.Millisecond)
		if errors.Is(err, queue.ErrEmpty) {
			return tasks
		}
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
}

// fakeContent is an in-memory content source with failure injection.
type fakeContent struct {
	mu       sync.Mutex
	users    []source.ExternalUser
	posts    map[int64][]source.ExternalPost
	comments map[int64][]source.ExternalComment

	usersCalls    int
	usersFailures int
	failWith      error
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		posts:    map[int64][]source.ExternalPost{},
		comments: map[int64][]source.ExternalComment{},
	}
}

// seedAlice loads the canonical fixture: one user with two posts of
// three comments each.
func (f *fakeContent) seedAlice() {
	f.users = []source.ExternalUser{
		{ID: 1, Name: "Alice", Username: "alice", Email: "alice@example.com"},
	}
	f.posts[1] = []source.ExternalPost{
		{ID: 10, UserID: 1, Title: "first", Body: "post one"},
		{ID: 11, UserID: 1, Title: "second", Body: "post two"},
	}
	externalID := int64(100)
	for _, postID := range []int64{10, 11} {
		for i := 0; i < 3; i++ {
			f.comments[postID] = append(f.comments[postID], source.ExternalComment{
				ID:     externalID,
				PostID: postID,
				Name:   "commenter",
				Email:  "commenter@example.com",
				Body:   fmt.Sprintf("comment %d", externalID),
			})
			externalID++
		}
	}
}

func (f *fakeContent) Users(context.Context) ([]source.ExternalUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usersCalls++
	if f.usersFailures > 0 {
		f.usersFailures--
		if f.failWith != nil {
			return nil, f.failWith
		}
		return nil, &source.HTTPStatusError{Service: "content source", StatusCode: 502}
	}
	return f.users, nil
}

func (f *fakeContent) PostsByUser(_ context.Context, userID int64) ([]source.ExternalPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[userID], nil
}

func (f *fakeContent) CommentsByPost(_ context.Context, postID int64) ([]source.ExternalComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[postID], nil
}

// fakeTranslator echoes text with a marker prefix, or fails on demand.
type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "[translated] " + text, nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
