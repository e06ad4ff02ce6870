package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/source"
)

func TestImportUserBuildsTreeAndEnqueuesTasks(t *testing.T) {
	e := newEnv(t)
	e.content.seedAlice()
	job := e.newJob(t)
	ctx := context.Background()

	stats, err := e.importer.ImportUser(ctx, job.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PostsCount)
	assert.Equal(t, 6, stats.CommentsCount)
	assert.Equal(t, 6, stats.TasksEnqueued)

	var userCount, postCount, commentCount int64
	require.NoError(t, e.db.Model(&domain.User{}).Count(&userCount).Error)
	require.NoError(t, e.db.Model(&domain.Post{}).Count(&postCount).Error)
	require.NoError(t, e.db.Model(&domain.Comment{}).Count(&commentCount).Error)
	assert.Equal(t, int64(1), userCount)
	assert.Equal(t, int64(2), postCount)
	assert.Equal(t, int64(6), commentCount)

	comments, err := e.comments.ListByStatus(ctx, domain.CommentStatusNew, 100, 0)
	require.NoError(t, err)
	assert.Len(t, comments, 6, "every imported comment starts in new")

	updated, err := e.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Progress, "import phase contributes its fixed share")
	assert.Equal(t, domain.JobStatusProcessing, updated.Status)

	tasks := e.drainQueue(t)
	require.Len(t, tasks, 6)
	for i, task := range tasks {
		assert.Equal(t, queue.KindTranslateComment, task.Kind)
		var payload queue.TranslateCommentPayload
		require.NoError(t, task.DecodePayload(&payload))
		assert.Equal(t, job.ID, payload.JobID)
		assert.Equal(t, i+1, payload.Index)
		assert.Equal(t, 6, payload.Total)
	}
}

func TestImportUserIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.content.seedAlice()
	ctx := context.Background()

	_, err := e.importer.ImportUser(ctx, e.newJob(t).ID, "alice")
	require.NoError(t, err)
	_, err = e.importer.ImportUser(ctx, e.newJob(t).ID, "alice")
	require.NoError(t, err)

	var userCount, commentCount int64
	require.NoError(t, e.db.Model(&domain.User{}).Count(&userCount).Error)
	require.NoError(t, e.db.Model(&domain.Comment{}).Count(&commentCount).Error)
	assert.Equal(t, int64(1), userCount)
	assert.Equal(t, int64(6), commentCount)
}

func TestImportUserMatchesUsernameCaseInsensitively(t *testing.T) {
	e := newEnv(t)
	e.content.seedAlice()

	stats, err := e.importer.ImportUser(context.Background(), e.newJob(t).ID, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice", stats.User.Username)
}

func TestImportUserUnknownUsernameFailsJob(t *testing.T) {
	e := newEnv(t)
	e.content.seedAlice()
	job := e.newJob(t)
	ctx := context.Background()

	_, err := e.importer.ImportUser(ctx, job.ID, "nobody")
	var notFound *domain.UserNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody", notFound.Username)

	updated, err := e.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, updated.Status)
	assert.Contains(t, updated.ErrorMessage, "nobody")

	assert.Equal(t, 1, e.content.usersCalls, "not-found is terminal, never retried")
	assert.Empty(t, e.drainQueue(t))
}

func TestImportUserRetriesTransientFailures(t *testing.T) {
	e := newEnv(t)
	e.content.seedAlice()
	e.content.usersFailures = 2

	stats, err := e.importer.ImportUser(context.Background(), e.newJob(t).ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 6, stats.CommentsCount)
	assert.Equal(t, 3, e.content.usersCalls)
}

func TestImportUserExhaustedRetriesSurfaceAPIError(t *testing.T) {
	e := newEnv(t)
	e.content.seedAlice()
	e.content.usersFailures = 10
	job := e.newJob(t)
	ctx := context.Background()

	_, err := e.importer.ImportUser(ctx, job.ID, "alice")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3, e.content.usersCalls, "inline retry budget is bounded")

	updated, getErr := e.jobs.GetByID(ctx, job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.JobStatusFailed, updated.Status)
}

func TestImportUserWithNoCommentsCompletesJob(t *testing.T) {
	e := newEnv(t)
	e.content.users = []source.ExternalUser{
		{ID: 7, Name: "Bob", Username: "bob", Email: "bob@example.com"},
	}
	job := e.newJob(t)
	ctx := context.Background()

	stats, err := e.importer.ImportUser(ctx, job.ID, "bob")
	require.NoError(t, err)
	assert.Zero(t, stats.TasksEnqueued)

	updated, err := e.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, updated.Status)
	assert.Equal(t, updated.Total, updated.Progress)
}
