package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/queue"
)

func TestStartAnalysisCreatesJobAndEnqueuesImport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	jobID, err := e.analysis.StartAnalysis(ctx, "  alice  ")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := e.jobs.GetByID(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 100, job.Total)
	assert.Equal(t, "alice", job.MetadataMap()["username"])

	tasks := e.drainQueue(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, queue.KindImportUser, tasks[0].Kind)
	var payload queue.ImportUserPayload
	require.NoError(t, tasks[0].DecodePayload(&payload))
	assert.Equal(t, jobID, payload.JobID)
	assert.Equal(t, "alice", payload.Username)
}

func TestGetProgressReportsPercentage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.newJob(t)

	_, err := e.jobs.UpdateProgress(ctx, job.ID, 50, "")
	require.NoError(t, err)

	report, err := e.analysis.GetProgress(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, report.Status)
	assert.Equal(t, 50, report.Progress)
	assert.InDelta(t, 50.0, report.Percentage, 0.001)
	assert.Empty(t, report.Error)
}

func TestGetProgressSurfacesFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.newJob(t)

	_, err := e.jobs.UpdateProgress(ctx, job.ID, 0, "user \"ghost\" not found")
	require.NoError(t, err)

	report, err := e.analysis.GetProgress(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, report.Status)
	assert.Contains(t, report.Error, "ghost")
}

func TestClassifyPreviewScoresWithoutPersisting(t *testing.T) {
	e := newEnv(t)
	e.seedKeywords(t, "ótimo", "excelente", "incrível")
	ctx := context.Background()

	result := e.analysis.ClassifyPreview(ctx, "Este produto é ótimo e excelente")
	assert.Equal(t, 2, result.KeywordCount)
	assert.True(t, result.Approved)

	result = e.analysis.ClassifyPreview(ctx, "nada de mais")
	assert.Zero(t, result.KeywordCount)
	assert.False(t, result.Approved)

	var commentCount int64
	require.NoError(t, e.db.Model(&domain.Comment{}).Count(&commentCount).Error)
	assert.Zero(t, commentCount)
}
