package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/floratings/internal/jobs"
)

func TestJobsListNoJobs(t *testing.T) {
	jobsDir = t.TempDir()
	assert.NoError(t, runJobsList(jobsListCmd, nil))
}

func TestJobsListAndShow(t *testing.T) {
	jobsDir = t.TempDir()
	registry := jobs.NewRegistry(jobsDir)
	now := time.Now().UTC()
	require.NoError(t, registry.Write(&jobs.Record{
		JobID:     "abc",
		Command:   "crawl",
		State:     jobs.StateSuccess,
		CreatedAt: now,
		StartedAt: &now,
	}))

	assert.NoError(t, runJobsList(jobsListCmd, nil))
	assert.NoError(t, runJobsShow(jobsShowCmd, []string{"abc"}))
}

func TestJobsShowMissing(t *testing.T) {
	jobsDir = t.TempDir()
	assert.Error(t, runJobsShow(jobsShowCmd, []string{"nope"}))
}
