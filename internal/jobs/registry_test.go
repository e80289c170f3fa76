package jobs

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryWriteGet(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	now := time.Now().UTC()
	rec := &Record{
		JobID:     "job-1",
		Command:   "crawl",
		Args:      []string{"--seed", "abc"},
		State:     StateSuccess,
		PID:       0,
		CreatedAt: now,
		StartedAt: &now,
	}

	require.NoError(t, r.Write(rec))

	got, err := r.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "crawl", got.Command)
	assert.Equal(t, StateSuccess, got.State)
}

func TestRegistryGetMissing(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	_, err := r.Get("nope")
	assert.Error(t, err)
}

func TestRegistryGetReconcilesDeadPID(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	now := time.Now().UTC()
	rec := &Record{
		JobID:     "job-2",
		Command:   "rate",
		State:     StateRunning,
		PID:       999999, // exceedingly unlikely to be a live PID
		CreatedAt: now,
		StartedAt: &now,
	}
	require.NoError(t, r.Write(rec))

	got, err := r.Get("job-2")
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, got.State)
	assert.NotNil(t, got.EndedAt)
}

func TestRegistryGetKeepsLiveRunning(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	now := time.Now().UTC()
	rec := &Record{
		JobID:     "job-3",
		Command:   "evaluate",
		State:     StateRunning,
		PID:       os.Getpid(),
		CreatedAt: now,
		StartedAt: &now,
	}
	require.NoError(t, r.Write(rec))

	got, err := r.Get("job-3")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, got.State)
}

func TestRegistryList(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	t1 := time.Now().Add(-time.Hour).UTC()
	t2 := time.Now().UTC()

	require.NoError(t, r.Write(&Record{JobID: "older", Command: "crawl", State: StateSuccess, CreatedAt: t1, StartedAt: &t1}))
	require.NoError(t, r.Write(&Record{JobID: "newer", Command: "rate", State: StateSuccess, CreatedAt: t2, StartedAt: &t2}))

	records, err := r.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newer", records[0].JobID)
	assert.Equal(t, "older", records[1].JobID)
}

func TestRegistryListEmptyDir(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	records, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIsProcessAliveSelf(t *testing.T) {
	assert.True(t, isProcessAlive(os.Getpid()))
}

func TestIsProcessAliveExited(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	assert.False(t, isProcessAlive(cmd.Process.Pid))
}
