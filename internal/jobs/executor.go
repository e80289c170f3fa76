package jobs

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// Executor starts gonimbus-ratings subcommands as detached background
// processes and records them in a Registry.
type Executor struct {
	registry *Registry
	exePath  func() (string, error)
}

// NewExecutor constructs an Executor whose Registry is rooted at dir.
func NewExecutor(dir string) *Executor {
	return &Executor{registry: NewRegistry(dir), exePath: os.Executable}
}

// Registry returns the underlying job Registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// StdoutPath returns the stdout log path for jobID.
func (e *Executor) StdoutPath(jobID string) string {
	return e.registry.JobDir(jobID) + "/stdout.log"
}

// StderrPath returns the stderr log path for jobID.
func (e *Executor) StderrPath(jobID string) string {
	return e.registry.JobDir(jobID) + "/stderr.log"
}

// StartBackground launches "gonimbus-ratings <command> <args...>" as a
// detached child process, redirecting its stdout/stderr to per-job log
// files, and records the resulting Record in the Registry.
//
// The child is invoked with a trailing "--_managed-job-id <id>" pair. No
// command in internal/cmd defines that flag or calls Finish, so a record
// stays in the running state until Finish is called for it.
func (e *Executor) StartBackground(command string, args []string) (*Record, error) {
	exe, err := e.exePath()
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}

	jobID := uuid.NewString()
	jobDir := e.registry.JobDir(jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}

	stdoutPath := e.StdoutPath(jobID)
	stderrPath := e.StderrPath(jobID)

	stdoutFile, err := os.Create(stdoutPath)
	if err != nil {
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	defer stdoutFile.Close()

	stderrFile, err := os.Create(stderrPath)
	if err != nil {
		return nil, fmt.Errorf("create stderr log: %w", err)
	}
	defer stderrFile.Close()

	fullArgs := append([]string{command}, args...)
	fullArgs = append(fullArgs, "--_managed-job-id", jobID)

	cmd := exec.Command(exe, fullArgs...)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	now := time.Now().UTC()
	rec := &Record{
		JobID:      jobID,
		Command:    command,
		Args:       args,
		State:      StateRunning,
		CreatedAt:  now,
		StartedAt:  &now,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
	}

	if err := cmd.Start(); err != nil {
		rec.State = StateFailed
		endedAt := time.Now().UTC()
		rec.EndedAt = &endedAt
		_ = e.registry.Write(rec)
		return rec, fmt.Errorf("start %s: %w", command, err)
	}

	rec.PID = cmd.Process.Pid
	if err := e.registry.Write(rec); err != nil {
		return rec, fmt.Errorf("persist job record: %w", err)
	}

	go func() {
		_ = cmd.Wait()
	}()

	return rec, nil
}

// Finish records that jobID has exited with exitCode, stamping its end time
// and marking it succeeded (exit code 0) or failed.
func (e *Executor) Finish(jobID string, exitCode int) error {
	rec, err := e.registry.Get(jobID)
	if err != nil {
		return fmt.Errorf("load job record: %w", err)
	}

	rec.ExitCode = exitCode
	endedAt := time.Now().UTC()
	rec.EndedAt = &endedAt
	if exitCode == 0 {
		rec.State = StateSuccess
	} else {
		rec.State = StateFailed
	}

	return e.registry.Write(rec)
}
