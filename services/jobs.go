package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"review-monitor/models"
	"review-monitor/utils"
)

// Runner executes one scrape run.
type Runner interface {
	Run(ctx context.Context, runID string, p Progress) (*models.Snapshot, error)
}

// JobManager owns the process-wide job status and enforces that at most one
// run is in flight. The status lock is only held while copying or updating
// the status, never while the run waits on the network.
type JobManager struct {
	runner Runner
	logger *utils.Logger
	now    func() time.Time

	mu     sync.Mutex
	status models.JobStatus
	done   chan struct{}
}

// NewJobManager returns an idle JobManager.
func NewJobManager(runner Runner, logger *utils.Logger) *JobManager {
	return &JobManager{
		runner: runner,
		logger: logger,
		now:    time.Now,
		status: models.JobStatus{State: models.JobIdle},
	}
}

// Status returns a copy of the current status.
func (m *JobManager) Status() models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// TryStart launches a run in the background and returns at once. It
// returns false, leaving the status untouched, if a run is in progress.
// ctx must outlive the caller's request; the run stops only if it is
// cancelled.
func (m *JobManager) TryStart(ctx context.Context) bool {
	runID, done, ok := m.begin()
	if !ok {
		return false
	}
	go func() {
		defer close(done)
		_ = m.execute(ctx, runID)
	}()
	return true
}

// Run executes a run synchronously. started is false when another run was
// already in progress.
func (m *JobManager) Run(ctx context.Context) (started bool, err error) {
	runID, done, ok := m.begin()
	if !ok {
		return false, nil
	}
	defer close(done)
	return true, m.execute(ctx, runID)
}

// Wait blocks until the in-flight run, if any, has finished.
func (m *JobManager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *JobManager) begin() (string, chan struct{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.State == models.JobRunning {
		return "", nil, false
	}

	now := m.now()
	runID := uuid.NewString()
	m.status = models.JobStatus{
		State:     models.JobRunning,
		RunID:     runID,
		StartedAt: &now,
		UpdatedAt: &now,
	}
	m.done = make(chan struct{})
	return runID, m.done, true
}

func (m *JobManager) execute(ctx context.Context, runID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
		m.finish(err)
	}()

	_, err = m.runner.Run(ctx, runID, tracker{m})
	return err
}

func (m *JobManager) finish(err error) {
	m.update(func(s *models.JobStatus) {
		s.CurrentTarget = ""
		if err != nil {
			s.State = models.JobError
			s.Message = err.Error()
			return
		}
		s.State = models.JobCompleted
	})

	st := m.Status()
	if err != nil {
		m.logger.Error("[jobs] Run %s failed: %v", st.RunID, err)
		return
	}
	m.logger.Info("[jobs] Run %s completed (%d/%d)", st.RunID, st.Progress, st.Total)
}

func (m *JobManager) update(fn func(s *models.JobStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.status)
	now := m.now()
	m.status.UpdatedAt = &now
}

// tracker feeds orchestrator progress into the manager's status.
type tracker struct {
	m *JobManager
}

func (t tracker) Begin(total int) {
	t.m.update(func(s *models.JobStatus) {
		s.Progress = 0
		s.Total = total
	})
}

func (t tracker) Advance(target string) {
	t.m.update(func(s *models.JobStatus) {
		s.Progress++
		s.CurrentTarget = target
	})
}
