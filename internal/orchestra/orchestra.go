// Package orchestra implements the multi-worker orchestrator control
// loop: reconcile active jobs against the job wrapper, dispatch pending
// tasks up to a capacity bound, and persist every transition to the task
// plan store. Grounded on original_source/lib/mayor.py's Mayor.
package orchestra

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/foremanhq/foreman/internal/jobwrapper"
	"github.com/foremanhq/foreman/internal/taskplan"
)

// JobSubmitter abstracts the job wrapper's Submit/Poll surface so Mayor
// can be tested without a real worker CLI.
type JobSubmitter interface {
	Submit(ctx context.Context, prompt, repo string, contextFiles []string) (jobID string, branchName string, err error)
	Poll(ctx context.Context, jobID string) (jobwrapper.Status, error)
}

// EventSink observes Mayor's dispatch/reconcile decisions. An
// implementation provides every method; a nil Sink is fine.
type EventSink interface {
	OnDispatch(taskText, jobID string)
	OnDispatchFailed(taskText string, err error)
	OnJobCompleted(jobID, taskText string)
	OnJobFailed(jobID, taskText string, state jobwrapper.State)
	OnError(err error)
}

// Mayor runs the reconcile/dispatch control loop described in spec §4.8.
type Mayor struct {
	plan          *taskplan.Store
	rigs          *RigManager
	jobs          JobSubmitter
	maxConcurrent int
	sink          EventSink

	active map[string]string // job-id -> task text
}

// New builds a Mayor over a task plan, a rig manager, and a job
// submitter, bounded to maxConcurrent simultaneously active jobs.
func New(plan *taskplan.Store, rigs *RigManager, jobs JobSubmitter, maxConcurrent int, sink EventSink) *Mayor {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Mayor{
		plan:          plan,
		rigs:          rigs,
		jobs:          jobs,
		maxConcurrent: maxConcurrent,
		sink:          sink,
		active:        map[string]string{},
	}
}

// ActiveCount returns the number of currently-active jobs.
func (m *Mayor) ActiveCount() int {
	return len(m.active)
}

// Tick runs one reconcile-then-dispatch cycle. Callers drive the sleep
// between ticks (see RunLoop) so tests can step the state machine
// deterministically.
func (m *Mayor) Tick(ctx context.Context) error {
	if err := m.reconcile(ctx); err != nil {
		return err
	}
	return m.dispatch(ctx)
}

// reconcile polls every active job in parallel (fan-out), then applies
// every resulting state transition to the task plan serially, honoring
// spec §5's "polling may overlap, mutation is serialized" rule.
func (m *Mayor) reconcile(ctx context.Context) error {
	if len(m.active) == 0 {
		return nil
	}

	type polled struct {
		jobID  string
		status jobwrapper.Status
		err    error
	}

	jobIDs := make([]string, 0, len(m.active))
	for id := range m.active {
		jobIDs = append(jobIDs, id)
	}

	results := make([]polled, len(jobIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, jobID := range jobIDs {
		i, jobID := i, jobID
		g.Go(func() error {
			status, err := m.jobs.Poll(gctx, jobID)
			results[i] = polled{jobID: jobID, status: status, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		taskText := m.active[r.jobID]
		if r.err != nil {
			if m.sink != nil {
				m.sink.OnError(fmt.Errorf("orchestra: poll job %q: %w", r.jobID, r.err))
			}
			continue
		}

		switch r.status.State {
		case jobwrapper.StateCompleted:
			if err := m.plan.Mark(taskText, taskplan.StatusDone); err != nil {
				return err
			}
			delete(m.active, r.jobID)
			if m.sink != nil {
				m.sink.OnJobCompleted(r.jobID, taskText)
			}
		case jobwrapper.StateFailed, jobwrapper.StateCancelled:
			if err := m.plan.Mark(taskText, taskplan.StatusPending); err != nil {
				return err
			}
			delete(m.active, r.jobID)
			if m.sink != nil {
				m.sink.OnJobFailed(r.jobID, taskText, r.status.State)
			}
		default:
			// pending, running, rate-limited: leave in place.
		}
	}

	return nil
}

// dispatch finds the next pending task not already active, marks it
// running, and submits it, reverting on submit failure.
func (m *Mayor) dispatch(ctx context.Context) error {
	if len(m.active) >= m.maxConcurrent {
		return nil
	}

	taskText, err := m.plan.NextPending()
	if err != nil {
		return err
	}
	if taskText == "" || m.isActive(taskText) {
		return nil
	}

	if err := m.plan.Mark(taskText, taskplan.StatusRunning); err != nil {
		return err
	}

	rigPath := "."
	if rig, ok := m.rigs.First(); ok {
		rigPath = rig.LocalPath
	}

	jobID, _, err := m.jobs.Submit(ctx, taskText, rigPath, nil)
	if err != nil {
		if revertErr := m.plan.Mark(taskText, taskplan.StatusPending); revertErr != nil {
			return revertErr
		}
		if m.sink != nil {
			m.sink.OnDispatchFailed(taskText, err)
		}
		return nil
	}

	m.active[jobID] = taskText
	if m.sink != nil {
		m.sink.OnDispatch(taskText, jobID)
	}
	return nil
}

func (m *Mayor) isActive(taskText string) bool {
	for _, t := range m.active {
		if t == taskText {
			return true
		}
	}
	return false
}
