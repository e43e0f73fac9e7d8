package orchestra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foremanhq/foreman/internal/jobwrapper"
	"github.com/foremanhq/foreman/internal/taskplan"
)

type fakeJobs struct {
	submitCount int
	submitErr   error
	statuses    map[string]jobwrapper.Status
}

func (f *fakeJobs) Submit(_ context.Context, prompt, _ string, _ []string) (string, string, error) {
	if f.submitErr != nil {
		return "", "", f.submitErr
	}
	f.submitCount++
	id := fmt.Sprintf("job-%d", f.submitCount)
	if f.statuses == nil {
		f.statuses = map[string]jobwrapper.Status{}
	}
	f.statuses[id] = jobwrapper.Status{JobID: id, State: jobwrapper.StatePending}
	return id, "branch-" + id, nil
}

func (f *fakeJobs) Poll(_ context.Context, jobID string) (jobwrapper.Status, error) {
	return f.statuses[jobID], nil
}

type recordingSink struct {
	dispatched []string
	completed  []string
	failed     []string
	errs       []error
}

func (s *recordingSink) OnDispatch(taskText, jobID string)       { s.dispatched = append(s.dispatched, taskText) }
func (s *recordingSink) OnDispatchFailed(taskText string, _ error) { s.failed = append(s.failed, taskText) }
func (s *recordingSink) OnJobCompleted(_, taskText string)       { s.completed = append(s.completed, taskText) }
func (s *recordingSink) OnJobFailed(_, taskText string, _ jobwrapper.State) {
	s.failed = append(s.failed, taskText)
}
func (s *recordingSink) OnError(err error) { s.errs = append(s.errs, err) }

func setupWorkspace(t *testing.T, content string) (string, *taskplan.Store) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "task.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir, taskplan.New(path)
}

func TestDispatch_RespectsCapacity_ScenarioF(t *testing.T) {
	dir, plan := setupWorkspace(t, "- [ ] A\n- [ ] B\n- [ ] C\n")
	rigs, err := NewRigManager(dir, NewGitCloner())
	require.NoError(t, err)

	jobs := &fakeJobs{}
	mayor := New(plan, rigs, jobs, 2, &recordingSink{})

	require.NoError(t, mayor.Tick(context.Background()))
	require.NoError(t, mayor.Tick(context.Background()))

	tasks, err := plan.Tasks()
	require.NoError(t, err)

	running, pending := 0, 0
	for _, tk := range tasks {
		switch tk.Status {
		case taskplan.StatusRunning:
			running++
		case taskplan.StatusPending:
			pending++
		}
	}
	assert.Equal(t, 2, running)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 2, mayor.ActiveCount())
}

func TestDispatch_DoesNotExceedCapacityOnThirdTick(t *testing.T) {
	dir, plan := setupWorkspace(t, "- [ ] A\n- [ ] B\n- [ ] C\n")
	rigs, err := NewRigManager(dir, NewGitCloner())
	require.NoError(t, err)

	jobs := &fakeJobs{}
	mayor := New(plan, rigs, jobs, 2, &recordingSink{})

	require.NoError(t, mayor.Tick(context.Background()))
	require.NoError(t, mayor.Tick(context.Background()))
	require.NoError(t, mayor.Tick(context.Background()))

	assert.Equal(t, 2, mayor.ActiveCount())
}

func TestReconcile_CompletedMarksTaskDone(t *testing.T) {
	dir, plan := setupWorkspace(t, "- [ ] A\n")
	rigs, err := NewRigManager(dir, NewGitCloner())
	require.NoError(t, err)

	jobs := &fakeJobs{}
	sink := &recordingSink{}
	mayor := New(plan, rigs, jobs, 2, sink)

	require.NoError(t, mayor.Tick(context.Background()))
	require.Equal(t, 1, mayor.ActiveCount())

	for id := range jobs.statuses {
		jobs.statuses[id] = jobwrapper.Status{JobID: id, State: jobwrapper.StateCompleted}
	}

	require.NoError(t, mayor.Tick(context.Background()))
	assert.Equal(t, 0, mayor.ActiveCount())
	assert.Equal(t, []string{"A"}, sink.completed)

	next, err := plan.NextPending()
	require.NoError(t, err)
	assert.Equal(t, "", next)
}

func TestReconcile_FailedRevertsToPending(t *testing.T) {
	dir, plan := setupWorkspace(t, "- [ ] A\n")
	rigs, err := NewRigManager(dir, NewGitCloner())
	require.NoError(t, err)

	jobs := &fakeJobs{}
	mayor := New(plan, rigs, jobs, 2, &recordingSink{})

	require.NoError(t, mayor.Tick(context.Background()))
	for id := range jobs.statuses {
		jobs.statuses[id] = jobwrapper.Status{JobID: id, State: jobwrapper.StateFailed}
	}

	require.NoError(t, mayor.Tick(context.Background()))
	assert.Equal(t, 0, mayor.ActiveCount())

	next, err := plan.NextPending()
	require.NoError(t, err)
	assert.Equal(t, "A", next)
}

func TestDispatch_SubmitFailureRevertsTask(t *testing.T) {
	dir, plan := setupWorkspace(t, "- [ ] A\n")
	rigs, err := NewRigManager(dir, NewGitCloner())
	require.NoError(t, err)

	jobs := &fakeJobs{submitErr: fmt.Errorf("boom")}
	sink := &recordingSink{}
	mayor := New(plan, rigs, jobs, 2, sink)

	require.NoError(t, mayor.Tick(context.Background()))
	assert.Equal(t, 0, mayor.ActiveCount())
	assert.Equal(t, []string{"A"}, sink.failed)

	next, err := plan.NextPending()
	require.NoError(t, err)
	assert.Equal(t, "A", next)
}

func TestMutualExclusion_NoTaskBothActiveAndPending(t *testing.T) {
	dir, plan := setupWorkspace(t, "- [ ] A\n- [ ] B\n")
	rigs, err := NewRigManager(dir, NewGitCloner())
	require.NoError(t, err)

	jobs := &fakeJobs{}
	mayor := New(plan, rigs, jobs, 5, &recordingSink{})

	require.NoError(t, mayor.Tick(context.Background()))
	require.NoError(t, mayor.Tick(context.Background()))

	activeTexts := map[string]bool{}
	for _, t := range mayor.active {
		activeTexts[t] = true
	}

	tasks, err := plan.Tasks()
	require.NoError(t, err)
	for _, tk := range tasks {
		if tk.Status == taskplan.StatusPending {
			assert.False(t, activeTexts[tk.Text], "task %q is both active and pending", tk.Text)
		}
	}
}
