package taskplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaskFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTasks_ParsesAllThreeMarkers(t *testing.T) {
	path := writeTaskFile(t, "# T\n- [ ] A\n- [x] B\n- [/] C\nnot a task line\n")
	s := New(path)

	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, StatusPending, tasks[0].Status)
	assert.Equal(t, "A", tasks[0].Text)
	assert.Equal(t, StatusDone, tasks[1].Status)
	assert.Equal(t, StatusRunning, tasks[2].Status)
}

func TestTasks_MissingFileReturnsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope.md"))
	tasks, err := s.Tasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestNextPending_ReturnsFirstPending(t *testing.T) {
	path := writeTaskFile(t, "- [x] A\n- [ ] B\n- [ ] C\n")
	s := New(path)

	next, err := s.NextPending()
	require.NoError(t, err)
	assert.Equal(t, "B", next)
}

func TestNextPending_NoneReturnsEmptyString(t *testing.T) {
	path := writeTaskFile(t, "- [x] A\n")
	s := New(path)

	next, err := s.NextPending()
	require.NoError(t, err)
	assert.Equal(t, "", next)
}

func TestMark_ScenarioE(t *testing.T) {
	path := writeTaskFile(t, "# T\n- [ ] A\n- [ ] B\n")
	s := New(path)

	require.NoError(t, s.Mark("A", StatusRunning))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- [/] A")
	assert.Contains(t, string(data), "- [ ] B")

	require.NoError(t, s.Mark("A", StatusDone))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- [x] A")

	next, err := s.NextPending()
	require.NoError(t, err)
	assert.Equal(t, "B", next)
}

func TestMark_PreservesIndentation(t *testing.T) {
	path := writeTaskFile(t, "- [ ] top\n  - [ ] nested\n")
	s := New(path)

	require.NoError(t, s.Mark("nested", StatusDone))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "  - [x] nested")
	assert.Contains(t, string(data), "- [ ] top")
}

func TestMark_UnmatchedTextLeavesFileUntouched(t *testing.T) {
	path := writeTaskFile(t, "- [ ] A\n")
	s := New(path)

	require.NoError(t, s.Mark("nonexistent", StatusDone))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "- [ ] A\n", string(data))
}

func TestAppend_AddsNewPendingTask(t *testing.T) {
	path := writeTaskFile(t, "- [x] A\n")
	s := New(path)

	require.NoError(t, s.Append("B"))
	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "B", tasks[1].Text)
	assert.Equal(t, StatusPending, tasks[1].Status)
}

func TestAppend_CreatesFileIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.md")
	s := New(path)

	require.NoError(t, s.Append("first"))
	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "first", tasks[0].Text)
}
