package orchestra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvoyManager_CreateAndGet(t *testing.T) {
	m, err := NewConvoyManager(t.TempDir())
	require.NoError(t, err)

	id, err := m.Create("fix bugs", "default", []string{"fix A", "fix B"})
	require.NoError(t, err)

	convoy, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, "fix bugs", convoy.Name)
	assert.Len(t, convoy.Tasks, 2)
	assert.Equal(t, ConvoyPending, convoy.Status)
}

func TestConvoyManager_StatusRollup(t *testing.T) {
	m, err := NewConvoyManager(t.TempDir())
	require.NoError(t, err)

	id, err := m.Create("work", "default", []string{"a", "b"})
	require.NoError(t, err)

	convoy, _ := m.Get(id)
	require.NoError(t, m.AssignTask(id, convoy.Tasks[0].ID, "worker-1", "job-1"))

	_, summary, ok := m.Status(id)
	require.True(t, ok)
	assert.Equal(t, 1, summary.Assigned)
	assert.Equal(t, 1, summary.Pending)

	updated, _ := m.Get(id)
	assert.Equal(t, ConvoyRunning, updated.Status)
}

func TestConvoyManager_AllCompletedMarksConvoyCompleted(t *testing.T) {
	m, err := NewConvoyManager(t.TempDir())
	require.NoError(t, err)

	id, err := m.Create("work", "default", []string{"a"})
	require.NoError(t, err)

	convoy, _ := m.Get(id)
	require.NoError(t, m.UpdateTaskStatus(id, convoy.Tasks[0].ID, ConvoyTaskCompleted, "https://pr/1"))

	updated, _ := m.Get(id)
	assert.Equal(t, ConvoyCompleted, updated.Status)
	assert.Equal(t, "https://pr/1", updated.Tasks[0].PRLink)
}

func TestConvoyManager_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	m1, err := NewConvoyManager(dir)
	require.NoError(t, err)
	id, err := m1.Create("persisted", "default", []string{"a"})
	require.NoError(t, err)

	m2, err := NewConvoyManager(dir)
	require.NoError(t, err)
	convoy, ok := m2.Get(id)
	require.True(t, ok)
	assert.Equal(t, "persisted", convoy.Name)
}

func TestConvoyManager_AddTask(t *testing.T) {
	m, err := NewConvoyManager(t.TempDir())
	require.NoError(t, err)

	id, err := m.Create("work", "default", nil)
	require.NoError(t, err)

	taskID, err := m.AddTask(id, "new task", "default", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	convoy, _ := m.Get(id)
	assert.Len(t, convoy.Tasks, 1)
}
