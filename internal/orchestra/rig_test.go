package orchestra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloner struct {
	cloneErr error
	branch   string
	pullErr  error
	pulled   []string
}

func (f *fakeCloner) Clone(_ context.Context, _, localPath string) error {
	if f.cloneErr != nil {
		return f.cloneErr
	}
	return os.MkdirAll(localPath, 0o755)
}

func (f *fakeCloner) DefaultBranch(_ context.Context, _ string) (string, error) {
	if f.branch == "" {
		return "main", nil
	}
	return f.branch, nil
}

func (f *fakeCloner) Pull(_ context.Context, localPath string) error {
	f.pulled = append(f.pulled, localPath)
	return f.pullErr
}

func TestRigManager_AddAndGet(t *testing.T) {
	dir := t.TempDir()
	cloner := &fakeCloner{branch: "develop"}
	m, err := NewRigManager(dir, cloner)
	require.NoError(t, err)

	rig, err := m.Add(context.Background(), "myrepo", "https://example.com/myrepo.git")
	require.NoError(t, err)
	assert.Equal(t, "develop", rig.DefaultBranch)
	assert.Equal(t, filepath.Join(dir, "rigs", "myrepo"), rig.LocalPath)

	got, ok := m.Get("myrepo")
	require.True(t, ok)
	assert.Equal(t, rig, got)
}

func TestRigManager_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	cloner := &fakeCloner{}
	m1, err := NewRigManager(dir, cloner)
	require.NoError(t, err)
	_, err = m1.Add(context.Background(), "r1", "https://example.com/r1.git")
	require.NoError(t, err)

	m2, err := NewRigManager(dir, cloner)
	require.NoError(t, err)
	_, ok := m2.Get("r1")
	assert.True(t, ok)
}

func TestRigManager_First_PrefersLexicographicallyFirst(t *testing.T) {
	dir := t.TempDir()
	cloner := &fakeCloner{}
	m, err := NewRigManager(dir, cloner)
	require.NoError(t, err)
	_, err = m.Add(context.Background(), "zeta", "https://example.com/zeta.git")
	require.NoError(t, err)
	_, err = m.Add(context.Background(), "alpha", "https://example.com/alpha.git")
	require.NoError(t, err)

	first, ok := m.First()
	require.True(t, ok)
	assert.Equal(t, "alpha", first.Name)
}

func TestRigManager_Remove(t *testing.T) {
	dir := t.TempDir()
	cloner := &fakeCloner{}
	m, err := NewRigManager(dir, cloner)
	require.NoError(t, err)
	_, err = m.Add(context.Background(), "r1", "https://example.com/r1.git")
	require.NoError(t, err)

	ok, err := m.Remove("r1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found := m.Get("r1")
	assert.False(t, found)
}

func TestRigManager_Update(t *testing.T) {
	dir := t.TempDir()
	cloner := &fakeCloner{}
	m, err := NewRigManager(dir, cloner)
	require.NoError(t, err)
	_, err = m.Add(context.Background(), "r1", "https://example.com/r1.git")
	require.NoError(t, err)

	ok, err := m.Update(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, cloner.pulled, 1)
}
