package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile_NotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, s.ReadFile("missing.txt"), "Error:")
}

func TestReadFile_Truncation(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	big := make([]byte, maxReadChars+1000)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644))

	result := s.ReadFile("big.txt")
	assert.Contains(t, result, "truncated")
}

func TestWriteFile_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	result := s.WriteFile("a/b/c/out.txt", "hello")
	assert.Contains(t, result, "Wrote 5 chars")

	data, err := os.ReadFile(filepath.Join(dir, "a/b/c/out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEditFile_NotFoundOccurrence(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello world"), 0o644))

	result := s.EditFile("f.txt", "missing", "replacement")
	assert.Contains(t, result, "not found")
}

func TestEditFile_AmbiguousOccurrence(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("foo foo"), 0o644))

	result := s.EditFile("f.txt", "foo", "bar")
	assert.Contains(t, result, "found 2 times")
}

func TestEditFile_SingleOccurrence(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello world"), 0o644))

	result := s.EditFile("f.txt", "world", "there")
	assert.Contains(t, result, "replaced 1 occurrence")

	data, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", string(data))
}

func TestListFiles_DirectoryMode(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	result := s.ListFiles(".")
	assert.Contains(t, result, "a.txt")
	assert.Contains(t, result, "sub/")
}

func TestListFiles_GlobMode(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	result := s.ListFiles("*.go")
	assert.Contains(t, result, "a.go")
	assert.NotContains(t, result, "b.txt")
}

func TestListFiles_GlobNoMatches(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	result := s.ListFiles("*.xyz")
	assert.Contains(t, result, "No files matched")
}

func TestResolvePath_AbsolutePassesThrough(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", s.resolvePath("/etc/hosts"))
}

func TestResolvePath_RelativeJoinsWorkDir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "foo.txt"), s.resolvePath("foo.txt"))
}

func TestRunCommand_NoOutput(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	result := s.RunCommand("true", 5)
	assert.Equal(t, "(no output)", result)
}

func TestRunCommand_CombinesOutputAndExitCode(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	result := s.RunCommand("echo hi; exit 3", 5)
	assert.Contains(t, result, "hi")
	assert.Contains(t, result, "exit code: 3")
}

func TestTaskComplete_EchoesSummary(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "done", s.TaskComplete("done"))
}

func TestExecute_UnknownTool(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	result := s.Execute("nonexistent_tool", []byte(`{}`))
	assert.Contains(t, result, "Unknown tool")
}

func TestExecute_ReadFileDispatch(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("content"), 0o644))

	result := s.Execute("read_file", []byte(`{"path":"f.txt"}`))
	assert.Equal(t, "content", result)
}

func TestDefinitions_CoversAllSevenTools(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 7)

	names := make(map[string]bool, len(defs))
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{"read_file", "write_file", "edit_file", "list_files", "search_files", "run_command", "task_complete"} {
		assert.True(t, names[want], "missing tool definition: %s", want)
	}
}
