// Package taskplan parses and rewrites the checkbox markdown task-plan
// file the orchestrator uses as its shared work queue, grounded on
// original_source/lib/brain.py's BrainManager.
package taskplan

import (
	"os"
	"regexp"
	"strings"
)

// Status is a task line's checkbox marker.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

// Task is one parsed checkbox line.
type Task struct {
	Status       Status
	Text         string
	OriginalLine string
}

var checkboxPattern = regexp.MustCompile(`^(\s*[-*]\s*)\[([ x/])\]\s*(.+)$`)

func statusFromMarker(marker string) Status {
	switch strings.ToLower(marker) {
	case "x":
		return StatusDone
	case "/":
		return StatusRunning
	default:
		return StatusPending
	}
}

func markerFromStatus(status Status) string {
	switch status {
	case StatusDone:
		return "x"
	case StatusRunning:
		return "/"
	default:
		return " "
	}
}

// Store reads and rewrites a single markdown task-plan file in place.
type Store struct {
	path string
}

// New returns a Store bound to path. The file need not exist yet;
// operations that read it treat a missing file as having no tasks.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path this store operates on.
func (s *Store) Path() string {
	return s.path
}

// Tasks parses every checkbox line in the file, preserving document order.
func (s *Store) Tasks() ([]Task, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for _, line := range strings.Split(string(data), "\n") {
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tasks = append(tasks, Task{
			Status:       statusFromMarker(m[2]),
			Text:         strings.TrimSpace(m[3]),
			OriginalLine: line,
		})
	}
	return tasks, nil
}

// NextPending returns the text of the first pending task, or "" if none.
func (s *Store) NextPending() (string, error) {
	tasks, err := s.Tasks()
	if err != nil {
		return "", err
	}
	for _, t := range tasks {
		if t.Status == StatusPending {
			return t.Text, nil
		}
	}
	return "", nil
}

// Mark rewrites the checkbox marker of the first task whose text matches
// taskText exactly, preserving indentation and every other line verbatim.
// Lines with no matching task text are left untouched.
func (s *Store) Mark(taskText string, status Status) error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	marker := markerFromStatus(status)

	for i, line := range lines {
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[3])
		if text != taskText {
			continue
		}
		lines[i] = m[1] + "[" + marker + "] " + text
		break
	}

	return os.WriteFile(s.path, []byte(strings.Join(lines, "\n")), 0o644)
}

// Append adds a new pending task line at the end of the file.
func (s *Store) Append(taskText string) error {
	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "- [ ] " + taskText + "\n"

	return os.WriteFile(s.path, []byte(content), 0o644)
}
