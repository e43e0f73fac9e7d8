package orchestra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ConvoyTaskStatus is a task's lifecycle state within a convoy.
type ConvoyTaskStatus string

const (
	ConvoyTaskPending   ConvoyTaskStatus = "pending"
	ConvoyTaskAssigned  ConvoyTaskStatus = "assigned"
	ConvoyTaskRunning   ConvoyTaskStatus = "running"
	ConvoyTaskCompleted ConvoyTaskStatus = "completed"
	ConvoyTaskFailed    ConvoyTaskStatus = "failed"
)

// ConvoyTask is one unit of work within a convoy.
type ConvoyTask struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Rig         string           `json:"rig"`
	Status      ConvoyTaskStatus `json:"status"`
	Assignee    string           `json:"assignee,omitempty"`
	JobID       string           `json:"job_id,omitempty"`
	PRLink      string           `json:"pr_link,omitempty"`
	Files       []string         `json:"files,omitempty"`
}

// ConvoyStatus is the aggregate rollup of a convoy's task states.
type ConvoyStatus string

const (
	ConvoyPending   ConvoyStatus = "pending"
	ConvoyRunning   ConvoyStatus = "running"
	ConvoyCompleted ConvoyStatus = "completed"
	ConvoyPartial   ConvoyStatus = "partial"
)

// Convoy bundles related tasks assigned to workers as a unit.
type Convoy struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt string       `json:"created_at"`
	Status    ConvoyStatus `json:"status"`
	Tasks     []ConvoyTask `json:"tasks"`
}

// StatusSummary counts convoy tasks by status.
type StatusSummary struct {
	Pending   int `json:"pending"`
	Assigned  int `json:"assigned"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type convoyManifest struct {
	Convoys   []Convoy `json:"convoys"`
	UpdatedAt string   `json:"updated_at"`
}

// ConvoyManager tracks convoys under workspace/convoys, persisting a
// manifest.json per original_source/lib/convoy.py's ConvoyManager.
type ConvoyManager struct {
	convoysDir string
	convoys    map[string]*Convoy
}

// NewConvoyManager loads (or initializes) the convoy manifest under workspace.
func NewConvoyManager(workspace string) (*ConvoyManager, error) {
	dir := filepath.Join(workspace, "convoys")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestra: create convoys dir: %w", err)
	}

	m := &ConvoyManager{convoysDir: dir, convoys: map[string]*Convoy{}}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ConvoyManager) manifestPath() string {
	return filepath.Join(m.convoysDir, "manifest.json")
}

func (m *ConvoyManager) load() error {
	data, err := os.ReadFile(m.manifestPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var manifest convoyManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	for i := range manifest.Convoys {
		c := manifest.Convoys[i]
		m.convoys[c.ID] = &c
	}
	return nil
}

func (m *ConvoyManager) save() error {
	convoys := make([]Convoy, 0, len(m.convoys))
	for _, c := range m.convoys {
		convoys = append(convoys, *c)
	}
	manifest := convoyManifest{Convoys: convoys, UpdatedAt: time.Now().UTC().Format(time.RFC3339)}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.manifestPath(), data, 0o644)
}

// Create starts a new convoy from a set of task descriptions, all
// defaulting to rig.
func (m *ConvoyManager) Create(name, rig string, issues []string) (string, error) {
	convoyID := fmt.Sprintf("convoy-%s", uuid.New().String()[:8])

	tasks := make([]ConvoyTask, 0, len(issues))
	for _, issue := range issues {
		tasks = append(tasks, ConvoyTask{
			ID:          fmt.Sprintf("task-%s", uuid.New().String()[:8]),
			Description: issue,
			Rig:         rig,
			Status:      ConvoyTaskPending,
		})
	}

	convoy := &Convoy{
		ID:        convoyID,
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    ConvoyPending,
		Tasks:     tasks,
	}

	m.convoys[convoyID] = convoy
	return convoyID, m.save()
}

// Get returns a convoy by id.
func (m *ConvoyManager) Get(convoyID string) (Convoy, bool) {
	c, ok := m.convoys[convoyID]
	if !ok {
		return Convoy{}, false
	}
	return *c, true
}

// List returns a summary of every known convoy.
func (m *ConvoyManager) List() []Convoy {
	convoys := make([]Convoy, 0, len(m.convoys))
	for _, c := range m.convoys {
		convoys = append(convoys, *c)
	}
	return convoys
}

// AddTask appends a new pending task to an existing convoy.
func (m *ConvoyManager) AddTask(convoyID, description, rig string, files []string) (string, error) {
	convoy, ok := m.convoys[convoyID]
	if !ok {
		return "", fmt.Errorf("orchestra: convoy %q not found", convoyID)
	}

	taskID := fmt.Sprintf("task-%s", uuid.New().String()[:8])
	convoy.Tasks = append(convoy.Tasks, ConvoyTask{
		ID:          taskID,
		Description: description,
		Rig:         rig,
		Status:      ConvoyTaskPending,
		Files:       files,
	})

	return taskID, m.save()
}

// AssignTask marks a task assigned to a worker and job.
func (m *ConvoyManager) AssignTask(convoyID, taskID, assignee, jobID string) error {
	convoy, ok := m.convoys[convoyID]
	if !ok {
		return fmt.Errorf("orchestra: convoy %q not found", convoyID)
	}

	for i := range convoy.Tasks {
		if convoy.Tasks[i].ID == taskID {
			convoy.Tasks[i].Assignee = assignee
			convoy.Tasks[i].JobID = jobID
			convoy.Tasks[i].Status = ConvoyTaskAssigned
			break
		}
	}

	m.recomputeStatus(convoy)
	return m.save()
}

// UpdateTaskStatus updates a task's status and, if non-empty, its PR link.
func (m *ConvoyManager) UpdateTaskStatus(convoyID, taskID string, status ConvoyTaskStatus, prLink string) error {
	convoy, ok := m.convoys[convoyID]
	if !ok {
		return fmt.Errorf("orchestra: convoy %q not found", convoyID)
	}

	for i := range convoy.Tasks {
		if convoy.Tasks[i].ID == taskID {
			convoy.Tasks[i].Status = status
			if prLink != "" {
				convoy.Tasks[i].PRLink = prLink
			}
			break
		}
	}

	m.recomputeStatus(convoy)
	return m.save()
}

// Status returns a convoy's full state plus a count-by-status summary.
func (m *ConvoyManager) Status(convoyID string) (Convoy, StatusSummary, bool) {
	convoy, ok := m.convoys[convoyID]
	if !ok {
		return Convoy{}, StatusSummary{}, false
	}

	var summary StatusSummary
	for _, t := range convoy.Tasks {
		switch t.Status {
		case ConvoyTaskPending:
			summary.Pending++
		case ConvoyTaskAssigned:
			summary.Assigned++
		case ConvoyTaskRunning:
			summary.Running++
		case ConvoyTaskCompleted:
			summary.Completed++
		case ConvoyTaskFailed:
			summary.Failed++
		}
	}

	return *convoy, summary, true
}

// recomputeStatus derives a convoy's aggregate status from its tasks',
// matching original_source/lib/convoy.py's _update_convoy_status rules.
func (m *ConvoyManager) recomputeStatus(convoy *Convoy) {
	if len(convoy.Tasks) == 0 {
		convoy.Status = ConvoyPending
		return
	}

	allCompleted, allPending, anyRunning, anyFailed := true, true, false, false
	for _, t := range convoy.Tasks {
		if t.Status != ConvoyTaskCompleted {
			allCompleted = false
		}
		if t.Status != ConvoyTaskPending {
			allPending = false
		}
		if t.Status == ConvoyTaskRunning || t.Status == ConvoyTaskAssigned {
			anyRunning = true
		}
		if t.Status == ConvoyTaskFailed {
			anyFailed = true
		}
	}

	switch {
	case allCompleted:
		convoy.Status = ConvoyCompleted
	case allPending:
		convoy.Status = ConvoyPending
	case anyRunning:
		convoy.Status = ConvoyRunning
	case anyFailed:
		convoy.Status = ConvoyPartial
	default:
		convoy.Status = ConvoyRunning
	}
}
