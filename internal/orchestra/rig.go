package orchestra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Rig is a project container: a checked-out repository an agent can work
// inside. Grounded on original_source/lib/rig.py's Rig dataclass.
type Rig struct {
	Name           string `json:"name"`
	Repo           string `json:"repo"`
	LocalPath      string `json:"local_path"`
	CreatedAt      string `json:"created_at"`
	DefaultBranch  string `json:"default_branch"`
	ActiveAgents   int    `json:"active_agents"`
}

// Cloner checks a repository out to a local path. Git cloning itself is
// an external collaborator; RigManager only depends on this interface.
type Cloner interface {
	Clone(ctx context.Context, repo, localPath string) error
	DefaultBranch(ctx context.Context, localPath string) (string, error)
	Pull(ctx context.Context, localPath string) error
}

type rigManifest struct {
	Rigs      []Rig  `json:"rigs"`
	UpdatedAt string `json:"updated_at"`
}

// RigManager tracks project rigs under workspace/rigs, persisting a
// manifest.json the way original_source/lib/rig.py's RigManager does.
type RigManager struct {
	workspace string
	rigsDir   string
	cloner    Cloner
	rigs      map[string]Rig
}

// NewRigManager loads (or initializes) the rig manifest under workspace.
func NewRigManager(workspace string, cloner Cloner) (*RigManager, error) {
	rigsDir := filepath.Join(workspace, "rigs")
	if err := os.MkdirAll(rigsDir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestra: create rigs dir: %w", err)
	}

	m := &RigManager{workspace: workspace, rigsDir: rigsDir, cloner: cloner, rigs: map[string]Rig{}}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RigManager) manifestPath() string {
	return filepath.Join(m.rigsDir, "manifest.json")
}

func (m *RigManager) load() error {
	data, err := os.ReadFile(m.manifestPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var manifest rigManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	for _, r := range manifest.Rigs {
		m.rigs[r.Name] = r
	}
	return nil
}

func (m *RigManager) save() error {
	rigs := make([]Rig, 0, len(m.rigs))
	for _, r := range m.rigs {
		rigs = append(rigs, r)
	}
	manifest := rigManifest{Rigs: rigs, UpdatedAt: time.Now().UTC().Format(time.RFC3339)}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.manifestPath(), data, 0o644)
}

// Add clones repo into workspace/rigs/<name> and records it in the
// manifest, discovering its default branch via the Cloner.
func (m *RigManager) Add(ctx context.Context, name, repo string) (Rig, error) {
	localPath := filepath.Join(m.rigsDir, name)

	if err := m.cloner.Clone(ctx, repo, localPath); err != nil {
		return Rig{}, fmt.Errorf("orchestra: clone rig %q: %w", name, err)
	}

	branch, err := m.cloner.DefaultBranch(ctx, localPath)
	if err != nil || branch == "" {
		branch = "main"
	}

	rig := Rig{
		Name:          name,
		Repo:          repo,
		LocalPath:     localPath,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		DefaultBranch: branch,
	}

	m.rigs[name] = rig
	if err := m.save(); err != nil {
		return Rig{}, err
	}
	return rig, nil
}

// Get returns a rig by name.
func (m *RigManager) Get(name string) (Rig, bool) {
	r, ok := m.rigs[name]
	return r, ok
}

// First returns the rig whose name sorts lexicographically first,
// matching the fallback-rig-discovery behavior Mayor uses when
// a task names no explicit rig.
func (m *RigManager) First() (Rig, bool) {
	var names []string
	for n := range m.rigs {
		names = append(names, n)
	}
	if len(names) == 0 {
		return Rig{}, false
	}
	best := names[0]
	for _, n := range names[1:] {
		if n < best {
			best = n
		}
	}
	return m.rigs[best], true
}

// List returns every known rig.
func (m *RigManager) List() []Rig {
	rigs := make([]Rig, 0, len(m.rigs))
	for _, r := range m.rigs {
		rigs = append(rigs, r)
	}
	return rigs
}

// Remove deletes a rig's local checkout and manifest entry.
func (m *RigManager) Remove(name string) (bool, error) {
	rig, ok := m.rigs[name]
	if !ok {
		return false, nil
	}
	if err := os.RemoveAll(rig.LocalPath); err != nil {
		return false, fmt.Errorf("orchestra: remove rig %q: %w", name, err)
	}
	delete(m.rigs, name)
	return true, m.save()
}

// Update pulls the latest changes into an existing rig's checkout.
func (m *RigManager) Update(ctx context.Context, name string) (bool, error) {
	rig, ok := m.rigs[name]
	if !ok {
		return false, nil
	}
	if err := m.cloner.Pull(ctx, rig.LocalPath); err != nil {
		return false, fmt.Errorf("orchestra: update rig %q: %w", name, err)
	}
	return true, nil
}

// gitCloner is the default Cloner, shelling out to the system git binary.
type gitCloner struct{}

// NewGitCloner returns a Cloner backed by the system git CLI.
func NewGitCloner() Cloner { return gitCloner{} }

func (gitCloner) Clone(ctx context.Context, repo, localPath string) error {
	return runGitDir(ctx, "", "clone", repo, localPath)
}

func (gitCloner) Pull(ctx context.Context, localPath string) error {
	return runGitDir(ctx, localPath, "pull")
}

func (gitCloner) DefaultBranch(ctx context.Context, localPath string) (string, error) {
	out, err := runGit(ctx, localPath, "symbolic-ref", "refs/remotes/origin/HEAD", "--short")
	if err != nil {
		return "main", nil
	}
	parts := strings.Split(strings.TrimSpace(out), "/")
	return parts[len(parts)-1], nil
}

func runGitDir(ctx context.Context, dir string, args ...string) error {
	_, err := runGit(ctx, dir, args...)
	return err
}
