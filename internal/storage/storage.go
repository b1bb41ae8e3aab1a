package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptstudio/internal/domain"
	"promptstudio/internal/template"
)

// SnapshotRepository persists full state snapshots.
type SnapshotRepository interface {
	Load(v any) error
	Save(v any) error
}

// TaskPatch carries the task fields an update may change. Nil fields are
// left untouched.
type TaskPatch struct {
	Name  *string
	Group *string
}

// VersionDraft carries the fields accepted when creating a version.
type VersionDraft struct {
	ID           string
	Name         string
	Content      string
	Description  string
	SystemPrompt string
}

// VersionPatch carries the version fields an update may change. Nil fields
// are left untouched.
type VersionPatch struct {
	Name         *string
	Content      *string
	Description  *string
	SystemPrompt *string
}

// DeletedVersion identifies a removed version for caller confirmation.
type DeletedVersion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// tasksSnapshot is the on-disk document: task metadata, the version
// history per task, and the managed group list.
type tasksSnapshot struct {
	Tasks          []taskRecord                 `json:"tasks"`
	VersionHistory map[string][]*domain.Version `json:"versionHistory"`
	Groups         []string                     `json:"groups"`
}

type taskRecord struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Group           string            `json:"group"`
	Variables       map[string]string `json:"variables,omitempty"`
	VariablePresets []domain.Preset   `json:"variablePresets,omitempty"`
}

// TaskStore holds tasks and their version histories in memory and writes a
// full snapshot through to disk on every mutation. The mutex spans both
// the in-memory change and the snapshot write so concurrent requests see
// one mutation at a time.
type TaskStore struct {
	mu     sync.RWMutex
	repo   SnapshotRepository
	tasks  map[string]*domain.Task
	order  []string
	groups []string
	now    func() time.Time
}

func NewTaskStore(repo SnapshotRepository) *TaskStore {
	return &TaskStore{
		repo:   repo,
		tasks:  make(map[string]*domain.Task),
		groups: []string{domain.DefaultGroup},
		now:    time.Now,
	}
}

// Load reads the snapshot from disk. A missing file leaves the store empty.
func (s *TaskStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap tasksSnapshot
	if err := s.repo.Load(&snap); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, rec := range snap.Tasks {
		t := &domain.Task{
			ID:              rec.ID,
			Name:            rec.Name,
			Group:           rec.Group,
			Variables:       rec.Variables,
			VariablePresets: rec.VariablePresets,
			Versions:        snap.VersionHistory[rec.ID],
		}
		if t.Group == "" {
			t.Group = domain.DefaultGroup
		}
		if t.Versions == nil {
			t.Versions = []*domain.Version{}
		}
		s.tasks[t.ID] = t
		s.order = append(s.order, t.ID)
	}

	s.groups = snap.Groups
	if len(s.groups) == 0 {
		s.groups = []string{domain.DefaultGroup}
	}
	if !slices.Contains(s.groups, domain.DefaultGroup) {
		s.groups = append([]string{domain.DefaultGroup}, s.groups...)
	}
	return nil
}

// persistLocked writes the snapshot while the mutex is held. A write
// failure keeps the in-memory mutation and downgrades to ErrPersistDeferred
// so callers can report degraded durability instead of losing progress.
func (s *TaskStore) persistLocked() error {
	snap := tasksSnapshot{
		Tasks:          make([]taskRecord, 0, len(s.order)),
		VersionHistory: make(map[string][]*domain.Version, len(s.order)),
		Groups:         s.groups,
	}
	for _, id := range s.order {
		t := s.tasks[id]
		snap.Tasks = append(snap.Tasks, taskRecord{
			ID:              t.ID,
			Name:            t.Name,
			Group:           t.Group,
			Variables:       t.Variables,
			VariablePresets: t.VariablePresets,
		})
		snap.VersionHistory[t.ID] = t.Versions
	}

	if err := s.repo.Save(snap); err != nil {
		slog.Error("task snapshot write failed", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrPersistDeferred, err)
	}
	return nil
}

func (s *TaskStore) CreateTask(id, name, group string) (*domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", id, "must not be blank")
	}
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("name", name, "must not be blank")
	}
	if group == "" {
		group = domain.DefaultGroup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; ok {
		return nil, fmt.Errorf("task %q: %w", id, domain.ErrDuplicateID)
	}

	t := &domain.Task{
		ID:       id,
		Name:     name,
		Group:    group,
		Versions: []*domain.Version{},
	}
	s.tasks[id] = t
	s.order = append(s.order, id)
	if !slices.Contains(s.groups, group) {
		s.groups = append(s.groups, group)
	}
	return t, s.persistLocked()
}

func (s *TaskStore) GetTask(id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (s *TaskStore) ListTasks() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.Task, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.tasks[id])
	}
	return list
}

func (s *TaskStore) UpdateTask(id string, patch TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, domain.ErrNotFound)
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Group != nil {
		group := *patch.Group
		if group == "" {
			group = domain.DefaultGroup
		}
		t.Group = group
		if !slices.Contains(s.groups, group) {
			s.groups = append(s.groups, group)
		}
	}
	return t, s.persistLocked()
}

func (s *TaskStore) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %q: %w", id, domain.ErrNotFound)
	}
	delete(s.tasks, id)
	for i, tid := range s.order {
		if tid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return s.persistLocked()
}

// CreateVersion inserts a new version at the head of the task's list, so
// listings stay newest-first by insertion. A blank name gets a display
// name derived from the creation timestamp.
func (s *TaskStore) CreateVersion(taskID string, draft VersionDraft) (*domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", taskID, domain.ErrNotFound)
	}

	id := strings.TrimSpace(draft.ID)
	if id == "" {
		id = uuid.NewString()
	}
	for _, v := range t.Versions {
		if v.ID == id {
			return nil, fmt.Errorf("version %q: %w", id, domain.ErrDuplicateID)
		}
	}

	now := s.now()
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		name = now.Format("2006-01-02 15:04:05")
	}

	v := &domain.Version{
		ID:           id,
		Name:         name,
		Content:      draft.Content,
		SystemPrompt: draft.SystemPrompt,
		Description:  draft.Description,
		CreatedAt:    now,
		Results:      []*domain.ExecutionResult{},
	}
	t.Versions = append([]*domain.Version{v}, t.Versions...)
	return v, s.persistLocked()
}

func (s *TaskStore) UpdateVersion(taskID, versionID string, patch VersionPatch) (*domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.findVersionLocked(taskID, versionID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		v.Name = *patch.Name
	}
	if patch.Content != nil {
		v.Content = *patch.Content
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	if patch.SystemPrompt != nil {
		v.SystemPrompt = *patch.SystemPrompt
	}
	now := s.now()
	v.UpdatedAt = &now
	return v, s.persistLocked()
}

func (s *TaskStore) DeleteVersion(taskID, versionID string) (DeletedVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return DeletedVersion{}, fmt.Errorf("task %q: %w", taskID, domain.ErrNotFound)
	}
	for i, v := range t.Versions {
		if v.ID == versionID {
			t.Versions = append(t.Versions[:i], t.Versions[i+1:]...)
			removed := DeletedVersion{ID: v.ID, Name: v.Name}
			return removed, s.persistLocked()
		}
	}
	return DeletedVersion{}, fmt.Errorf("version %q: %w", versionID, domain.ErrNotFound)
}

// ListVersions returns the task's versions newest-first. An unknown task
// yields an empty list, matching how read-only call sites treat absence.
func (s *TaskStore) ListVersions(taskID string) []*domain.Version {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return []*domain.Version{}
	}
	return t.Versions
}

func (s *TaskStore) GetVersion(taskID, versionID string) (*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findVersionLocked(taskID, versionID)
}

func (s *TaskStore) findVersionLocked(taskID, versionID string) (*domain.Version, error) {
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", taskID, domain.ErrNotFound)
	}
	for _, v := range t.Versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return nil, fmt.Errorf("version %q: %w", versionID, domain.ErrNotFound)
}

// AppendResult records an execution result at the head of the version's
// result list. Results are append-only and never reordered.
func (s *TaskStore) AppendResult(taskID, versionID string, res *domain.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.findVersionLocked(taskID, versionID)
	if err != nil {
		return err
	}
	v.Results = append([]*domain.ExecutionResult{res}, v.Results...)
	return s.persistLocked()
}

// TaskVariables unions the placeholder identifiers over every version of
// the task, first-seen order. An unknown task yields an empty list.
func (s *TaskStore) TaskVariables(taskID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return []string{}
	}

	var names []string
	seen := make(map[string]struct{})
	for _, v := range t.Versions {
		for _, name := range template.ExtractVariables(v.Content) {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	if names == nil {
		names = []string{}
	}
	return names
}

// SetTaskVariables replaces the task's declared variable values. Presets
// are replaced only when non-nil.
func (s *TaskStore) SetTaskVariables(taskID string, vars map[string]string, presets []domain.Preset) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", taskID, domain.ErrNotFound)
	}
	t.Variables = vars
	if presets != nil {
		t.VariablePresets = presets
	}
	return t, s.persistLocked()
}

func (s *TaskStore) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]string, len(s.groups))
	copy(list, s.groups)
	return list
}

func (s *TaskStore) CreateGroup(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError("name", name, "must not be blank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.groups, name) {
		return fmt.Errorf("group %q: %w", name, domain.ErrDuplicateID)
	}
	s.groups = append(s.groups, name)
	return s.persistLocked()
}

// DeleteGroup removes a group and moves its tasks to the default group.
// The default group itself is protected.
func (s *TaskStore) DeleteGroup(name string) error {
	if name == domain.DefaultGroup {
		return domain.NewValidationError("name", name, "default group cannot be deleted")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.groups, name) {
		return fmt.Errorf("group %q: %w", name, domain.ErrNotFound)
	}
	for i, g := range s.groups {
		if g == name {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
	for _, t := range s.tasks {
		if t.Group == name {
			t.Group = domain.DefaultGroup
		}
	}
	return s.persistLocked()
}

// Stats reports task and version counts for shutdown summary logging.
func (s *TaskStore) Stats() (tasks int, versions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		tasks++
		versions += len(t.Versions)
	}
	return tasks, versions
}
