package service

import (
	"context"
	"errors"
	"strings"

	"promptstudio/internal/domain"
	"promptstudio/internal/llm"
	pdfgen "promptstudio/internal/pdf"
	"promptstudio/internal/ports"
	"promptstudio/internal/template"
)

// Service runs the execute flow: render a version's template against input
// values, call the model, and record the result on the version.
type Service struct {
	storage  ports.TaskStorage
	registry ports.EndpointRegistry
	caller   ports.LLMCaller
	defaults llm.CallConfig
}

func New(storage ports.TaskStorage, registry ports.EndpointRegistry, caller ports.LLMCaller, defaults llm.CallConfig) *Service {
	return &Service{storage: storage, registry: registry, caller: caller, defaults: defaults}
}

// ExecuteRequest identifies the version to run and its input values.
// Endpoint, when set, overrides both the active endpoint and the
// environment defaults.
type ExecuteRequest struct {
	TaskID       string
	VersionID    string
	InputData    map[string]string
	SystemPrompt string
	Endpoint     *domain.Endpoint
}

// Execute renders the version template, issues one LLM call, and appends
// the result at the head of the version's result history. A deferred
// persist keeps the result and reports domain.ErrPersistDeferred.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*domain.ExecutionResult, error) {
	version, err := s.storage.GetVersion(req.TaskID, req.VersionID)
	if err != nil {
		return nil, err
	}

	prompt := template.Render(version.Content, req.InputData)
	systemPrompt := req.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = version.SystemPrompt
	}

	output, err := s.caller.Call(ctx, prompt, systemPrompt, s.resolveConfig(req.Endpoint))
	if err != nil {
		return nil, err
	}

	result := &domain.ExecutionResult{
		InputData: req.InputData,
		Output:    output,
		Timestamp: output.Timestamp,
	}
	if err := s.storage.AppendResult(req.TaskID, req.VersionID, result); err != nil {
		if errors.Is(err, domain.ErrPersistDeferred) {
			return result, err
		}
		return nil, err
	}
	return result, nil
}

// resolveConfig picks the call target: explicit override, then the
// registry's active endpoint, then environment defaults. The llm package
// fills the hardcoded fallback when everything is blank.
func (s *Service) resolveConfig(override *domain.Endpoint) llm.CallConfig {
	ep := override
	if ep == nil {
		ep = s.registry.Active()
	}
	if ep == nil {
		return s.defaults
	}

	cfg := llm.CallConfig{
		BaseURL: ep.BaseURL,
		APIKey:  ep.APIKey,
		Model:   ep.DefaultModel,
	}
	if cfg.Model == "" {
		cfg.Model = s.defaults.Model
	}
	return cfg
}

// FieldDiff holds one differing field value pair.
type FieldDiff struct {
	Version1 string `json:"version1"`
	Version2 string `json:"version2"`
}

// VersionDiff is the structural comparison of two versions of a task.
type VersionDiff struct {
	TaskID      string               `json:"taskId"`
	Version1    *domain.Version      `json:"version1"`
	Version2    *domain.Version      `json:"version2"`
	Differences map[string]FieldDiff `json:"differences"`
}

// CompareVersions diffs the editable fields of two versions.
func (s *Service) CompareVersions(taskID, id1, id2 string) (*VersionDiff, error) {
	v1, err := s.storage.GetVersion(taskID, id1)
	if err != nil {
		return nil, err
	}
	v2, err := s.storage.GetVersion(taskID, id2)
	if err != nil {
		return nil, err
	}

	diff := &VersionDiff{
		TaskID:      taskID,
		Version1:    v1,
		Version2:    v2,
		Differences: make(map[string]FieldDiff),
	}
	fields := []struct {
		name string
		a, b string
	}{
		{"name", v1.Name, v2.Name},
		{"content", v1.Content, v2.Content},
		{"system_prompt", v1.SystemPrompt, v2.SystemPrompt},
		{"description", v1.Description, v2.Description},
	}
	for _, f := range fields {
		if f.a != f.b {
			diff.Differences[f.name] = FieldDiff{Version1: f.a, Version2: f.b}
		}
	}
	return diff, nil
}

// TaskReport renders a PDF summary of the task's versions and their most
// recent results.
func (s *Service) TaskReport(taskID string) ([]byte, error) {
	task, err := s.storage.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	return pdfgen.BuildTaskReport(task)
}
