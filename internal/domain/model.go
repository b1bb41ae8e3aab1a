package domain

import "time"

// DefaultGroup is the group assigned to tasks created without one.
// It always exists and cannot be deleted.
const DefaultGroup = "default"

// Task is a named container for one prompt's version history.
// The versions list is newest-first by insertion.
type Task struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Group           string            `json:"group"`
	Variables       map[string]string `json:"variables,omitempty"`
	VariablePresets []Preset          `json:"variablePresets,omitempty"`
	Versions        []*Version        `json:"versions"`
}

// Preset is a named set of variable values the editor can apply at once.
type Preset struct {
	Name   string            `json:"name"`
	Values map[string]string `json:"values"`
}

// Version is a snapshot of a task's prompt template plus its execution
// results. The results list is newest-first by insertion.
type Version struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Content      string             `json:"content"`
	SystemPrompt string             `json:"system_prompt,omitempty"`
	Description  string             `json:"description,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    *time.Time         `json:"updatedAt,omitempty"`
	Results      []*ExecutionResult `json:"results"`
}

// ExecutionResult records one LLM call made against a version.
type ExecutionResult struct {
	InputData map[string]string `json:"inputData"`
	Output    LLMResponse       `json:"output"`
	Timestamp time.Time         `json:"timestamp"`
}

// LLMResponse is the normalized outcome of one chat-completion request.
// Error is set only when the adapter substituted a mock response.
type LLMResponse struct {
	Prompt       string    `json:"prompt"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Response     string    `json:"response"`
	Model        string    `json:"model"`
	Endpoint     string    `json:"endpoint,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Error        string    `json:"error,omitempty"`
}

// Endpoint is a configured upstream LLM API target.
type Endpoint struct {
	ID           string     `json:"id"`
	Name         string     `json:"name" validate:"required"`
	BaseURL      string     `json:"baseUrl" validate:"required,url"`
	APIKey       string     `json:"apiKey,omitempty"`
	DefaultModel string     `json:"defaultModel,omitempty"`
	Description  string     `json:"description,omitempty"`
	ContextSize  int        `json:"contextSize,omitempty"`
	IsDefault    bool       `json:"isDefault"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}
