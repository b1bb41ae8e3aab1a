package ports

import "promptstudio/internal/domain"

// TaskStorage describes the store operations the execution service needs.
type TaskStorage interface {
	GetTask(id string) (*domain.Task, error)
	GetVersion(taskID, versionID string) (*domain.Version, error)
	AppendResult(taskID, versionID string, res *domain.ExecutionResult) error
}

// EndpointRegistry resolves the endpoint LLM calls should target when the
// request carries no explicit override.
type EndpointRegistry interface {
	Active() *domain.Endpoint
}
