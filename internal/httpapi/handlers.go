package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptstudio/internal/domain"
	"promptstudio/internal/service"
	"promptstudio/internal/storage"
)

const maxBodySize = 1 << 20

// Handler exposes the REST surface over the task store, the endpoint
// registry, and the execution service.
type Handler struct {
	tasks     *storage.TaskStore
	endpoints *storage.EndpointStore
	svc       *service.Service
}

func NewHandler(tasks *storage.TaskStore, endpoints *storage.EndpointStore, svc *service.Service) *Handler {
	return &Handler{tasks: tasks, endpoints: endpoints, svc: svc}
}

// Register wires every route onto the mux. Method and path matching is
// left to the stdlib pattern router.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{taskId}", h.getTask)
	mux.HandleFunc("PUT /api/tasks/{taskId}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{taskId}", h.deleteTask)

	mux.HandleFunc("GET /api/tasks/{taskId}/versions", h.listVersions)
	mux.HandleFunc("POST /api/tasks/{taskId}/versions", h.createVersion)
	mux.HandleFunc("GET /api/tasks/{taskId}/versions/{versionId}", h.getVersion)
	mux.HandleFunc("PUT /api/tasks/{taskId}/versions/{versionId}", h.updateVersion)
	mux.HandleFunc("DELETE /api/tasks/{taskId}/versions/{versionId}", h.deleteVersion)
	mux.HandleFunc("GET /api/tasks/{taskId}/report", h.taskReport)

	mux.HandleFunc("GET /api/templates/{taskId}/variables", h.getVariables)
	mux.HandleFunc("POST /api/templates/{taskId}/variables", h.setVariables)

	mux.HandleFunc("POST /api/llm/call", h.llmCall)
	mux.HandleFunc("GET /api/compare", h.compareVersions)

	mux.HandleFunc("GET /api/groups", h.listGroups)
	mux.HandleFunc("POST /api/groups", h.createGroup)
	mux.HandleFunc("DELETE /api/groups/{groupName}", h.deleteGroup)

	mux.HandleFunc("GET /api/llm-endpoints", h.listEndpoints)
	mux.HandleFunc("POST /api/llm-endpoints", h.createEndpoint)
	mux.HandleFunc("GET /api/llm-endpoints/{id}", h.getEndpoint)
	mux.HandleFunc("PUT /api/llm-endpoints/{id}", h.updateEndpoint)
	mux.HandleFunc("DELETE /api/llm-endpoints/{id}", h.deleteEndpoint)
	mux.HandleFunc("POST /api/llm-endpoints/{id}/activate", h.activateEndpoint)
	mux.HandleFunc("POST /api/llm-endpoints/{id}/set-default", h.setDefaultEndpoint)

	mux.HandleFunc("GET /healthz", h.health)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeMutation maps store mutation outcomes: a deferred persist still
// returns the entity, with 202 signaling degraded durability.
func writeMutation(w http.ResponseWriter, okStatus int, v any, err error) {
	switch {
	case err == nil:
		writeJSON(w, okStatus, v)
	case errors.Is(err, domain.ErrPersistDeferred):
		writeJSON(w, http.StatusAccepted, v)
	default:
		writeError(w, statusFor(err), err.Error())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLLMCallFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- tasks ---

type createTaskRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

type updateTaskRequest struct {
	Name  *string `json:"name"`
	Group *string `json:"group"`
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.ListTasks())
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := h.tasks.CreateTask(req.ID, req.Name, req.Group)
	writeMutation(w, http.StatusCreated, task, err)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTask(r.PathValue("taskId"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := h.tasks.UpdateTask(r.PathValue("taskId"), storage.TaskPatch{
		Name:  req.Name,
		Group: req.Group,
	})
	writeMutation(w, http.StatusOK, task, err)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("taskId")
	err := h.tasks.DeleteTask(id)
	writeMutation(w, http.StatusOK, map[string]string{"deleted": id}, err)
}

// --- versions ---

type createVersionRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

type updateVersionRequest struct {
	Name         *string `json:"name"`
	Content      *string `json:"content"`
	Description  *string `json:"description"`
	SystemPrompt *string `json:"system_prompt"`
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.ListVersions(r.PathValue("taskId")))
}

func (h *Handler) createVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	version, err := h.tasks.CreateVersion(r.PathValue("taskId"), storage.VersionDraft{
		ID:           req.ID,
		Name:         req.Name,
		Content:      req.Content,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
	})
	writeMutation(w, http.StatusCreated, version, err)
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.tasks.GetVersion(r.PathValue("taskId"), r.PathValue("versionId"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (h *Handler) updateVersion(w http.ResponseWriter, r *http.Request) {
	var req updateVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	version, err := h.tasks.UpdateVersion(r.PathValue("taskId"), r.PathValue("versionId"), storage.VersionPatch{
		Name:         req.Name,
		Content:      req.Content,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
	})
	writeMutation(w, http.StatusOK, version, err)
}

func (h *Handler) deleteVersion(w http.ResponseWriter, r *http.Request) {
	removed, err := h.tasks.DeleteVersion(r.PathValue("taskId"), r.PathValue("versionId"))
	writeMutation(w, http.StatusOK, removed, err)
}

func (h *Handler) taskReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.TaskReport(r.PathValue("taskId"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=report.pdf")
	_, _ = w.Write(data)
}

// --- template variables ---

type variablesResponse struct {
	Variables       []string          `json:"variables"`
	Values          map[string]string `json:"values,omitempty"`
	VariablePresets []domain.Preset   `json:"variablePresets,omitempty"`
}

type variablesRequest struct {
	Variables       map[string]string `json:"variables"`
	VariablePresets []domain.Preset   `json:"variablePresets"`
}

func (h *Handler) getVariables(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	resp := variablesResponse{Variables: h.tasks.TaskVariables(taskID)}
	if task, err := h.tasks.GetTask(taskID); err == nil {
		resp.Values = task.Variables
		resp.VariablePresets = task.VariablePresets
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) setVariables(w http.ResponseWriter, r *http.Request) {
	var req variablesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := h.tasks.SetTaskVariables(r.PathValue("taskId"), req.Variables, req.VariablePresets)
	writeMutation(w, http.StatusOK, task, err)
}

// --- llm call & compare ---

type callRequest struct {
	TaskID       string            `json:"taskId"`
	VersionID    string            `json:"versionId"`
	InputData    map[string]string `json:"inputData"`
	SystemPrompt string            `json:"system_prompt"`
	Endpoint     *domain.Endpoint  `json:"endpoint"`
}

type callResponse struct {
	Result    *domain.ExecutionResult `json:"result"`
	Persisted bool                    `json:"persisted"`
}

func (h *Handler) llmCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.svc.Execute(r.Context(), service.ExecuteRequest{
		TaskID:       req.TaskID,
		VersionID:    req.VersionID,
		InputData:    req.InputData,
		SystemPrompt: req.SystemPrompt,
		Endpoint:     req.Endpoint,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, callResponse{Result: result, Persisted: true})
	case errors.Is(err, domain.ErrPersistDeferred):
		writeJSON(w, http.StatusAccepted, callResponse{Result: result, Persisted: false})
	default:
		writeError(w, statusFor(err), err.Error())
	}
}

func (h *Handler) compareVersions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	taskID, v1, v2 := q.Get("taskId"), q.Get("version1"), q.Get("version2")
	if taskID == "" || v1 == "" || v2 == "" {
		writeError(w, http.StatusBadRequest, "taskId, version1 and version2 are required")
		return
	}
	diff, err := h.svc.CompareVersions(taskID, v1, v2)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// --- groups ---

type groupRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"groups": h.tasks.Groups()})
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.tasks.CreateGroup(req.Name)
	writeMutation(w, http.StatusCreated, map[string]string{"name": req.Name}, err)
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("groupName")
	err := h.tasks.DeleteGroup(name)
	writeMutation(w, http.StatusOK, map[string]string{"deleted": name}, err)
}

// --- llm endpoints ---

type endpointRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseURL      string `json:"baseUrl"`
	APIKey       string `json:"apiKey"`
	DefaultModel string `json:"defaultModel"`
	Description  string `json:"description"`
	ContextSize  int    `json:"contextSize"`
}

type endpointPatchRequest struct {
	Name         *string `json:"name"`
	BaseURL      *string `json:"baseUrl"`
	APIKey       *string `json:"apiKey"`
	DefaultModel *string `json:"defaultModel"`
	Description  *string `json:"description"`
	ContextSize  *int    `json:"contextSize"`
}

type endpointsResponse struct {
	Endpoints         []*domain.Endpoint `json:"endpoints"`
	ActiveEndpointID  *string            `json:"activeEndpointId"`
	DefaultEndpointID *string            `json:"defaultEndpointId"`
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, endpointsResponse{
		Endpoints:         h.endpoints.List(),
		ActiveEndpointID:  h.endpoints.ActiveID(),
		DefaultEndpointID: h.endpoints.DefaultID(),
	})
}

func (h *Handler) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ep, err := h.endpoints.Add(storage.EndpointDraft{
		ID:           req.ID,
		Name:         req.Name,
		BaseURL:      req.BaseURL,
		APIKey:       req.APIKey,
		DefaultModel: req.DefaultModel,
		Description:  req.Description,
		ContextSize:  req.ContextSize,
	})
	writeMutation(w, http.StatusCreated, ep, err)
}

func (h *Handler) getEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.endpoints.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *Handler) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ep, err := h.endpoints.Update(r.PathValue("id"), storage.EndpointPatch{
		Name:         req.Name,
		BaseURL:      req.BaseURL,
		APIKey:       req.APIKey,
		DefaultModel: req.DefaultModel,
		Description:  req.Description,
		ContextSize:  req.ContextSize,
	})
	writeMutation(w, http.StatusOK, ep, err)
}

func (h *Handler) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.endpoints.Delete(id)
	writeMutation(w, http.StatusOK, map[string]string{"deleted": id}, err)
}

func (h *Handler) activateEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.endpoints.SetActive(r.PathValue("id"))
	writeMutation(w, http.StatusOK, ep, err)
}

func (h *Handler) setDefaultEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.endpoints.SetDefault(r.PathValue("id"))
	writeMutation(w, http.StatusOK, ep, err)
}
