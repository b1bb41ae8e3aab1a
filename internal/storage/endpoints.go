package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"promptstudio/internal/domain"
)

// EndpointDraft carries the fields accepted when registering an endpoint.
type EndpointDraft struct {
	ID           string
	Name         string
	BaseURL      string
	APIKey       string
	DefaultModel string
	Description  string
	ContextSize  int
}

// EndpointPatch carries the endpoint fields an update may change.
type EndpointPatch struct {
	Name         *string
	BaseURL      *string
	APIKey       *string
	DefaultModel *string
	Description  *string
	ContextSize  *int
}

// endpointsSnapshot is the on-disk document for the endpoint registry.
type endpointsSnapshot struct {
	Endpoints         []*domain.Endpoint `json:"endpoints"`
	ActiveEndpointID  *string            `json:"activeEndpointId"`
	DefaultEndpointID *string            `json:"defaultEndpointId"`
}

// EndpointStore manages the registry of upstream LLM endpoints plus the
// active/default pointers. The pointers always reference a registered
// endpoint or are nil.
type EndpointStore struct {
	mu        sync.RWMutex
	repo      SnapshotRepository
	endpoints []*domain.Endpoint
	activeID  *string
	defaultID *string
	validate  *validator.Validate
	now       func() time.Time
}

func NewEndpointStore(repo SnapshotRepository) *EndpointStore {
	return &EndpointStore{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Load reads the registry snapshot. Pointers to endpoints that no longer
// exist are dropped.
func (s *EndpointStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap endpointsSnapshot
	if err := s.repo.Load(&snap); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	s.endpoints = snap.Endpoints
	if s.findLocked(deref(snap.ActiveEndpointID)) != nil {
		s.activeID = snap.ActiveEndpointID
	}
	if s.findLocked(deref(snap.DefaultEndpointID)) != nil {
		s.defaultID = snap.DefaultEndpointID
	}
	return nil
}

func (s *EndpointStore) persistLocked() error {
	snap := endpointsSnapshot{
		Endpoints:         s.endpoints,
		ActiveEndpointID:  s.activeID,
		DefaultEndpointID: s.defaultID,
	}
	if err := s.repo.Save(snap); err != nil {
		slog.Error("endpoint snapshot write failed", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrPersistDeferred, err)
	}
	return nil
}

// Add registers an endpoint. The very first endpoint becomes both active
// and default.
func (s *EndpointStore) Add(draft EndpointDraft) (*domain.Endpoint, error) {
	ep := &domain.Endpoint{
		ID:           strings.TrimSpace(draft.ID),
		Name:         strings.TrimSpace(draft.Name),
		BaseURL:      strings.TrimSpace(draft.BaseURL),
		APIKey:       draft.APIKey,
		DefaultModel: draft.DefaultModel,
		Description:  draft.Description,
		ContextSize:  draft.ContextSize,
		CreatedAt:    s.now(),
	}
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if err := s.validate.Struct(ep); err != nil {
		return nil, validationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(ep.ID) != nil {
		return nil, fmt.Errorf("endpoint %q: %w", ep.ID, domain.ErrDuplicateID)
	}

	s.endpoints = append(s.endpoints, ep)
	if len(s.endpoints) == 1 {
		ep.IsDefault = true
		s.activeID = &ep.ID
		s.defaultID = &ep.ID
	}
	return ep, s.persistLocked()
}

func (s *EndpointStore) Update(id string, patch EndpointPatch) (*domain.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep := s.findLocked(id)
	if ep == nil {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}

	updated := *ep
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.BaseURL != nil {
		updated.BaseURL = strings.TrimSpace(*patch.BaseURL)
	}
	if patch.APIKey != nil {
		updated.APIKey = *patch.APIKey
	}
	if patch.DefaultModel != nil {
		updated.DefaultModel = *patch.DefaultModel
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.ContextSize != nil {
		updated.ContextSize = *patch.ContextSize
	}
	if err := s.validate.Struct(&updated); err != nil {
		return nil, validationError(err)
	}

	now := s.now()
	updated.UpdatedAt = &now
	*ep = updated
	return ep, s.persistLocked()
}

// Delete removes an endpoint. When the deleted endpoint held the active or
// default role, the first remaining endpoint takes over both roles; an
// empty registry nulls both pointers.
func (s *EndpointStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, ep := range s.endpoints {
		if ep.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}

	wasActive := s.activeID != nil && *s.activeID == id
	wasDefault := s.defaultID != nil && *s.defaultID == id
	s.endpoints = append(s.endpoints[:idx], s.endpoints[idx+1:]...)

	if wasActive || wasDefault {
		if len(s.endpoints) == 0 {
			s.activeID = nil
			s.defaultID = nil
		} else {
			next := s.endpoints[0]
			s.activeID = &next.ID
			s.defaultID = &next.ID
			for _, ep := range s.endpoints {
				ep.IsDefault = ep.ID == next.ID
			}
		}
	}
	return s.persistLocked()
}

func (s *EndpointStore) SetActive(id string) (*domain.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep := s.findLocked(id)
	if ep == nil {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	s.activeID = &ep.ID
	return ep, s.persistLocked()
}

// SetDefault marks one endpoint as default, clearing the flag everywhere
// else so exactly one endpoint carries it.
func (s *EndpointStore) SetDefault(id string) (*domain.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.findLocked(id)
	if target == nil {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	for _, ep := range s.endpoints {
		ep.IsDefault = ep.ID == id
	}
	s.defaultID = &target.ID
	return target, s.persistLocked()
}

func (s *EndpointStore) Get(id string) (*domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ep := s.findLocked(id)
	if ep == nil {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	return ep, nil
}

func (s *EndpointStore) List() []*domain.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.Endpoint, len(s.endpoints))
	copy(list, s.endpoints)
	return list
}

// Active returns the endpoint LLM calls should use absent an explicit
// override: the active endpoint, else the default one, else nil.
func (s *EndpointStore) Active() *domain.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ep := s.findLocked(deref(s.activeID)); ep != nil {
		return ep
	}
	return s.findLocked(deref(s.defaultID))
}

// ActiveID and DefaultID expose the registry pointers for API responses.
func (s *EndpointStore) ActiveID() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

func (s *EndpointStore) DefaultID() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultID
}

func (s *EndpointStore) findLocked(id string) *domain.Endpoint {
	if id == "" {
		return nil
	}
	for _, ep := range s.endpoints {
		if ep.ID == id {
			return ep
		}
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return domain.NewValidationError(strings.ToLower(f.Field()), fmt.Sprint(f.Value()), "failed "+f.Tag()+" check")
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
