// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the kitchen-backoffice service.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kitchen-backoffice/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
)

// MockAdminRepository implements domain.AdminRepository for testing
type MockAdminRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	GetByEmailFunc func(ctx context.Context, email string) (*domain.AdminUser, error)
	CreateFunc     func(ctx context.Context, admin *domain.AdminUser) error

	// In-memory storage keyed by email
	Admins map[string]*domain.AdminUser
}

// NewMockAdminRepository creates a new MockAdminRepository with initialized maps
func NewMockAdminRepository() *MockAdminRepository {
	return &MockAdminRepository{
		Admins: make(map[string]*domain.AdminUser),
	}
}

// Add stores admin under its email
func (m *MockAdminRepository) Add(admin *domain.AdminUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Admins[admin.Email] = admin
}

func (m *MockAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if admin, ok := m.Admins[email]; ok {
		return admin, nil
	}
	return nil, domain.ErrAdminNotFound
}

func (m *MockAdminRepository) Create(ctx context.Context, admin *domain.AdminUser) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, admin)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Admins[admin.Email]; exists {
		return domain.ErrAdminExists
	}
	if admin.ID == "" {
		admin.ID = "admin-" + admin.Email
	}
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now()
	}
	m.Admins[admin.Email] = admin
	return nil
}

// MockLocationRepository implements domain.LocationRepository for testing
type MockLocationRepository struct {
	mu sync.RWMutex

	GetBySlugFunc func(ctx context.Context, slug string) (*domain.Location, error)
	ListFunc      func(ctx context.Context) ([]*domain.Location, error)
	CreateFunc    func(ctx context.Context, location *domain.Location) error

	// In-memory storage keyed by slug
	Locations map[string]*domain.Location
}

// NewMockLocationRepository creates a new MockLocationRepository with initialized maps
func NewMockLocationRepository() *MockLocationRepository {
	return &MockLocationRepository{
		Locations: make(map[string]*domain.Location),
	}
}

// Add stores a location directly, bypassing Create
func (m *MockLocationRepository) Add(loc *domain.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locations[loc.Slug] = loc
}

func (m *MockLocationRepository) GetBySlug(ctx context.Context, slug string) (*domain.Location, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if loc, ok := m.Locations[slug]; ok {
		return loc, nil
	}
	return nil, domain.ErrLocationNotFound
}

func (m *MockLocationRepository) List(ctx context.Context) ([]*domain.Location, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Location, 0, len(m.Locations))
	for _, loc := range m.Locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *MockLocationRepository) Create(ctx context.Context, location *domain.Location) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, location)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Locations == nil {
		m.Locations = make(map[string]*domain.Location)
	}
	if _, exists := m.Locations[location.Slug]; exists {
		return domain.ErrSlugTaken
	}
	if location.ID == "" {
		location.ID = "loc-" + location.Slug
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now()
	}
	m.Locations[location.Slug] = location
	return nil
}

// MockEventPublisher implements domain.SecurityEventPublisher for testing
type MockEventPublisher struct {
	mu sync.Mutex

	PublishFunc func(ctx context.Context, event *domain.SecurityEvent) error

	Published []*domain.SecurityEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishSecurityEvent(ctx context.Context, event *domain.SecurityEvent) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, event)
	return nil
}

// Events returns a copy of the published events
func (m *MockEventPublisher) Events() []*domain.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.SecurityEvent(nil), m.Published...)
}

// RecordingSink collects events emitted by the pipeline synchronously
type RecordingSink struct {
	mu     sync.Mutex
	events []*domain.SecurityEvent
}

func (s *RecordingSink) Emit(_ context.Context, event *domain.SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events
func (s *RecordingSink) Events() []*domain.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.SecurityEvent(nil), s.events...)
}

// Types returns the recorded event types in order
func (s *RecordingSink) Types() []domain.SecurityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]domain.SecurityEventType, len(s.events))
	for i, e := range s.events {
		types[i] = e.Type
	}
	return types
}
