package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Profiles *ProfileRepo
	Schemas  *SchemaRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Profiles: NewProfileRepo(),
		Schemas:  NewSchemaRepo(),
	}
}

// ProfileRepo is an in-memory repository.ProfileRepo. Setting GetErr or
// EnsureErr makes the matching calls fail.
type ProfileRepo struct {
	mu        sync.Mutex
	Stored    map[string]models.Profile
	GetErr    error
	EnsureErr error
	Ensured   int
}

var _ repository.ProfileRepo = (*ProfileRepo)(nil)

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{Stored: make(map[string]models.Profile)}
}

func (m *ProfileRepo) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Stored[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (m *ProfileRepo) ListProfilesByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Profile
	for _, p := range m.Stored {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *ProfileRepo) CreateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Stored[p.ID]; ok {
		return models.ErrConflict
	}
	m.Stored[p.ID] = *p
	return nil
}

func (m *ProfileRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.Stored[p.ID]
	if !ok {
		return models.ErrNotFound
	}
	cur.DisplayName, cur.BrandName, cur.Location = p.DisplayName, p.BrandName, p.Location
	cur.Email, cur.Phone, cur.Services = p.Email, p.Phone, p.Services
	m.Stored[p.ID] = cur
	return nil
}

func (m *ProfileRepo) EnsureProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ensured++
	if m.EnsureErr != nil {
		return m.EnsureErr
	}
	cur, ok := m.Stored[p.ID]
	if !ok {
		m.Stored[p.ID] = *p
		return nil
	}
	if cur.DisplayName == "" {
		cur.DisplayName = p.DisplayName
	}
	if cur.Email == "" {
		cur.Email = p.Email
	}
	m.Stored[p.ID] = cur
	return nil
}

// SchemaRepo is an in-memory repository.CategorySchemaRepo. ListErr makes
// ListCategorySchemas fail.
type SchemaRepo struct {
	mu      sync.Mutex
	schemas map[string]models.CategorySchema
	ListErr error
}

var _ repository.CategorySchemaRepo = (*SchemaRepo)(nil)

func NewSchemaRepo() *SchemaRepo {
	return &SchemaRepo{schemas: make(map[string]models.CategorySchema)}
}

func (m *SchemaRepo) UpsertCategorySchema(ctx context.Context, s *models.CategorySchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[s.Category] = *s
	return nil
}

func (m *SchemaRepo) GetCategorySchema(ctx context.Context, category string) (*models.CategorySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schemas[category]; ok {
		return &s, nil
	}
	return nil, models.ErrNotFound
}

func (m *SchemaRepo) ListCategorySchemas(ctx context.Context) ([]models.CategorySchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.CategorySchema, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *SchemaRepo) DeleteCategorySchema(ctx context.Context, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[category]; !ok {
		return models.ErrNotFound
	}
	delete(m.schemas, category)
	return nil
}
