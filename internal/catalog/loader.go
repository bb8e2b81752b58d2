// Package catalog caches the per-category intake schemas and validates job
// details against them.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

// Loader loads and caches compiled JSON schemas from the repository.
type Loader struct {
	repo  repository.CategorySchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
	names []string
}

func NewLoader(ctx context.Context, r repository.CategorySchemaRepo) (*Loader, error) {
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

func key(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// GetSchema returns the compiled schema of a category.
func (l *Loader) GetSchema(category string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[key(category)]
	l.mu.RUnlock()

	return s, ok
}

// Categories lists the categories that carry a schema, in display form.
func (l *Loader) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.names)
}

// Reload loads all schemas from the DB and compiles them. On error the
// previous cache stays in place.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListCategorySchemas(ctx)
	if err != nil {
		return fmt.Errorf("load category schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		rs, err := Compile(r.SchemaJSON)
		if err != nil {
			return fmt.Errorf("compile schema %s: %w", r.Category, err)
		}
		newCache[key(r.Category)] = rs
		names = append(names, r.Category)
	}
	slices.Sort(names)

	l.mu.Lock()
	l.cache = newCache
	l.names = names
	l.mu.Unlock()
	return nil
}

// Compile parses a schema document.
func Compile(schemaJSON string) (*jsonschema.Schema, error) {
	if !json.Valid([]byte(schemaJSON)) {
		return nil, &models.ValidationError{Field: "schema", Message: "not valid JSON"}
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(schemaJSON), rs); err != nil {
		return nil, &models.ValidationError{Field: "schema", Message: err.Error()}
	}
	return rs, nil
}

// Put stores a category schema after checking it compiles, then reloads.
func (l *Loader) Put(ctx context.Context, s *models.CategorySchema) error {
	if strings.TrimSpace(s.Category) == "" {
		return &models.ValidationError{Field: "category", Message: "required"}
	}
	if _, err := Compile(s.SchemaJSON); err != nil {
		return err
	}
	if err := l.repo.UpsertCategorySchema(ctx, s); err != nil {
		return fmt.Errorf("store schema %s: %w", s.Category, err)
	}
	return l.Reload(ctx)
}

// ValidateDetails checks job details against the category's schema. A
// category without a schema accepts any details.
func (l *Loader) ValidateDetails(ctx context.Context, category string, details models.Details) error {
	s, ok := l.GetSchema(category)
	if !ok {
		return nil
	}
	if details == nil {
		details = models.Details{}
	}
	b, err := json.Marshal(details)
	if err != nil {
		return &models.ValidationError{Field: "details", Message: err.Error()}
	}

	verrs, err := s.ValidateBytes(ctx, b)
	if err != nil {
		return fmt.Errorf("validate details for %s: %w", category, err)
	}
	if len(verrs) == 0 {
		return nil
	}

	field := "details"
	if p := strings.Trim(verrs[0].PropertyPath, "/"); p != "" {
		field = "details." + strings.ReplaceAll(p, "/", ".")
	}
	return &models.ValidationError{Field: field, Message: verrs[0].Message}
}
