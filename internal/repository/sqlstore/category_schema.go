package sqlstore

import (
	"context"
	"fmt"

	"github.com/garnizeh/marketplace/pkg/models"
)

const categorySchemaColumns = `category, description, schema_json, created_at, updated_at`

// UpsertCategorySchema inserts or replaces the intake schema of a category.
func (r *SQLRepo) UpsertCategorySchema(ctx context.Context, s *models.CategorySchema) error {
	if s == nil {
		return fmt.Errorf("category schema is nil")
	}
	ts := now()
	if s.Created == 0 {
		s.Created = ts
	}
	s.Updated = ts

	_, err := r.exec(ctx, `INSERT INTO category_schemas (`+categorySchemaColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (category) DO UPDATE SET description = excluded.description, schema_json = excluded.schema_json, updated_at = excluded.updated_at`,
		s.Category, s.Description, s.SchemaJSON, s.Created, s.Updated)
	return err
}

func (r *SQLRepo) GetCategorySchema(ctx context.Context, category string) (*models.CategorySchema, error) {
	var s models.CategorySchema
	if err := r.get(ctx, &s, `SELECT `+categorySchemaColumns+` FROM category_schemas WHERE category = ?`, category); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLRepo) ListCategorySchemas(ctx context.Context) ([]models.CategorySchema, error) {
	var out []models.CategorySchema
	if err := r.selectAll(ctx, &out, `SELECT `+categorySchemaColumns+` FROM category_schemas ORDER BY category`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) DeleteCategorySchema(ctx context.Context, category string) error {
	n, err := r.execAffected(ctx, `DELETE FROM category_schemas WHERE category = ?`, category)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
