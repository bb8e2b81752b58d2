package validation_test

import (
	"errors"
	"testing"

	"github.com/garnizeh/marketplace/internal/validation"
	"github.com/garnizeh/marketplace/pkg/models"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Price int64  `json:"price_cents" validate:"gt=0"`
	Note  string `json:"-" validate:"max=3"`
}

func TestValidate(t *testing.T) {
	v := validation.New()

	if err := v.Validate(sample{Name: "ok", Price: 1}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := v.Validate(sample{Name: "ok"})
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "price_cents" || ve.Message != "failed on 'gt' validation" {
		t.Fatalf("unexpected error %+v", ve)
	}
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("validation errors must match ErrInvalidInput")
	}

	if err := v.Validate(42); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("non-struct input must be invalid, got %v", err)
	}
}
