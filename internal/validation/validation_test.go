package validation

import (
	"testing"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type sample struct {
	Name  string   `json:"name" validate:"required,max=5"`
	Code  string   `json:"code" validate:"omitempty,alphanum"`
	Items []string `json:"items" validate:"min=1,max=2,dive,required"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	if err := v.Struct(sample{Name: "ok", Items: []string{"a"}}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := v.Struct(sample{Name: "too long", Code: "SE 123", Items: []string{"a", "b", "c"}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Error("expected error to match ErrValidation")
	}

	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"name", "code", "items"} {
		if !fields[want] {
			t.Errorf("expected field %q in %v", want, verr.Fields)
		}
	}
}
