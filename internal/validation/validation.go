// Package validation checks request payloads against their struct tags and
// reports failures as field-level domain errors with Vietnamese messages.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct returns nil or a *domain.ValidationError listing every failing field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate")
	}

	out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, domain.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "createOrderInput.items[0].name" -> "items[0].name".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Trường này là bắt buộc"
	case "email":
		return "Email không hợp lệ"
	case "alphanum":
		return "Chỉ được chứa chữ cái và chữ số, không có khoảng trắng hay ký tự đặc biệt"
	case "oneof":
		return fmt.Sprintf("Giá trị phải là một trong: %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Cần ít nhất %s phần tử", fe.Param())
		}
		return fmt.Sprintf("Tối thiểu %s ký tự", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Tối đa %s phần tử", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Tối đa %s ký tự", fe.Param())
		}
		return fmt.Sprintf("Giá trị tối đa là %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Giá trị phải lớn hơn %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Giá trị phải lớn hơn hoặc bằng %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Giá trị tối đa là %s", fe.Param())
	}
	return "Giá trị không hợp lệ"
}
