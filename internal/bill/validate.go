package bill

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Decimals are validated through their float value
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			switch d := field.Interface().(type) {
			case decimal.Decimal:
				return d.InexactFloat64()
			case decimal.NullDecimal:
				if !d.Valid {
					return nil
				}
				return d.Decimal.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{}, decimal.NullDecimal{})
		v.RegisterValidation("billtype", func(fl validator.FieldLevel) bool {
			return slices.Contains(Types, fl.Field().String())
		})
		validate = v
	})
	return validate
}

// ValidationError lists the fields of a bill that failed validation, keyed
// by their JSON name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid bill: " + strings.Join(parts, ", ")
}

// Validate checks a bill against the entry rules. It returns a
// *ValidationError when one or more fields are invalid.
func Validate(b *Bill) error {
	err := validatorInstance().Struct(b)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating bill: %w", err)
	}

	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = message(fe)
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "must be set together with " + strings.ToLower(fe.Param())
	case "email":
		return "must be a valid email"
	case "billtype":
		return "is not a known expense type"
	case "datetime":
		return "must be a YYYY-MM-DD date"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
