package recapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Payload is the unwrapped content of a successful response.
type Payload struct {
	Data       json.RawMessage
	Pagination *Pagination
	Message    string
}

// Schema turns a payload into a typed value or a ValidationError.
type Schema[T any] interface {
	Validate(payload *Payload) (T, error)
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc[T any] func(payload *Payload) (T, error)

// Validate implements Schema.
func (f SchemaFunc[T]) Validate(payload *Payload) (T, error) {
	return f(payload)
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// ObjectSchema decodes data into a T and checks its validate tags.
func ObjectSchema[T any]() Schema[*T] {
	return SchemaFunc[*T](func(payload *Payload) (*T, error) {
		if payload == nil || isEmptyJSON(payload.Data) {
			return nil, NewValidationError(Violation{Field: "data", Rule: "required", Message: "response has no data"})
		}

		var out T

		err := json.Unmarshal(payload.Data, &out)
		if err != nil {
			return nil, NewValidationError(decodeViolation("data", err))
		}

		violations := ValidateStruct("", out)
		if len(violations) > 0 {
			return nil, NewValidationError(violations...)
		}

		return &out, nil
	})
}

// PageSchema decodes a list of T with its pagination and checks every item.
func PageSchema[T any]() Schema[*Page[T]] {
	return SchemaFunc[*Page[T]](func(payload *Payload) (*Page[T], error) {
		if payload == nil || isEmptyJSON(payload.Data) {
			return nil, NewValidationError(Violation{Field: "data", Rule: "required", Message: "response has no data"})
		}

		var violations []Violation

		if payload.Pagination == nil {
			violations = append(violations, Violation{Field: "pagination", Rule: "required", Message: "list response has no pagination"})
		}

		var items []T

		err := json.Unmarshal(payload.Data, &items)
		if err != nil {
			violations = append(violations, decodeViolation("data", err))

			return nil, NewValidationError(violations...)
		}

		for i, item := range items {
			violations = append(violations, ValidateStruct(fmt.Sprintf("data[%d]", i), item)...)
		}

		page := &Page[T]{Items: items}
		if payload.Pagination != nil {
			page.Pagination = *payload.Pagination
			violations = append(violations, ValidateStruct("pagination", page.Pagination)...)
		}

		if len(violations) > 0 {
			return nil, NewValidationError(violations...)
		}

		if page.Items == nil {
			page.Items = []T{}
		}

		return page, nil
	})
}

// ValidateStruct checks the validate tags of v and returns one violation per
// failed rule, with field paths joined under prefix. Values that are not
// structs have no rules and always pass.
func ValidateStruct(prefix string, v interface{}) []Violation {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []Violation{{Field: prefix, Rule: "validate", Message: err.Error()}}
	}

	violations := make([]Violation, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		violations = append(violations, Violation{
			Field:   joinField(prefix, fieldPath(fe.Namespace())),
			Rule:    fe.Tag(),
			Message: ruleMessage(fe),
		})
	}

	return violations
}

// fieldPath drops the struct type name the validator puts first.
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return rest
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

func decodeViolation(field string, err error) Violation {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		name := field
		if typeErr.Field != "" {
			name = joinField(field, typeErr.Field)
		}

		return Violation{
			Field:   name,
			Rule:    "type",
			Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}

	return Violation{Field: field, Rule: "decode", Message: err.Error()}
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))

	return trimmed == "" || trimmed == "null"
}
