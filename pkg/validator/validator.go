package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one failed rule on one field. Field uses the json name.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
	// Kind is the reflect kind of the failing value, e.g. "string" or "int".
	Kind string `json:"kind,omitempty"`
}

func (e ValidationError) String() string {
	if e.Param == "" {
		return e.Field + " failed on " + e.Tag
	}
	return fmt.Sprintf("%s failed on %s=%s", e.Field, e.Tag, e.Param)
}

// ValidationErrors collects every failure of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, failure := range v {
		parts[i] = failure.String()
	}
	return strings.Join(parts, "; ")
}

var customRules = map[string]validator.Func{
	"notblank":      notBlank,
	"nonblankitems": nonBlankItems,
}

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range customRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validator: register %s: %v", tag, err))
		}
	}
	return v
})

// ValidateStruct checks s against its validate tags. Rule failures come back
// as ValidationErrors; anything else, such as a non-struct argument, is
// returned unchanged.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	failures := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		failures[i] = ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Kind:  fe.Kind().String(),
		}
	}
	return failures
}

// RegisterValidation adds a custom rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// notBlank rejects strings made only of whitespace. Non-string kinds pass.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	return field.Kind() != reflect.String || strings.TrimSpace(field.String()) != ""
}

// nonBlankItems rejects slices holding a whitespace-only string.
func nonBlankItems(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return true
	}
	for i := range field.Len() {
		item := field.Index(i)
		if item.Kind() == reflect.String && strings.TrimSpace(item.String()) == "" {
			return false
		}
	}
	return true
}
