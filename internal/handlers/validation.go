package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/campusconnect/pkg/errors"
	"github.com/charlesng35/campusconnect/pkg/response"
	appValidator "github.com/charlesng35/campusconnect/pkg/validator"
)

const genericPayloadError = "invalid request payload"

// ruleMessages renders a failed validation tag. %[1]s is the field, %[2]s
// the tag parameter and %[3]s the unit for length rules.
var ruleMessages = map[string]string{
	"required":      "%[1]s is required",
	"min":           "%[1]s must be at least %[2]s%[3]s",
	"max":           "%[1]s must be at most %[2]s%[3]s",
	"gte":           "%[1]s must be at least %[2]s",
	"lte":           "%[1]s must be at most %[2]s",
	"notblank":      "%[1]s must not be blank",
	"nonblankitems": "%[1]s must not contain blank entries",
}

// bindAndValidate decodes the JSON body into dest and applies its validate
// tags. On failure it writes a 400 response and returns false.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		msg := "invalid JSON payload"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		response.Error(c, appErrors.NewBadRequest(msg))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}
	return true
}

func formatValidationError(err error) string {
	var failures appValidator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return genericPayloadError
	}

	messages := make([]string, 0, len(failures))
	for _, failure := range failures {
		messages = append(messages, describeFailure(failure))
	}
	return strings.Join(messages, "; ")
}

func describeFailure(failure appValidator.ValidationError) string {
	field := strings.ToLower(strings.ReplaceAll(failure.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	if failure.Tag == "oneof" {
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(failure.Param, " ", ", "))
	}
	if tmpl, ok := ruleMessages[failure.Tag]; ok {
		return fmt.Sprintf(tmpl, field, failure.Param, lengthUnit(failure.Kind))
	}
	if failure.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
}

func lengthUnit(kind string) string {
	switch kind {
	case "string":
		return " characters"
	case "slice", "array", "map":
		return " entries"
	default:
		return ""
	}
}
