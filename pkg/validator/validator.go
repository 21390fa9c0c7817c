package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator provides validation functionality
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	Initialize()
	return &Validator{
		validate: validate,
	}
}

// Struct validates a struct using the validator instance
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Initialize initializes the global validator instance
func Initialize() {
	once.Do(func() {
		validate = validator.New()

		// Register custom tag name function to use json tags
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		registerCustomValidators()
	})
}

// Validate validates a struct
func Validate(s interface{}) error {
	if validate == nil {
		Initialize()
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	// Convert validation errors to user-friendly format
	var validationErrors []string
	for _, err := range err.(validator.ValidationErrors) {
		validationErrors = append(validationErrors, formatValidationError(err))
	}

	return fmt.Errorf("validation failed: %s", strings.Join(validationErrors, ", "))
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	if validate == nil {
		Initialize()
	}

	return validate.Var(field, tag)
}

// formatValidationError formats a validation error into a human-readable message
func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, err.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, err.Param())
	case "node_type":
		return fmt.Sprintf("%s must be a valid node type identifier", field)
	case "workflow_name":
		return fmt.Sprintf("%s must be a valid workflow name", field)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, err.Tag())
	}
}

// registerCustomValidators registers custom validation rules
func registerCustomValidators() {
	validate.RegisterValidation("workflow_name", validateWorkflowName)
	validate.RegisterValidation("node_type", validateNodeType)
}

// validateWorkflowName validates workflow names. Model-generated names carry
// light punctuation, so the rule rejects only path and control characters.
func validateWorkflowName(fl validator.FieldLevel) bool {
	name := fl.Field().String()

	if len(name) < 1 || len(name) > 100 {
		return false
	}

	for _, char := range name {
		if (char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == ' ' || char == '-' || char == '_' {
			continue
		}
		switch char {
		case '&', '(', ')', '.', ',', '\'', ':':
			continue
		}
		return false
	}

	return true
}

// validateNodeType checks node type identifiers such as
// discord_trigger_new_message or notion_action_search_pages.
// Identifiers are lowercase snake_case segments.
func validateNodeType(fl validator.FieldLevel) bool {
	nodeType := fl.Field().String()

	if len(nodeType) < 1 || len(nodeType) > 80 {
		return false
	}

	segments := strings.Split(nodeType, "_")
	for _, seg := range segments {
		if seg == "" {
			return false
		}
		for _, char := range seg {
			if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
				return false
			}
		}
	}

	return true
}
