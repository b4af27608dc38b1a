package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult collects per-field validation errors.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateAgainstSchema validates a generic field-keyed payload against a
// JSON schema expressed as a Go map.
func ValidateAgainstSchema(payload map[string]interface{}, schema map[string]interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return vr, nil
}

// GetErrorMessages returns a simple list of "field: message" strings.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Summary joins all error messages into a single string.
func (vr *ValidationResult) Summary() string {
	return strings.Join(vr.GetErrorMessages(), "\n")
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	phonePattern := regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
	return phonePattern.MatchString(phone)
}

// ValidateURL validates URL format
func ValidateURL(url string) bool {
	urlPattern := regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
	return urlPattern.MatchString(url)
}
