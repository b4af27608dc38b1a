package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAgainstSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string", "minLength": 1},
			"age":  map[string]interface{}{"type": "integer", "minimum": 0},
		},
	}

	result, err := ValidateAgainstSchema(map[string]interface{}{"name": "A", "age": 3}, schema)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	result, err = ValidateAgainstSchema(map[string]interface{}{"age": -1}, schema)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
	assert.NotEmpty(t, result.GetErrorMessages())
	assert.NotEmpty(t, result.Summary())
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ops@example.com"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("a@b"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+33612345678"))
	assert.True(t, ValidatePhone("06 12 34 56 78"))
	assert.False(t, ValidatePhone("12345"))
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://example.com/hooks/1"))
	assert.False(t, ValidateURL("example.com"))
	assert.False(t, ValidateURL("https://"))
}
