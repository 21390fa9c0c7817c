package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("New creates error with correct fields", func(t *testing.T) {
		err := New(ErrorTypeValidation, CodeInvalidInput, "test message")

		assert.Equal(t, ErrorTypeValidation, err.Type)
		assert.Equal(t, CodeInvalidInput, err.Code)
		assert.Equal(t, "test message", err.Message)
		assert.NotEmpty(t, err.StackTrace)
		assert.False(t, err.Retryable)
		assert.NotNil(t, err.Context)
	})

	t.Run("Newf creates error with formatted message", func(t *testing.T) {
		err := Newf(ErrorTypeValidation, CodeInvalidInput, "test %s %d", "message", 123)

		assert.Equal(t, "test message 123", err.Message)
	})

	t.Run("Error method returns formatted string", func(t *testing.T) {
		err := New(ErrorTypeValidation, CodeInvalidInput, "test message")

		expected := fmt.Sprintf("%s: %s", CodeInvalidInput, "test message")
		assert.Equal(t, expected, err.Error())
	})

	t.Run("Error method with details", func(t *testing.T) {
		err := New(ErrorTypeValidation, CodeInvalidInput, "test message").WithDetails("extra details")

		expected := fmt.Sprintf("%s: %s - %s", CodeInvalidInput, "test message", "extra details")
		assert.Equal(t, expected, err.Error())
	})

	t.Run("WithContext adds context", func(t *testing.T) {
		err := New(ErrorTypeValidation, CodeInvalidInput, "test message")
		err.WithContext("key", "value")

		assert.Equal(t, "value", err.Context["key"])
	})

	t.Run("WithCause sets underlying cause", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrorTypeValidation, CodeInvalidInput, "test message").WithCause(cause)

		assert.Equal(t, cause, err.Cause)
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestWrapError(t *testing.T) {
	t.Run("Wrap nil error returns nil", func(t *testing.T) {
		err := Wrap(nil, ErrorTypeInternal, CodeInternal, "test")
		assert.Nil(t, err)
	})

	t.Run("Wrap regular error", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := Wrap(original, ErrorTypeInternal, CodeInternal, "wrapped message")

		assert.Equal(t, ErrorTypeInternal, wrapped.Type)
		assert.Equal(t, CodeInternal, wrapped.Code)
		assert.Equal(t, "wrapped message", wrapped.Message)
		assert.Equal(t, original, wrapped.Cause)
	})

	t.Run("Wrap AppError preserves retryable flag", func(t *testing.T) {
		original := New(ErrorTypeTimeout, CodeTimeout, "timeout").SetRetryable(true)
		wrapped := Wrap(original, ErrorTypeInternal, CodeInternal, "wrapped")

		assert.True(t, wrapped.Retryable)
		assert.Equal(t, original, wrapped.Cause)
	})

	t.Run("Wrapf with formatted message", func(t *testing.T) {
		original := errors.New("original")
		wrapped := Wrapf(original, ErrorTypeInternal, CodeInternal, "wrapped %s %d", "message", 123)

		assert.Equal(t, "wrapped message 123", wrapped.Message)
		assert.Equal(t, original, wrapped.Cause)
	})
}

func TestErrorConstructors(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidInput, "invalid data")

		assert.Equal(t, ErrorTypeValidation, err.Type)
		assert.Equal(t, CodeInvalidInput, err.Code)
		assert.Equal(t, "invalid data", err.Message)
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError("workflow")

		assert.Equal(t, ErrorTypeNotFound, err.Type)
		assert.Equal(t, CodeResourceNotFound, err.Code)
		assert.Equal(t, "workflow not found", err.Message)
	})

	t.Run("ConflictError", func(t *testing.T) {
		err := ConflictError("workflow")

		assert.Equal(t, ErrorTypeConflict, err.Type)
		assert.Equal(t, CodeResourceExists, err.Code)
		assert.Equal(t, "workflow already exists", err.Message)
	})

	t.Run("ExternalError", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := ExternalError("openai", cause)

		assert.Equal(t, ErrorTypeExternal, err.Type)
		assert.Equal(t, CodeExternalService, err.Code)
		assert.Equal(t, "external service openai failed", err.Message)
		assert.Equal(t, cause, err.Cause)
	})

	t.Run("DatabaseError", func(t *testing.T) {
		cause := errors.New("connection failed")
		err := DatabaseError("insert", cause)

		assert.Equal(t, ErrorTypeDatabase, err.Type)
		assert.Equal(t, CodeDatabaseQuery, err.Code)
		assert.Equal(t, "database operation insert failed", err.Message)
		assert.Equal(t, cause, err.Cause)
	})

	t.Run("NodeError", func(t *testing.T) {
		err := NodeError("node-123", "slack_action_send_message", "unknown node type")

		assert.Equal(t, ErrorTypeNode, err.Type)
		assert.Equal(t, CodeUnknownNodeType, err.Code)
		assert.Equal(t, "node-123", err.Context["node_id"])
		assert.Equal(t, "slack_action_send_message", err.Context["node_type"])
	})

	t.Run("GenerationError", func(t *testing.T) {
		err := GenerationError(CodeInvalidWorkflow, "workflow failed validation")

		assert.Equal(t, ErrorTypeGeneration, err.Type)
		assert.Equal(t, CodeInvalidWorkflow, err.Code)
	})
}

func TestGetAppError(t *testing.T) {
	t.Run("GetAppError from AppError", func(t *testing.T) {
		original := New(ErrorTypeValidation, CodeInvalidInput, "test")
		result := GetAppError(original)

		assert.Equal(t, original, result)
	})

	t.Run("GetAppError from wrapped AppError", func(t *testing.T) {
		appErr := New(ErrorTypeValidation, CodeInvalidInput, "test")
		wrapped := fmt.Errorf("wrapped: %w", appErr)
		result := GetAppError(wrapped)

		assert.Equal(t, appErr, result)
	})

	t.Run("GetAppError from regular error", func(t *testing.T) {
		result := GetAppError(errors.New("regular error"))
		assert.Nil(t, result)
	})

	t.Run("GetAppError from nil", func(t *testing.T) {
		result := GetAppError(nil)
		assert.Nil(t, result)
	})
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		errorType    ErrorType
		expectedCode int
	}{
		{ErrorTypeValidation, 400},
		{ErrorTypeGeneration, 400},
		{ErrorTypeNode, 400},
		{ErrorTypeAuthentication, 401},
		{ErrorTypeAuthorization, 403},
		{ErrorTypeNotFound, 404},
		{ErrorTypeTimeout, 408},
		{ErrorTypeConflict, 409},
		{ErrorTypeRateLimit, 429},
		{ErrorTypeExternal, 502},
		{ErrorTypeInternal, 500},
		{ErrorTypeDatabase, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			err := New(tt.errorType, CodeInternal, "test")
			assert.Equal(t, tt.expectedCode, err.HTTPStatus())
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Run("external errors retryable by default", func(t *testing.T) {
		err := New(ErrorTypeExternal, CodeExternalService, "upstream failed")
		assert.True(t, err.IsRetryable())
	})

	t.Run("validation errors not retryable", func(t *testing.T) {
		err := New(ErrorTypeValidation, CodeInvalidInput, "bad input")
		assert.False(t, err.IsRetryable())
	})

	t.Run("explicit flag wins", func(t *testing.T) {
		err := New(ErrorTypeExternal, CodeExternalService, "upstream failed").SetRetryable(false)
		assert.False(t, err.IsRetryable())
	})
}

func TestErrorList(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		list := NewErrorList()

		assert.False(t, list.HasErrors())
		assert.Equal(t, "no errors", list.Error())
	})

	t.Run("single error", func(t *testing.T) {
		list := NewErrorList()
		list.Add(New(ErrorTypeValidation, CodeInvalidInput, "bad input"))

		assert.True(t, list.HasErrors())
		assert.Equal(t, "invalid_input: bad input", list.Error())
	})

	t.Run("multiple errors", func(t *testing.T) {
		list := NewErrorList()
		list.Add(New(ErrorTypeValidation, CodeInvalidInput, "first"))
		list.Add(New(ErrorTypeNode, CodeUnknownNodeType, "second"))

		assert.Len(t, list.Errors, 2)
		assert.Contains(t, list.Error(), "multiple errors")
	})

	t.Run("nil errors ignored", func(t *testing.T) {
		list := NewErrorList()
		list.Add(nil)

		assert.False(t, list.HasErrors())
	})
}
