package apperr

import (
	"fmt"
	"strings"
)

// BusinessError is one violated rule.
type BusinessError struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	ValueInFailure *string   `json:"valueInFailure"`
}

// ValidationError aggregates every rule an input violated.  It is produced
// once per validation run and travels unchanged up to the HTTP layer.
type ValidationError struct {
	ObjectType string
	Errors     []BusinessError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d business error(s) detected", len(e.Errors))
	if e.ObjectType != "" {
		fmt.Fprintf(&b, " [Type: %s]", e.ObjectType)
	}
	return b.String()
}

// NewValidationError builds a ValidationError holding a single failure.
func NewValidationError(code ErrorCode, message, objectType string, value *string) *ValidationError {
	return &ValidationError{
		ObjectType: objectType,
		Errors:     []BusinessError{{Code: code, Message: message, ValueInFailure: value}},
	}
}

// NotFoundError reports that the resource identified by ID does not exist.
type NotFoundError struct {
	Resource string
	ID       any
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Object of type %s with id [%v] does not exist", e.Resource, e.ID)
}

// NotFound returns a NotFoundError for resource/id.
func NotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}
