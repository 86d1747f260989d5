package registry

import "fmt"

const (
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
	CodeInternal   = "internal"
)

// Error is the taxonomy surfaced to callers: validation errors reject the
// request and are never retried; internal errors cover transaction failures
// after a full rollback. Lookup failures during counter seeding never become
// an Error at all, they are swallowed at the source boundary.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	default:
		return 500
	}
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code)}
}

func NewValidationError(format string, args ...any) error {
	return newError(CodeValidation, fmt.Sprintf(format, args...))
}

func NewNotFoundError(format string, args ...any) error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...))
}

func NewInternalError(format string, args ...any) error {
	return newError(CodeInternal, fmt.Sprintf(format, args...))
}
