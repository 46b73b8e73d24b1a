package scheduling

// ValidationError reports malformed or business-invalid input. It is
// surfaced to the caller verbatim and never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// PermissionError reports an authenticated caller lacking the role or
// ownership an operation requires.
type PermissionError struct {
	msg string
}

func (e *PermissionError) Error() string {
	return e.msg
}

func permissionError(msg string) error {
	return &PermissionError{msg: msg}
}
