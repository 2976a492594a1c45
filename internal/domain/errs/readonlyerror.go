package errs

import "fmt"

type ReadOnlyError struct {
	message string
}

func (v *ReadOnlyError) Error() string {
	return v.message
}

func ReadOnlyErrorf(format string, args ...any) *ReadOnlyError {
	return &ReadOnlyError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &ReadOnlyError{}
