package utility

import "fmt"

type appError struct {
	message string
}

func (e *appError) Error() string {
	return e.message
}

// Err wraps a plain message into an error value.
func Err(m string) error {
	return &appError{message: m}
}

// Errf builds an error from a format string.
func Errf(format string, args ...interface{}) error {
	return &appError{message: fmt.Sprintf(format, args...)}
}
