package link

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVariable is returned when a log variable is not in the device TOC
	ErrUnknownVariable = errors.New("variable not found in TOC")

	// ErrInvalidLogConfig is returned for malformed log configurations
	ErrInvalidLogConfig = errors.New("bad log configuration")

	// ErrNotConnected is returned by operations that need an open link
	ErrNotConnected = errors.New("link is not connected")
)

// UnknownVariableError names the variable that could not be resolved
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, ErrUnknownVariable.Error())
}

func (e *UnknownVariableError) Unwrap() error {
	return ErrUnknownVariable
}
