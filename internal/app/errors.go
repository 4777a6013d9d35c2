package app

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning reports a second Run on a running app.
var ErrAlreadyRunning = errors.New("already running")

// InitError reports which component failed to initialize.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
