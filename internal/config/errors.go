package config

import (
	"errors"
	"strings"
)

// ErrConfigurationMissing is matched by the error Validate returns when
// required settings are absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError lists every required field that was not provided
type MissingError struct {
	Fields []string
}

func (e *MissingError) Error() string {
	return ErrConfigurationMissing.Error() + ": " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrConfigurationMissing) hold
func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}
