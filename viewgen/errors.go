package viewgen

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError.
var ErrConfiguration = errors.New("viewgen: configuration error")

// ConfigurationError reports a missing or unusable generation parameter.
type ConfigurationError struct {
	Param  string
	Value  string
	Reason string
	// Err is the underlying failure, such as a grammar error in a schema fragment.
	Err error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("viewgen: parameter %s: %s", e.Param, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
