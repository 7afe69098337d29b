// Package errors carries the categorized error type shared across the
// agent. Categories feed the error metrics and decide whether an
// operation is worth retrying.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies where in the pipeline an error originated.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryData     Category = "data"
	CategoryOrder    Category = "order"
	CategoryPosition Category = "position"
	CategoryNotify   Category = "notify"
	CategoryInternal Category = "internal"
)

// AgentError is a categorized error with the component and operation
// that produced it.
type AgentError struct {
	Category   Category
	Component  string
	Op         string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AgentError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Op, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Op, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Underlying }

// New builds a non-retryable categorized error.
func New(cat Category, component, op, message string) *AgentError {
	return &AgentError{Category: cat, Component: component, Op: op, Message: message}
}

// Wrap builds a categorized error around an underlying cause.
func Wrap(cat Category, component, op, message string, err error) *AgentError {
	return &AgentError{Category: cat, Component: component, Op: op, Message: message, Underlying: err}
}

// AsRetryable marks the error as safe to retry and returns it.
func (e *AgentError) AsRetryable() *AgentError {
	e.Retryable = true
	return e
}

// CategoryOf extracts the category from an error chain, defaulting to
// internal for uncategorized errors.
func CategoryOf(err error) Category {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return CategoryInternal
}

// IsRetryable reports whether the error chain contains a retryable
// categorized error.
func IsRetryable(err error) bool {
	var ae *AgentError
	return errors.As(err, &ae) && ae.Retryable
}
