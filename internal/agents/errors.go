package agents

import "fmt"

// APICallError represents a failed call to the language model
type APICallError struct {
	Agent   string
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s agent: %s: %v", e.Agent, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s agent: %s", e.Agent, e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents model output that could not be used
type ParseError struct {
	Agent   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s agent: %s: %v", e.Agent, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s agent: %s", e.Agent, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
