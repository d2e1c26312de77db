package tools

import (
	"errors"
	"fmt"
	"time"
)

const (
	CodeInvalidParams  = -32602
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

type ToolError struct {
	Code    int
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("Tool not found: %s", name),
	}
}

func NewToolExecutionError(name string, err error) *ToolError {
	return &ToolError{
		Code:    CodeInternalError,
		Message: fmt.Sprintf("Error executing tool %s: %v", name, err),
		Err:     err,
	}
}

func NewToolTimeoutError(name string, timeout time.Duration) *ToolError {
	return &ToolError{
		Code:    CodeInternalError,
		Message: fmt.Sprintf("Tool %s timed out after %s", name, timeout),
	}
}

func NewInvalidParamsError(msg string) *ToolError {
	return &ToolError{
		Code:    CodeInvalidParams,
		Message: msg,
	}
}

// AsToolError converts any error into a *ToolError, keeping the original
// message for errors that are not already tool errors.
func AsToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Code: CodeInternalError, Message: err.Error(), Err: err}
}
