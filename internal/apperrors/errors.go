// Package apperrors defines the error taxonomy shared by every pipeline.
package apperrors

import (
	"errors"
	"strings"
)

// Category decides how an error is surfaced.
type Category int

const (
	// CategoryConfiguration is a missing or invalid credential/endpoint. Fatal for the action.
	CategoryConfiguration Category = iota

	// CategoryIngestion is a single uploaded file that could not be loaded.
	CategoryIngestion

	// CategoryToolExecution is a tool that failed at runtime. Fed back to the agent.
	CategoryToolExecution

	// CategoryAgentParsing is model output that does not match the action grammar.
	CategoryAgentParsing

	// CategoryUnhandled is anything else caught at the top of a pipeline run.
	CategoryUnhandled
)

func (c Category) String() string {
	switch c {
	case CategoryConfiguration:
		return "configuration"
	case CategoryIngestion:
		return "ingestion"
	case CategoryToolExecution:
		return "tool_execution"
	case CategoryAgentParsing:
		return "agent_parsing"
	case CategoryUnhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}

// AppError carries a category, a user facing message and the underlying error.
type AppError struct {
	Category Category
	Message  string
	// Subject is the file, tool or setting the error is about, if any.
	Subject string
	Inner   error
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Category.String())
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Subject != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Subject)
		sb.WriteString(")")
	}
	if e.Inner != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Inner.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.Inner
}

// Configuration reports a missing or invalid external setting.
func Configuration(subject, message string, inner error) *AppError {
	return &AppError{Category: CategoryConfiguration, Subject: subject, Message: message, Inner: inner}
}

// Ingestion reports a file that failed to load.
func Ingestion(filename string, inner error) *AppError {
	return &AppError{Category: CategoryIngestion, Subject: filename, Message: "failed to load file", Inner: inner}
}

// ToolExecution reports a failed tool call.
func ToolExecution(tool string, inner error) *AppError {
	return &AppError{Category: CategoryToolExecution, Subject: tool, Message: "tool call failed", Inner: inner}
}

// AgentParsing reports model output that could not be parsed into an action.
func AgentParsing(message string) *AppError {
	return &AppError{Category: CategoryAgentParsing, Message: message}
}

// Unhandled wraps an unexpected failure of a pipeline run.
func Unhandled(pipeline string, inner error) *AppError {
	return &AppError{Category: CategoryUnhandled, Subject: pipeline, Message: "analysis failed", Inner: inner}
}

// IsCategory reports whether any AppError in err's chain has the given category.
func IsCategory(err error, c Category) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == c
	}
	return false
}

// UserMessage renders err for display in the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "Unexpected error: " + err.Error()
	}
	switch appErr.Category {
	case CategoryConfiguration:
		return "Configuration error: " + appErr.Message + hint(appErr)
	case CategoryIngestion:
		return "Could not process " + appErr.Subject + hint(appErr)
	default:
		return "Error: " + appErr.Message + hint(appErr)
	}
}

func hint(e *AppError) string {
	if e.Inner == nil {
		return ""
	}
	return ": " + e.Inner.Error()
}
