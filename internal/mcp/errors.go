// Package mcp implements the Model Context Protocol (MCP) server for Polydocs.
package mcp

import (
	"context"
	"errors"
	"fmt"

	docerrors "github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
)

// Custom MCP error codes for Polydocs.
const (
	// ErrCodePackageNotFound indicates the requested package/crate could not be resolved.
	ErrCodePackageNotFound = -32001

	// ErrCodeItemNotFound indicates the requested documentation item does not exist.
	ErrCodeItemNotFound = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeUpstreamUnavailable indicates a registry or docs host could not be reached.
	ErrCodeUpstreamUnavailable = -32004

	// ErrCodeSourceTooLarge indicates a source file exceeds the size limit for extraction.
	ErrCodeSourceTooLarge = -32005

	// ErrCodeRateLimited indicates the client exceeded the fetcher's rate budget.
	ErrCodeRateLimited = -32006

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrPackageNotFound indicates the requested package could not be resolved.
	ErrPackageNotFound = errors.New("package not found")

	// ErrItemNotFound indicates the requested documentation item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrSourceTooLarge indicates a source file is too large to process.
	ErrSourceTooLarge = errors.New("source file too large")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
// It maps known error types to appropriate MCP error codes and messages.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	// Check for DocError first
	var docErr *docerrors.DocError
	if errors.As(err, &docErr) {
		return mapDocError(docErr)
	}

	switch {
	case errors.Is(err, ErrPackageNotFound):
		return &MCPError{
			Code:    ErrCodePackageNotFound,
			Message: "Package not found. Check the ecosystem and name, and that it is installed or published.",
		}
	case errors.Is(err, ErrItemNotFound):
		return &MCPError{
			Code:    ErrCodeItemNotFound,
			Message: "Documentation item not found at the given path.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	case errors.Is(err, ErrSourceTooLarge):
		return &MCPError{
			Code:    ErrCodeSourceTooLarge,
			Message: "Source file is too large to process.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Resource not found.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

// mapDocError converts a DocError to an MCPError.
func mapDocError(de *docerrors.DocError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s %s", de.Message, de.Suggestion)
	}

	switch de.Category {
	case docerrors.CategoryConfig:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	case docerrors.CategoryIO:
		switch de.Code {
		case docerrors.ErrCodeFileNotFound:
			return &MCPError{Code: ErrCodePackageNotFound, Message: message}
		case docerrors.ErrCodeFileTooLarge:
			return &MCPError{Code: ErrCodeSourceTooLarge, Message: message}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: message}
		}
	case docerrors.CategoryNetwork:
		if de.Code == docerrors.ErrCodeRateLimited {
			return &MCPError{Code: ErrCodeRateLimited, Message: message}
		}
		return &MCPError{Code: ErrCodeUpstreamUnavailable, Message: message}
	case docerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case docerrors.CategoryDocEngine:
		switch de.Code {
		case docerrors.ErrCodePackageNotFound, docerrors.ErrCodeVersionNotFound:
			return &MCPError{Code: ErrCodePackageNotFound, Message: message}
		case docerrors.ErrCodeItemNotFound:
			return &MCPError{Code: ErrCodeItemNotFound, Message: message}
		case docerrors.ErrCodeSourceUnavailable:
			return &MCPError{Code: ErrCodeSourceTooLarge, Message: message}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: message}
		}
	default: // CategoryInternal and unknown
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
