package errors

import "github.com/crosswire-ai/mcp-go/pkg/protocol"

// CodeInfo describes a reserved wire error code
type CodeInfo struct {
	Code        protocol.ErrorCode
	Name        string
	Category    Category
	Retryable   bool
	Description string
}

var codeRegistry = map[protocol.ErrorCode]CodeInfo{
	protocol.ParseError: {
		Code:        protocol.ParseError,
		Name:        "ParseError",
		Category:    CategoryProtocol,
		Retryable:   false,
		Description: "Invalid JSON was received by the peer",
	},
	protocol.InvalidRequest: {
		Code:        protocol.InvalidRequest,
		Name:        "InvalidRequest",
		Category:    CategoryProtocol,
		Retryable:   false,
		Description: "The JSON sent is not a valid request envelope",
	},
	protocol.MethodNotFound: {
		Code:        protocol.MethodNotFound,
		Name:        "MethodNotFound",
		Category:    CategoryProtocol,
		Retryable:   false,
		Description: "The method does not exist or is not registered",
	},
	protocol.InvalidParams: {
		Code:        protocol.InvalidParams,
		Name:        "InvalidParams",
		Category:    CategoryValidation,
		Retryable:   false,
		Description: "Invalid method parameters",
	},
	protocol.InternalError: {
		Code:        protocol.InternalError,
		Name:        "InternalError",
		Category:    CategoryInternal,
		Retryable:   true,
		Description: "Internal JSON-RPC error",
	},
	protocol.ApplicationError: {
		Code:        protocol.ApplicationError,
		Name:        "ApplicationError",
		Category:    CategoryApplication,
		Retryable:   false,
		Description: "A handler failed without an explicit protocol code",
	},
	protocol.ServerNotReady: {
		Code:        protocol.ServerNotReady,
		Name:        "ServerNotReady",
		Category:    CategoryProtocol,
		Retryable:   true,
		Description: "Request received before client initialization completed",
	},
	protocol.ResourceNotFound: {
		Code:        protocol.ResourceNotFound,
		Name:        "ResourceNotFound",
		Category:    CategoryNotFound,
		Retryable:   false,
		Description: "No concrete resource or template matched the URI",
	},
	protocol.RequestCancelled: {
		Code:        protocol.RequestCancelled,
		Name:        "RequestCancelled",
		Category:    CategoryApplication,
		Retryable:   true,
		Description: "The request was cancelled before completion",
	},
}

// LookupCode returns metadata for a reserved wire error code
func LookupCode(code protocol.ErrorCode) (CodeInfo, bool) {
	info, ok := codeRegistry[code]
	return info, ok
}

// CodeName returns the symbolic name for a code, or "Unknown"
func CodeName(code protocol.ErrorCode) string {
	if info, ok := codeRegistry[code]; ok {
		return info.Name
	}
	return "Unknown"
}

// CategoryForCode returns the category a reserved code belongs to;
// unreserved codes are application errors by definition
func CategoryForCode(code protocol.ErrorCode) Category {
	if info, ok := codeRegistry[code]; ok {
		return info.Category
	}
	return CategoryApplication
}

// IsRetryableCode reports whether retrying the request may succeed
func IsRetryableCode(code protocol.ErrorCode) bool {
	if info, ok := codeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// IsStandardJSONRPCCode reports whether the code is reserved by the
// JSON-RPC 2.0 specification itself
func IsStandardJSONRPCCode(code protocol.ErrorCode) bool {
	switch code {
	case protocol.ParseError, protocol.InvalidRequest, protocol.MethodNotFound,
		protocol.InvalidParams, protocol.InternalError:
		return true
	default:
		return false
	}
}
