package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Judge harness errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Timeout             ErrorCode = 10008
	Canceled            ErrorCode = 10009
	Conflict            ErrorCode = 10010

	// File system errors (10100-10199)
	FileSystemError ErrorCode = 10100
	FileNotFound    ErrorCode = 10101

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Judge Harness Errors (13000-13999) ==========

	// Source resolution (13000-13099)
	LanguageNotSupported ErrorCode = 13003
	SourceNotFound       ErrorCode = 13006
	RunInProgress        ErrorCode = 13007

	// Judge (13100-13199)
	JudgeSystemError    ErrorCode = 13101
	CompilationError    ErrorCode = 13102
	RuntimeError        ErrorCode = 13103
	TimeLimitExceeded   ErrorCode = 13104
	WrongAnswer         ErrorCode = 13107
	CompilerUnavailable ErrorCode = 13108
	NoTestCases         ErrorCode = 13109
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Timeout:             "Request timeout",
	Canceled:            "Operation canceled",
	Conflict:            "Resource is busy",

	// File system
	FileSystemError: "File system operation failed",
	FileNotFound:    "File not found",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Source resolution
	LanguageNotSupported: "Programming language not supported",
	SourceNotFound:       "No solution file found",
	RunInProgress:        "A run is already in progress for this directory",

	// Judge
	JudgeSystemError:    "Judge system error",
	CompilationError:    "Compilation error",
	RuntimeError:        "Runtime error",
	TimeLimitExceeded:   "Time limit exceeded",
	WrongAnswer:         "Wrong answer",
	CompilerUnavailable: "Compiler or interpreter is not available",
	NoTestCases:         "No test cases found",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == FileNotFound, c == SourceNotFound:
		return 404
	case c == Conflict, c == RunInProgress:
		return 409
	case c == LanguageNotSupported:
		return 422
	case c == Timeout:
		return 504
	case c == Canceled:
		return 499
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
