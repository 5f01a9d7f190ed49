package errors

// ErrorCode identifies an application error category.
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_NOT_FOUND         ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS    ErrorCode = 1003
	ErrorCode_PERMISSION_DENIED ErrorCode = 1004
	ErrorCode_UNAUTHENTICATED   ErrorCode = 1005
	ErrorCode_CONFLICT          ErrorCode = 1006
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1007

	// Analysis
	ErrorCode_ANALYSIS_NOT_FOUND    ErrorCode = 2000
	ErrorCode_ANALYSIS_IN_PROGRESS  ErrorCode = 2001
	ErrorCode_ANALYSIS_START_FAILED ErrorCode = 2002
	ErrorCode_ANALYSIS_DEGRADED     ErrorCode = 2003
	ErrorCode_REPORT_UNAVAILABLE    ErrorCode = 2004
	ErrorCode_COMPARISON_FAILED     ErrorCode = 2005

	// External search service
	ErrorCode_SEARCH_UNAVAILABLE ErrorCode = 3000
	ErrorCode_SEARCH_TIMEOUT     ErrorCode = 3001

	// Persistence
	ErrorCode_DB_QUERY_FAILED ErrorCode = 4000
	ErrorCode_DB_WRITE_FAILED ErrorCode = 4001

	// Cache
	ErrorCode_CACHE_FAILED ErrorCode = 5000
)

// String returns a stable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCode_HTTP_OK:
		return "OK"
	case ErrorCode_INTERNAL:
		return "INTERNAL"
	case ErrorCode_INVALID_ARGUMENT:
		return "INVALID_ARGUMENT"
	case ErrorCode_NOT_FOUND:
		return "NOT_FOUND"
	case ErrorCode_ALREADY_EXISTS:
		return "ALREADY_EXISTS"
	case ErrorCode_PERMISSION_DENIED:
		return "PERMISSION_DENIED"
	case ErrorCode_UNAUTHENTICATED:
		return "UNAUTHENTICATED"
	case ErrorCode_CONFLICT:
		return "CONFLICT"
	case ErrorCode_INVALID_PAYLOAD:
		return "INVALID_PAYLOAD"
	case ErrorCode_ANALYSIS_NOT_FOUND:
		return "ANALYSIS_NOT_FOUND"
	case ErrorCode_ANALYSIS_IN_PROGRESS:
		return "ANALYSIS_IN_PROGRESS"
	case ErrorCode_ANALYSIS_START_FAILED:
		return "ANALYSIS_START_FAILED"
	case ErrorCode_ANALYSIS_DEGRADED:
		return "ANALYSIS_DEGRADED"
	case ErrorCode_REPORT_UNAVAILABLE:
		return "REPORT_UNAVAILABLE"
	case ErrorCode_COMPARISON_FAILED:
		return "COMPARISON_FAILED"
	case ErrorCode_SEARCH_UNAVAILABLE:
		return "SEARCH_UNAVAILABLE"
	case ErrorCode_SEARCH_TIMEOUT:
		return "SEARCH_TIMEOUT"
	case ErrorCode_DB_QUERY_FAILED:
		return "DB_QUERY_FAILED"
	case ErrorCode_DB_WRITE_FAILED:
		return "DB_WRITE_FAILED"
	case ErrorCode_CACHE_FAILED:
		return "CACHE_FAILED"
	default:
		return "UNKNOWN"
	}
}
