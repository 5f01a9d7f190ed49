package errors

import "errors"

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden access")
	ErrNotFound      = errors.New("resource not found")
	ErrConflict      = errors.New("resource conflict")
	ErrInternalError = errors.New("internal server error")
)

// Analysis errors
var (
	ErrAnalysisNotFound   = errors.New("behavioral analysis not found")
	ErrAnalysisPending    = errors.New("behavioral analysis still pending")
	ErrConcurrentAnalysis = errors.New("analysis already in progress")
	ErrNotOwner           = errors.New("user does not own this session's analysis")
	ErrNoPriorSessions    = errors.New("no prior sessions available for comparison")
)
