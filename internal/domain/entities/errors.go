package entities

import "errors"

// Domain errors
var (
	// Analysis errors
	ErrAnalysisNotFound     = errors.New("behavioral analysis not found")
	ErrConcurrentAnalysis   = errors.New("analysis already in progress for this session and video")
	ErrAnalysisNotTerminal  = errors.New("analysis has not reached a terminal state")
	ErrAnalysisAlreadyFinal = errors.New("analysis already reached a terminal state")
	ErrNotAnalysisOwner     = errors.New("user does not own this analysis")

	// Catalog errors
	ErrCatalogEmpty   = errors.New("behavior catalog is empty")
	ErrCatalogInvalid = errors.New("behavior catalog failed validation")

	// Orchestration errors
	ErrAllSearchesFailed    = errors.New("all behavior searches failed or timed out")
	ErrVideoDurationUnknown = errors.New("video duration unavailable")

	// Comparison errors
	ErrInsufficientSessions = errors.New("not enough prior sessions to compare")
)
