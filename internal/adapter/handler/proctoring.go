package handler

import (
	stdErrors "errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/assesshub/proctor-engine/errors"
	dto "github.com/assesshub/proctor-engine/internal/adapter/dto/proctoring"
	"github.com/assesshub/proctor-engine/internal/domain/entities"
	usecaseerrors "github.com/assesshub/proctor-engine/internal/usecase/errors"
	"github.com/assesshub/proctor-engine/internal/usecase/proctoring"
)

// Proctoring handles the behavioral analysis API endpoints
type Proctoring struct {
	svc    proctoring.Service
	logger *zap.Logger
}

// NewProctoring creates a new proctoring handler
func NewProctoring(svc proctoring.Service, logger *zap.Logger) *Proctoring {
	return &Proctoring{svc: svc, logger: logger}
}

// AnalyzeVideo starts (or attaches to) a behavioral analysis for a session's video
func (h *Proctoring) AnalyzeVideo(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("session_id must be a valid UUID"))
	}
	userID, ok := currentUserID(c)
	if !ok {
		return HandleError(h.logger, c, errors.ErrUnauthenticated())
	}

	var req dto.StartAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	analysis, err := h.svc.StartAnalysis(c.Request().Context(), sessionID, userID, req.VideoID, req.ForceReanalysis)
	if err != nil {
		switch {
		case stdErrors.Is(err, usecaseerrors.ErrConcurrentAnalysis):
			return HandleError(h.logger, c, errors.ErrAnalysisInProgress(req.VideoID))
		case stdErrors.Is(err, usecaseerrors.ErrInvalidInput):
			return HandleError(h.logger, c, errors.ErrInvalidPayload())
		default:
			return HandleError(h.logger, c, errors.ErrAnalysisStartFailed(err))
		}
	}

	return HandleAccepted(h.logger, c, dto.NewStatusResponse(analysis))
}

// GetAnalysis returns the latest analysis version for a session
func (h *Proctoring) GetAnalysis(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("session_id must be a valid UUID"))
	}

	analysis, err := h.svc.GetAnalysis(c.Request().Context(), sessionID)
	if err != nil {
		if stdErrors.Is(err, usecaseerrors.ErrAnalysisNotFound) {
			return HandleError(h.logger, c, errors.ErrAnalysisNotFound(sessionID.String()))
		}
		return HandleError(h.logger, c, errors.ErrDBQueryFailed(err))
	}

	return HandleSuccess(h.logger, c, dto.NewAnalysisResponse(analysis))
}

// GetHighlights returns the filtered suspicious segments for a session
func (h *Proctoring) GetHighlights(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("session_id must be a valid UUID"))
	}

	var query dto.HighlightsQuery
	if err := c.Bind(&query); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&query); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	highlights, err := h.svc.GetHighlights(c.Request().Context(), sessionID, proctoring.HighlightFilter{
		Severity:     entities.Severity(query.Severity),
		BehaviorType: query.BehaviorType,
		Limit:        query.Limit,
	})
	if err != nil {
		switch {
		case stdErrors.Is(err, usecaseerrors.ErrAnalysisNotFound):
			return HandleError(h.logger, c, errors.ErrAnalysisNotFound(sessionID.String()))
		case stdErrors.Is(err, usecaseerrors.ErrAnalysisPending):
			return HandleError(h.logger, c, errors.ErrAnalysisUnavailable(sessionID.String()))
		default:
			return HandleError(h.logger, c, errors.ErrDBQueryFailed(err))
		}
	}

	return HandleSuccess(h.logger, c, dto.HighlightsResponse{
		SessionID:  sessionID.String(),
		Highlights: dto.NewSegmentResponses(highlights),
		Total:      len(highlights),
	})
}

// GetReport returns the reviewer-facing proctoring report for a session
func (h *Proctoring) GetReport(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("session_id must be a valid UUID"))
	}

	report, err := h.svc.GetReport(c.Request().Context(), sessionID)
	if err != nil {
		switch {
		case stdErrors.Is(err, usecaseerrors.ErrAnalysisNotFound):
			return HandleError(h.logger, c, errors.ErrAnalysisNotFound(sessionID.String()))
		case stdErrors.Is(err, usecaseerrors.ErrAnalysisPending):
			return HandleError(h.logger, c, errors.ErrAnalysisUnavailable(sessionID.String()))
		default:
			return HandleError(h.logger, c, errors.ErrReportUnavailable(sessionID.String(), err))
		}
	}

	return HandleSuccess(h.logger, c, report)
}

// CompareSessions returns the cross-session trend for the authenticated user
func (h *Proctoring) CompareSessions(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return HandleError(h.logger, c, errors.ErrUnauthenticated())
	}

	var req dto.CompareSessionsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}
	if req.UserID != "" && req.UserID != userID.String() {
		return HandleError(h.logger, c, errors.ErrPermissionDenied("compare another user's sessions"))
	}

	sessionIDs := make([]uuid.UUID, 0, len(req.SessionIDs))
	for _, raw := range req.SessionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("session_ids must be valid UUIDs"))
		}
		sessionIDs = append(sessionIDs, id)
	}

	comparison, err := h.svc.CompareSessions(c.Request().Context(), userID, sessionIDs)
	if err != nil {
		if stdErrors.Is(err, usecaseerrors.ErrAnalysisNotFound) {
			return HandleError(h.logger, c, errors.ErrAnalysisNotFound(userID.String()))
		}
		return HandleError(h.logger, c, errors.ErrComparisonFailed(err))
	}

	return HandleSuccess(h.logger, c, dto.NewComparisonResponse(comparison))
}

// AnalysisStatus returns the lightweight polling view for a video's analysis
func (h *Proctoring) AnalysisStatus(c echo.Context) error {
	videoID := c.Param("video_id")
	if videoID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("video_id is required"))
	}

	analysis, err := h.svc.StatusByVideo(c.Request().Context(), videoID)
	if err != nil {
		if stdErrors.Is(err, usecaseerrors.ErrAnalysisNotFound) {
			return HandleError(h.logger, c, errors.ErrNotFound("analysis for video "+videoID))
		}
		return HandleError(h.logger, c, errors.ErrDBQueryFailed(err))
	}

	return HandleSuccess(h.logger, c, dto.NewStatusResponse(analysis))
}

// DeleteAnalysis purges all analysis versions of a session owned by the caller
func (h *Proctoring) DeleteAnalysis(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("session_id must be a valid UUID"))
	}
	userID, ok := currentUserID(c)
	if !ok {
		return HandleError(h.logger, c, errors.ErrUnauthenticated())
	}

	if err := h.svc.DeleteAnalysis(c.Request().Context(), sessionID, userID); err != nil {
		switch {
		case stdErrors.Is(err, usecaseerrors.ErrAnalysisNotFound):
			return HandleError(h.logger, c, errors.ErrAnalysisNotFound(sessionID.String()))
		case stdErrors.Is(err, usecaseerrors.ErrNotOwner):
			return HandleError(h.logger, c, errors.ErrPermissionDenied("delete this session's analysis"))
		default:
			return HandleError(h.logger, c, errors.ErrDBWriteFailed(err))
		}
	}

	return HandleSuccess(h.logger, c, dto.DeleteResponse{
		SessionID: sessionID.String(),
		Message:   "analysis deleted",
	})
}

// currentUserID reads the authenticated user ID set by the auth middleware
func currentUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get("user_id").(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
