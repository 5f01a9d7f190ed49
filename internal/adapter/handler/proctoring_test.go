package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	usecaseerrors "github.com/assesshub/proctor-engine/internal/usecase/errors"
	"github.com/assesshub/proctor-engine/internal/usecase/proctoring"
	pkgvalidator "github.com/assesshub/proctor-engine/pkg/validator"
)

// stubService is a canned proctoring.Service for handler tests.
type stubService struct {
	analysis   *entities.BehavioralAnalysis
	report     *entities.ProctoringReport
	comparison *entities.SessionComparison
	highlights []entities.SuspiciousSegment
	err        error
	gotForce   bool
}

func (s *stubService) StartAnalysis(_ context.Context, sessionID, userID uuid.UUID, videoID string, force bool) (*entities.BehavioralAnalysis, error) {
	s.gotForce = force
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis, nil
}

func (s *stubService) GetAnalysis(_ context.Context, _ uuid.UUID) (*entities.BehavioralAnalysis, error) {
	return s.analysis, s.err
}

func (s *stubService) GetHighlights(_ context.Context, _ uuid.UUID, _ proctoring.HighlightFilter) ([]entities.SuspiciousSegment, error) {
	return s.highlights, s.err
}

func (s *stubService) GetReport(_ context.Context, _ uuid.UUID) (*entities.ProctoringReport, error) {
	return s.report, s.err
}

func (s *stubService) CompareSessions(_ context.Context, _ uuid.UUID, _ []uuid.UUID) (*entities.SessionComparison, error) {
	return s.comparison, s.err
}

func (s *stubService) StatusByVideo(_ context.Context, _ string) (*entities.BehavioralAnalysis, error) {
	return s.analysis, s.err
}

func (s *stubService) DeleteAnalysis(_ context.Context, _, _ uuid.UUID) error {
	return s.err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = pkgvalidator.New()
	return e
}

func TestAnalyzeVideo_Accepted(t *testing.T) {
	sessionID, userID := uuid.New(), uuid.New()
	pending := entities.NewBehavioralAnalysis(sessionID, userID, "video-1", 1)
	h := NewProctoring(&stubService{analysis: pending}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/"+sessionID.String()+"/analyze-video",
		strings.NewReader(`{"video_id":"video-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())
	c.Set("user_id", userID)

	require.NoError(t, h.AnalyzeVideo(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "video-1", data["video_id"])
}

func TestAnalyzeVideo_ForceReanalysisBinds(t *testing.T) {
	sessionID, userID := uuid.New(), uuid.New()
	svc := &stubService{analysis: entities.NewBehavioralAnalysis(sessionID, userID, "video-1", 2)}
	h := NewProctoring(svc, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/"+sessionID.String()+"/analyze-video",
		strings.NewReader(`{"video_id":"video-1","force_reanalysis":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())
	c.Set("user_id", userID)

	require.NoError(t, h.AnalyzeVideo(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, svc.gotForce)
}

func TestAnalyzeVideo_MissingVideoID(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/"+sessionID.String()+"/analyze-video",
		strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())
	c.Set("user_id", uuid.New())

	require.NoError(t, h.AnalyzeVideo(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeVideo_Unauthenticated(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/"+sessionID.String()+"/analyze-video",
		strings.NewReader(`{"video_id":"video-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())

	require.NoError(t, h.AnalyzeVideo(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyzeVideo_ConcurrentConflict(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{err: usecaseerrors.ErrConcurrentAnalysis}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/"+sessionID.String()+"/analyze-video",
		strings.NewReader(`{"video_id":"video-1","force_reanalysis":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())
	c.Set("user_id", uuid.New())

	require.NoError(t, h.AnalyzeVideo(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{err: usecaseerrors.ErrAnalysisNotFound}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/proctoring/"+sessionID.String()+"/behavioral-analysis", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())

	require.NoError(t, h.GetAnalysis(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalysis_InvalidSessionID(t *testing.T) {
	h := NewProctoring(&stubService{}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/proctoring/not-a-uuid/behavioral-analysis", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("not-a-uuid")

	require.NoError(t, h.GetAnalysis(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHighlights_FiltersBoundToQuery(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{highlights: []entities.SuspiciousSegment{
		{BehaviorType: entities.BehaviorPhoneUsage, StartS: 125, EndS: 140, Confidence: 0.9, Severity: entities.SeverityHigh},
	}}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/proctoring/"+sessionID.String()+"/behavioral-highlights?severity=high&limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())

	require.NoError(t, h.GetHighlights(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
	highlights := data["highlights"].([]interface{})
	first := highlights[0].(map[string]interface{})
	assert.Equal(t, "02:05 - 02:20", first["window"])
}

func TestGetHighlights_RejectsInvalidSeverity(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/proctoring/"+sessionID.String()+"/behavioral-highlights?severity=catastrophic", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())

	require.NoError(t, h.GetHighlights(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport_PendingAnalysisUnavailable(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{err: usecaseerrors.ErrAnalysisPending}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/proctoring/"+sessionID.String()+"/proctoring-report", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())

	require.NoError(t, h.GetReport(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCompareSessions_Success(t *testing.T) {
	userID := uuid.New()
	h := NewProctoring(&stubService{comparison: &entities.SessionComparison{
		UserID:             userID,
		CurrentScore:       0.9,
		Trend:              entities.TrendStable,
		RecurringBehaviors: []string{},
		ConsistencyRating:  entities.ConsistencyConsistent,
		SessionsCompared:   3,
	}}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/compare-sessions",
		strings.NewReader(`{"session_ids":["`+uuid.NewString()+`","`+uuid.NewString()+`"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)

	require.NoError(t, h.CompareSessions(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "stable", data["trend"])
	assert.Equal(t, "consistent", data["consistency_rating"])
}

func TestCompareSessions_UserIDMustMatchCaller(t *testing.T) {
	userID := uuid.New()
	h := NewProctoring(&stubService{comparison: &entities.SessionComparison{
		UserID:           userID,
		Trend:            entities.TrendStable,
		SessionsCompared: 1,
	}}, nil)

	post := func(body string) *httptest.ResponseRecorder {
		e := newEcho()
		req := httptest.NewRequest(http.MethodPost, "/v1/proctoring/compare-sessions",
			strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("user_id", userID)
		require.NoError(t, h.CompareSessions(c))
		return rec
	}

	rec := post(`{"user_id":"` + uuid.NewString() + `"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(`{"user_id":"` + userID.String() + `"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAnalysis_Forbidden(t *testing.T) {
	sessionID := uuid.New()
	h := NewProctoring(&stubService{err: usecaseerrors.ErrNotOwner}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodDelete, "/v1/proctoring/"+sessionID.String()+"/behavioral-analysis", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID.String())
	c.Set("user_id", uuid.New())

	require.NoError(t, h.DeleteAnalysis(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalysisStatus_Success(t *testing.T) {
	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-7", 3)
	analysis.MarkAsDegraded("search service unavailable")
	h := NewProctoring(&stubService{analysis: analysis}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/proctoring/analysis-status/video-7", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("video_id")
	c.SetParamValues("video-7")

	require.NoError(t, h.AnalysisStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "failed_degraded", data["status"])
	assert.Equal(t, float64(3), data["version"])
	assert.NotEmpty(t, data["last_error"])
}
