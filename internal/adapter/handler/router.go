package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/assesshub/proctor-engine/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg               *config.Config
	proctoringHandler *Proctoring
	authMiddleware    echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, proctoringHandler *Proctoring, authMiddleware echo.MiddlewareFunc) *Router {
	return &Router{
		cfg:               cfg,
		proctoringHandler: proctoringHandler,
		authMiddleware:    authMiddleware,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupProctoringRoutes(v1)
}

// setupProctoringRoutes configures behavioral analysis routes
func (rt *Router) setupProctoringRoutes(g *echo.Group) {
	proctoringGroup := g.Group("/proctoring")
	if rt.authMiddleware != nil {
		proctoringGroup.Use(rt.authMiddleware)
	}

	proctoringGroup.POST("/:session_id/analyze-video", rt.proctoringHandler.AnalyzeVideo)
	proctoringGroup.GET("/:session_id/behavioral-analysis", rt.proctoringHandler.GetAnalysis)
	proctoringGroup.GET("/:session_id/behavioral-highlights", rt.proctoringHandler.GetHighlights)
	proctoringGroup.GET("/:session_id/proctoring-report", rt.proctoringHandler.GetReport)
	proctoringGroup.POST("/compare-sessions", rt.proctoringHandler.CompareSessions)
	proctoringGroup.GET("/analysis-status/:video_id", rt.proctoringHandler.AnalysisStatus)
	proctoringGroup.DELETE("/:session_id/behavioral-analysis", rt.proctoringHandler.DeleteAnalysis)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	environment := ""
	if rt.cfg != nil {
		environment = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().Format(time.RFC3339),
		"environment": environment,
	})
}
