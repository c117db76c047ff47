// Package httpserver exposes the expense manager HTTP API.
package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"expense-manager/internal/errs"
	"expense-manager/internal/service"
	"expense-manager/internal/token"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	ledger  service.LedgerService
	reports service.ReportService
	tokens  *token.Service
	log     *zap.Logger
}

// New constructs a server with injected services.
func New(auth service.AuthService, ledger service.LedgerService, reports service.ReportService, tokens *token.Service, log *zap.Logger) *Server {
	return &Server{auth: auth, ledger: ledger, reports: reports, tokens: tokens, log: log}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log))

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.POST("/refresh", s.handleRefresh)

	authed := api.Group("")
	authed.Use(RequireAuth(s.tokens))
	authed.POST("/auth/logout", s.handleLogout)
	authed.POST("/auth/password", s.handleChangePassword)
	authed.DELETE("/auth/account", s.handleDeactivate)
	authed.POST("/expenses", s.handleRecordExpense)
	authed.DELETE("/expenses/:id", s.handleVoidExpense)
	authed.GET("/reports", s.handleReportRange)
	authed.GET("/reports/:year/:month", s.handleReportMonth)

	return r
}

// writeError maps service sentinels to HTTP statuses. Unknown errors are
// reported as 500 without leaking detail.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, errs.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	case errors.Is(err, errs.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, errs.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
