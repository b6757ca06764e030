// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bufalari/clientbook/spatial"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	suggestionAlreadyExists = "Please use a different email or SIN number."
	messageGeocoding        = "An error occurred while retrieving geographic coordinates."
	defaultNearbyRings      = 1
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Status     int       `json:"status"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Path       string    `json:"path"`
	Suggestion string    `json:"suggestion,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
}

// Server exposes a Manager over HTTP.
type Server struct {
	manager *Manager
	ping    func(ctx context.Context) error
	logger  *zap.Logger
	service string
}

// NewServer creates a server. ping backs the health endpoint and may be nil.
func NewServer(manager *Manager, ping func(ctx context.Context) error, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		manager: manager,
		ping:    ping,
		logger:  logger,
		service: "clientbook",
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.service))
	r.Use(s.requestLogger())

	r.GET("/healthz", s.health)

	g := r.Group("/clients")
	g.GET("", s.listClients)
	g.POST("", s.createClient)
	g.GET("/search", s.searchByName)
	g.GET("/search-by-email", s.searchByEmail)
	g.GET("/search-by-sin", s.searchBySin)
	g.GET("/nearby", s.nearby)
	g.GET("/:id", s.getClient)
	g.PUT("/:id", s.updateClient)
	g.PATCH("/:id", s.deleteClient)
	g.PATCH("/activate/:id", s.activateClient)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))

	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		s.logger.Info("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// abortWithError writes err as an ErrorResponse.
func (s *Server) abortWithError(ctx *gin.Context, err error) {
	resp := ErrorResponse{
		Timestamp: time.Now().UTC(),
		Path:      ctx.Request.URL.Path,
		TraceID:   TraceIDOf(err),
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: "An unexpected error occurred"}
	}

	resp.Message = e.Message

	switch e.Kind {
	case KindInvalidData:
		resp.Status = http.StatusBadRequest
	case KindAlreadyExists:
		resp.Status = http.StatusBadRequest
		resp.Suggestion = suggestionAlreadyExists
	case KindNotFound:
		resp.Status = http.StatusNotFound
	case KindGeocodingFailure:
		resp.Status = http.StatusInternalServerError
		resp.Message = messageGeocoding
	default:
		resp.Status = http.StatusInternalServerError
		resp.Message = "An unexpected error occurred"
	}

	resp.Error = http.StatusText(resp.Status)

	ctx.AbortWithStatusJSON(resp.Status, resp)
}

func (s *Server) invalid(ctx *gin.Context, msg string) {
	s.abortWithError(ctx, &Error{Kind: KindInvalidData, Message: msg})
}

func (s *Server) pathID(ctx *gin.Context) (int64, bool) {
	raw := ctx.Param("id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.invalid(ctx, "Invalid client ID: "+raw)

		return 0, false
	}

	return id, true
}

func (s *Server) bindInput(ctx *gin.Context) (ClientInput, bool) {
	var in ClientInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		s.logger.Debug("malformed request body", zap.Error(err))
		s.invalid(ctx, "Malformed JSON request body")

		return in, false
	}

	return in, true
}

func (s *Server) health(ctx *gin.Context) {
	if s.ping != nil {
		if err := s.ping(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})

			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listClients(ctx *gin.Context) {
	list, err := s.manager.ListActive(ctx.Request.Context())
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, list)
}

func (s *Server) getClient(ctx *gin.Context) {
	id, ok := s.pathID(ctx)
	if !ok {
		return
	}

	c, err := s.manager.GetByID(ctx.Request.Context(), id)
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (s *Server) createClient(ctx *gin.Context) {
	in, ok := s.bindInput(ctx)
	if !ok {
		return
	}

	c, err := s.manager.Create(ctx.Request.Context(), in)
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusCreated, c)
}

func (s *Server) updateClient(ctx *gin.Context) {
	id, ok := s.pathID(ctx)
	if !ok {
		return
	}

	in, ok := s.bindInput(ctx)
	if !ok {
		return
	}

	c, err := s.manager.Update(ctx.Request.Context(), id, in)
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (s *Server) deleteClient(ctx *gin.Context) {
	id, ok := s.pathID(ctx)
	if !ok {
		return
	}

	if err := s.manager.SoftDelete(ctx.Request.Context(), id); err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.Status(http.StatusNoContent)
}

func (s *Server) activateClient(ctx *gin.Context) {
	id, ok := s.pathID(ctx)
	if !ok {
		return
	}

	if err := s.manager.Activate(ctx.Request.Context(), id); err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.Status(http.StatusNoContent)
}

func (s *Server) searchByEmail(ctx *gin.Context) {
	email := ctx.Query("email")
	if email == "" {
		s.invalid(ctx, "email query parameter is required")

		return
	}

	c, err := s.manager.GetByEmail(ctx.Request.Context(), email)
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (s *Server) searchBySin(ctx *gin.Context) {
	sin := ctx.Query("sin")
	if sin == "" {
		s.invalid(ctx, "sin query parameter is required")

		return
	}

	c, err := s.manager.GetBySinNumber(ctx.Request.Context(), sin)
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (s *Server) searchByName(ctx *gin.Context) {
	list, err := s.manager.SearchByName(ctx.Request.Context(), ctx.Query("name"))
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, list)
}

func (s *Server) nearby(ctx *gin.Context) {
	lat, errLat := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(ctx.Query("lng"), 64)

	if errLat != nil || errLng != nil {
		s.invalid(ctx, "lat and lng query parameters must be numbers")

		return
	}

	rings := defaultNearbyRings

	if raw := ctx.Query("rings"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.invalid(ctx, "rings must be an integer")

			return
		}

		rings = n
	}

	list, err := s.manager.Nearby(ctx.Request.Context(), spatial.Point{Lat: lat, Lng: lng}, rings)
	if err != nil {
		s.abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, list)
}
