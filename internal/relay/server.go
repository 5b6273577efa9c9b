// Package relay serves the notification endpoints of the transit backend.
// It holds the bot credentials so that console operators never need them.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/telegram"
)

// Messages returned by the relay.
const (
	msgTestSent    = "Test message sent"
	msgAlertSent   = "Оповещение отправлено в Telegram"
	msgStatsSent   = "Статистика отправлена в Telegram"
	msgMessageSent = "Сообщение отправлено в Telegram"
	msgBotActive   = "Telegram бот активен и готов к работе"
	msgBotDown     = "Telegram бот временно недоступен"
)

const correlationHeader = "X-Correlation-Id"

// Sender is the part of the bot the relay needs. *telegram.Bot
// implements it.
type Sender interface {
	GetMe(ctx context.Context) (model.BotProfile, error)
	SendMessage(ctx context.Context, text string) (json.RawMessage, error)
}

// Server exposes /api/telegram/*.
type Server struct {
	sender Sender
	engine *gin.Engine
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used in message templates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a relay sending through sender.
func New(sender Sender, opts ...Option) (*Server, error) {
	s := &Server{sender: sender, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		return nil, errors.New("relay: a bot is required")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(correlationID(), requestLogger(), gin.Recovery())

	api := r.Group("/api/telegram")
	api.GET("/test", s.handleIdentity)
	api.POST("/test", s.handleTest)
	api.POST("/stats", s.handleStats)
	api.POST("/alert", s.handleMessage(msgAlertSent))
	api.POST("/send", s.handleMessage(msgMessageSent))
	api.GET("/status", s.handleStatus)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, telegram.Result{Error: "route not found"})
	})

	s.engine = r
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Relay listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("relay shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleIdentity(c *gin.Context) {
	profile, err := s.sender.GetMe(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, telegram.Result{
		Success: true,
		Message: fmt.Sprintf("Бот %s (@%s) доступен", profile.FirstName, profile.Username),
	})
}

func (s *Server) handleTest(c *gin.Context) {
	var req telegram.Request
	_ = c.ShouldBindJSON(&req)
	if req.Message == "" {
		req.Message = telegram.DefaultTestMessage
	}
	s.send(c, req, msgTestSent)
}

func (s *Server) handleStats(c *gin.Context) {
	var req telegram.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.Statistics == nil {
		c.JSON(http.StatusBadRequest, telegram.Result{Error: "statistics are required"})
		return
	}
	s.send(c, req, msgStatsSent)
}

func (s *Server) handleMessage(sent string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req telegram.Request
		_ = c.ShouldBindJSON(&req)
		if req.Message == "" {
			req.Message = c.Query("message")
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			c.JSON(http.StatusBadRequest, telegram.Result{Error: "message is required"})
			return
		}
		s.send(c, req, sent)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	if _, err := s.sender.GetMe(c.Request.Context()); err != nil {
		slog.Warn("Bot status check failed", "error", err)
		c.JSON(http.StatusOK, telegram.Result{Success: false, Message: msgBotDown, Error: telegram.Describe(err)})
		return
	}
	c.JSON(http.StatusOK, telegram.Result{Success: true, Message: msgBotActive})
}

func (s *Server) send(c *gin.Context, req telegram.Request, sent string) {
	raw, err := s.sender.SendMessage(c.Request.Context(), req.Text(s.now()))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, telegram.Result{Success: true, Message: sent, TelegramResponse: raw})
}

func fail(c *gin.Context, err error) {
	slog.Error("Relay request failed", "path", c.FullPath(), "correlation_id", c.GetString("correlation_id"), "error", err)
	c.JSON(http.StatusBadGateway, telegram.Result{Error: telegram.Describe(err)})
}

func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(correlationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Set("correlation_id", cid)
		c.Header(correlationHeader, cid)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("Relay request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"correlation_id", c.GetString("correlation_id"))
	}
}
