package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/config"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/keys/soft"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/notify"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/usecase"
)

// SenderServer is the sender-side surface: key distribution for remote
// verifiers, callback registration, and the collaborator-facing push API.
type SenderServer struct {
	cfg    config.Config
	r      *gin.Engine
	srv    *http.Server
	logger *logrus.Logger

	keys   *soft.Manager
	signUC *usecase.SignNotification
	sender *notify.Sender
	audit  *usecase.AuditEmitter
}

type SenderDeps struct {
	Keys   *soft.Manager
	Sign   *usecase.SignNotification
	Sender *notify.Sender
	Audit  *usecase.AuditEmitter
	Logger *logrus.Logger
}

func NewSenderServer(cfg config.Config, deps SenderDeps) *SenderServer {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &SenderServer{
		cfg:    cfg,
		r:      r,
		logger: deps.Logger,
		keys:   deps.Keys,
		signUC: deps.Sign,
		sender: deps.Sender,
		audit:  deps.Audit,
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	s.routes()
	s.srv = &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	return s
}

type registerReceiverRequest struct {
	URL string `json:"url"`
}

type pushNotificationRequest struct {
	URL     string          `json:"url"`
	Payload json.RawMessage `json:"payload"`
}

func (s *SenderServer) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.r.GET("/.well-known/jwks.json", s.handleJWKS)

	v1 := s.r.Group("/v1")
	{
		v1.POST("/receivers", s.handleRegisterReceiver)
		v1.POST("/notifications", s.handlePushNotification)
		v1.POST("/keys/rotate", s.handleRotateKey)
	}
}

func (s *SenderServer) Handler() http.Handler {
	return s.r
}

func (s *SenderServer) Start() error {
	return s.srv.ListenAndServe()
}

func (s *SenderServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleJWKS serves the public key set. Unauthenticated and side-effect
// free; remote verifiers may cache it.
func (s *SenderServer) handleJWKS(c *gin.Context) {
	c.JSON(http.StatusOK, s.keys.KeySet())
}

func (s *SenderServer) handleRegisterReceiver(c *gin.Context) {
	var req registerReceiverRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "callback url required")
		return
	}
	if err := s.sender.VerifyCallbackOwnership(c.Request.Context(), req.URL); err != nil {
		s.logger.WithField("callback_url", req.URL).WithError(err).Warn("callback registration failed")
		s.emitRegistered(c, req.URL, domain.AuditResultFailure, "OWNERSHIP_FAILED")
		writeErrorCode(c, http.StatusBadRequest, "OWNERSHIP_FAILED", "callback ownership verification failed")
		return
	}
	s.logger.WithField("callback_url", req.URL).Info("callback registered")
	s.emitRegistered(c, req.URL, domain.AuditResultSuccess, "")
	c.Status(http.StatusNoContent)
}

func (s *SenderServer) handlePushNotification(c *gin.Context) {
	var req pushNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || len(req.Payload) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "url and payload required")
		return
	}
	env, err := s.signUC.Execute(req.Payload)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.sender.Deliver(c.Request.Context(), req.URL, env); err != nil {
		s.logger.WithField("callback_url", req.URL).WithError(err).Warn("notification delivery failed")
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *SenderServer) handleRotateKey(c *gin.Context) {
	kid, err := s.keys.Rotate()
	if err != nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "key rotation failed")
		return
	}
	if s.audit != nil {
		if err := s.audit.EmitKeyRotated(c.Request.Context(), kid); err != nil {
			s.logger.WithError(err).Warn("audit append failed")
		}
	}
	c.JSON(http.StatusOK, gin.H{"kid": kid})
}

func (s *SenderServer) emitRegistered(c *gin.Context, callbackURL string, result domain.AuditResult, errorCode string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.EmitReceiverRegistered(c.Request.Context(), callbackURL, result, errorCode); err != nil {
		s.logger.WithError(err).Warn("audit append failed")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrOwnership):
		status, code = http.StatusConflict, "CALLBACK_UNVERIFIED"
	case errors.Is(err, domain.ErrDelivery):
		status, code = http.StatusBadGateway, "DELIVERY_FAILED"
	case errors.Is(err, domain.ErrInvalidEnvelope):
		status, code = http.StatusBadRequest, "INVALID_ENVELOPE"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
