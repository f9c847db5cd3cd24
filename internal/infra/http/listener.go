package http

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/config"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/usecase"
)

const maxNotificationBodyBytes = 5 << 20

// Listener is the receiver-side callback endpoint. It runs in its own
// http.Server so the hosting process can keep an interactive foreground
// loop going; the two sides only ever meet over the network boundary.
type Listener struct {
	cfg    config.Config
	r      *gin.Engine
	srv    *http.Server
	logger *logrus.Logger

	verify   *usecase.VerifyNotification
	sink     usecase.PayloadSink
	audit    *usecase.AuditEmitter
	auditLog usecase.AuditEventLister

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitFailClosed bool
}

type ListenerDeps struct {
	Verify      *usecase.VerifyNotification
	Sink        usecase.PayloadSink
	Audit       *usecase.AuditEmitter
	AuditLog    usecase.AuditEventLister
	RateLimiter domain.RateLimiter
	Logger      *logrus.Logger
}

func NewListener(cfg config.Config, deps ListenerDeps) *Listener {
	r := gin.New()
	r.Use(gin.Recovery())

	l := &Listener{
		cfg:                 cfg,
		r:                   r,
		logger:              deps.Logger,
		verify:              deps.Verify,
		sink:                deps.Sink,
		audit:               deps.Audit,
		auditLog:            deps.AuditLog,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitFailClosed: cfg.RateLimitFailClosed,
	}
	if l.logger == nil {
		l.logger = logrus.New()
	}
	l.routes()
	l.srv = &http.Server{Addr: cfg.ListenAddr, Handler: r}
	return l
}

func (l *Listener) routes() {
	l.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	l.r.GET("/notify", l.handleValidation)
	l.r.POST("/notify", l.handleNotification)
	if l.auditLog != nil {
		l.r.GET("/audit/events", l.handleAuditEvents)
	}
}

// Handler exposes the router for in-process tests.
func (l *Listener) Handler() http.Handler {
	return l.r
}

// Start blocks serving until Shutdown is called or the listener fails.
func (l *Listener) Start() error {
	return l.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// up to the context deadline. Safe to call even if Start never ran;
// a subsequent Start then refuses to serve.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}

func (l *Listener) handleValidation(c *gin.Context) {
	token := c.Query("validationToken")
	if token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	l.logger.WithField("validation_token", token).Info("callback validation probe received")
	c.String(http.StatusOK, "%s", token)
}

func (l *Listener) handleNotification(c *gin.Context) {
	if !l.enforceRateLimit(c, "notify") {
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBodyBytes))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_BODY", "could not read request body")
		return
	}
	env := domain.Envelope{
		Payload: body,
		Token:   bearerToken(c.GetHeader("Authorization")),
	}

	payload, err := l.verify.Execute(c.Request.Context(), env)
	if err != nil {
		l.recordRejection(c, env, err)
		// The response deliberately hides which check failed; the audit
		// record keeps the subkind.
		writeErrorCode(c, http.StatusUnauthorized, "VERIFICATION_FAILED", "notification rejected")
		return
	}

	l.sink.HandleVerifiedPayload(c.Request.Context(), payload)
	l.recordVerified(c, env)
	c.Status(http.StatusOK)
}

func (l *Listener) recordVerified(c *gin.Context, env domain.Envelope) {
	kid := tokenKID(l.verify, env.Token)
	digest, _ := l.verify.Crypto.PayloadDigest(env.Payload)
	l.logger.WithFields(logrus.Fields{
		"kid":            kid,
		"payload_sha256": digest,
		"remote_addr":    c.ClientIP(),
	}).Info("push notification verified")
	if l.audit != nil {
		if err := l.audit.EmitNotificationVerified(c.Request.Context(), kid, digest, c.ClientIP()); err != nil {
			l.logger.WithError(err).Warn("audit append failed")
		}
	}
}

func (l *Listener) recordRejection(c *gin.Context, env domain.Envelope, cause error) {
	kid := tokenKID(l.verify, env.Token)
	l.logger.WithFields(logrus.Fields{
		"kid":         kid,
		"remote_addr": c.ClientIP(),
		"reason":      usecase.RejectionCode(cause),
	}).Warn("push notification rejected")
	if l.audit != nil {
		if err := l.audit.EmitNotificationRejected(c.Request.Context(), kid, c.ClientIP(), cause); err != nil {
			l.logger.WithError(err).Warn("audit append failed")
		}
	}
}

type auditEventResponse struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	Result        string    `json:"result"`
	ErrorCode     string    `json:"error_code,omitempty"`
	KID           string    `json:"kid,omitempty"`
	PayloadSHA256 string    `json:"payload_sha256,omitempty"`
	RemoteAddr    string    `json:"remote_addr,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// handleAuditEvents exposes the internal record of notification outcomes,
// including the rejection codes the /notify responses withhold.
func (l *Listener) handleAuditEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := l.auditLog.ListRecent(c.Request.Context(), limit)
	if err != nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "could not list audit events")
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, auditEventResponse{
			ID:            ev.ID,
			EventType:     string(ev.EventType),
			Result:        string(ev.Result),
			ErrorCode:     ev.ErrorCode,
			KID:           ev.KID,
			PayloadSHA256: ev.PayloadSHA256,
			RemoteAddr:    ev.RemoteAddr,
			CreatedAt:     ev.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func tokenKID(verify *usecase.VerifyNotification, token string) string {
	if verify == nil || verify.Crypto == nil || token == "" {
		return ""
	}
	parsed, err := verify.Crypto.ParseToken(token)
	if err != nil {
		return ""
	}
	return parsed.KID
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
