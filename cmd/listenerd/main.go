package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/config"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/auditmem"
	cryptoinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/crypto"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/db"
	httpinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/http"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/jwks"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/ratelimit"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/usecase"
)

// logSink is the default collaborator: it writes verified payloads to the
// log, standing in for whatever UI or agent logic hosts the listener.
type logSink struct {
	logger *logrus.Logger
}

func (s *logSink) HandleVerifiedPayload(_ context.Context, payload json.RawMessage) {
	s.logger.WithField("payload", string(payload)).Info("push notification received")
}

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	if cfg.JWKSURL == "" {
		logger.Fatal("JWKS_URL is required")
	}

	store, err := db.NewStore(cfg)
	if err != nil {
		logger.Fatalf("init store: %v", err)
	}
	var auditRepo usecase.AuditEventRepository
	var auditLog usecase.AuditEventLister
	if store.DB != nil {
		repo := db.NewAuditEventRepository(store.DB)
		auditRepo, auditLog = repo, repo
	} else {
		mem := auditmem.New()
		auditRepo, auditLog = mem, mem
	}

	keyClient := jwks.NewClient(nil,
		jwks.WithTTL(cfg.JWKSCacheTTL()),
		jwks.WithMaxStale(cfg.JWKSMaxStale()),
	)
	verifyUC := &usecase.VerifyNotification{
		Keys:            jwks.NewResolver(keyClient, cfg.JWKSURL),
		Crypto:          cryptoinfra.NewService(),
		FreshnessWindow: cfg.FreshnessWindow(),
	}

	srv := httpinfra.NewListener(cfg, httpinfra.ListenerDeps{
		Verify:      verifyUC,
		Sink:        &logSink{logger: logger},
		Audit:       usecase.NewAuditEmitter(auditRepo, nil),
		AuditLog:    auditLog,
		RateLimiter: buildRateLimiter(cfg),
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.WithField("addr", cfg.ListenAddr).Info("push notification listener started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listener exited: %v", err)
		}
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
}

func buildRateLimiter(cfg config.Config) domain.RateLimiter {
	if cfg.RateLimitRequests <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		if limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil); err == nil {
			return limiter
		}
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
		MaxKeys: cfg.RateLimitMaxKeys,
	})
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}
