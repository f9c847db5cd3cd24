package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/config"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/auditmem"
	cryptoinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/crypto"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/db"
	httpinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/http"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/keys/soft"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/notify"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	keys, err := soft.NewManager(cfg.SigningKeyBits)
	if err != nil {
		logger.Fatalf("generate signing key: %v", err)
	}
	logger.WithField("kid", keys.ActiveKID()).Info("signing key ready")

	store, err := db.NewStore(cfg)
	if err != nil {
		logger.Fatalf("init store: %v", err)
	}
	var auditRepo usecase.AuditEventRepository = auditmem.New()
	if store.DB != nil {
		auditRepo = db.NewAuditEventRepository(store.DB)
	}

	signUC := &usecase.SignNotification{
		Signer: keys,
		Crypto: cryptoinfra.NewService(),
	}
	sender := notify.NewSender(&http.Client{Timeout: cfg.DeliverTimeout()})

	srv := httpinfra.NewSenderServer(cfg, httpinfra.SenderDeps{
		Keys:   keys,
		Sign:   signUC,
		Sender: sender,
		Audit:  usecase.NewAuditEmitter(auditRepo, nil),
		Logger: logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("sender server started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
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
