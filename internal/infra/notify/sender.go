package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

const (
	defaultTimeout       = 10 * time.Second
	validationTokenParam = "validationToken"
	maxProbeBodyBytes    = 4 << 10
)

// Sender performs the outbound half of the protocol: callback ownership
// probes and envelope delivery. It never retries; retry policy belongs to
// the caller.
type Sender struct {
	client *http.Client

	mu       sync.RWMutex
	verified map[string]struct{}
}

func NewSender(client *http.Client) *Sender {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Sender{
		client:   client,
		verified: make(map[string]struct{}),
	}
}

// VerifyCallbackOwnership probes callbackURL with a single-use validation
// token and requires the exact token back. Success registers the URL for
// future deliveries.
func (s *Sender) VerifyCallbackOwnership(ctx context.Context, callbackURL string) error {
	probeURL, err := buildProbeURL(callbackURL, uuid.NewString())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOwnership, err)
	}
	token := probeURL.Query().Get(validationTokenParam)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOwnership, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: callback unreachable: %v", domain.ErrOwnership, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOwnership, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: probe returned status %d", domain.ErrOwnership, resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != token {
		return fmt.Errorf("%w: validation token mismatch", domain.ErrOwnership)
	}

	s.mu.Lock()
	s.verified[callbackURL] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Deliver posts env to callbackURL with the token in the Authorization
// header. The URL must have passed ownership verification first.
func (s *Sender) Deliver(ctx context.Context, callbackURL string, env domain.Envelope) error {
	if !s.IsVerified(callbackURL) {
		return fmt.Errorf("%w: %s", domain.ErrOwnership, callbackURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(env.Payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: receiver returned status %d", domain.ErrDelivery, resp.StatusCode)
	}
	return nil
}

func (s *Sender) IsVerified(callbackURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verified[callbackURL]
	return ok
}

func buildProbeURL(callbackURL, token string) (*url.URL, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported callback scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set(validationTokenParam, token)
	u.RawQuery = q.Encode()
	return u, nil
}
