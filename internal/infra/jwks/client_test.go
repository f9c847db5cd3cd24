package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	cryptoinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/crypto"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/keys/soft"
)

func newKeySetServer(t *testing.T, manager *soft.Manager, fetches *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches != nil {
			fetches.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(manager.KeySet())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ResolveKeyVerifiesToken(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	srv := newKeySetServer(t, manager, nil)

	token, err := manager.Sign(map[string]any{"iat": int64(1)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parsed, err := cryptoinfra.ParseCompact(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	client := NewClient(srv.Client())
	pub, err := client.ResolveKey(context.Background(), srv.URL, parsed.KID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := cryptoinfra.VerifyRS256(pub, parsed.SigningInput, parsed.Signature); err != nil {
		t.Fatalf("verify with resolved key: %v", err)
	}
}

func TestClient_UnknownKid(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	srv := newKeySetServer(t, manager, nil)

	client := NewClient(srv.Client())
	if _, err := client.ResolveKey(context.Background(), srv.URL, "no-such-kid"); !errors.Is(err, domain.ErrKeyUnknown) {
		t.Fatalf("got %v, want ErrKeyUnknown", err)
	}
}

func TestClient_EmptyKid(t *testing.T) {
	client := NewClient(nil)
	if _, err := client.ResolveKey(context.Background(), "http://unused", ""); !errors.Is(err, domain.ErrKeyUnknown) {
		t.Fatalf("got %v, want ErrKeyUnknown", err)
	}
}

func TestClient_UnreachableURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(&http.Client{Timeout: time.Second})
	_, err := client.ResolveKey(context.Background(), srv.URL, "kid")
	if !errors.Is(err, domain.ErrKeySetFetch) {
		t.Fatalf("got %v, want ErrKeySetFetch", err)
	}
}

func TestClient_BadStatusWrapsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.Client())
	if _, err := client.FetchKeySet(context.Background(), srv.URL); !errors.Is(err, domain.ErrKeySetFetch) {
		t.Fatalf("got %v, want ErrKeySetFetch", err)
	}
}

func TestClient_CachesAcrossResolves(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	var fetches atomic.Int64
	srv := newKeySetServer(t, manager, &fetches)

	client := NewClient(srv.Client())
	kid := manager.ActiveKID()
	for i := 0; i < 5; i++ {
		if _, err := client.ResolveKey(context.Background(), srv.URL, kid); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected exactly 1 upstream fetch, got %d", got)
	}
}

func TestClient_ExpiredEntryRefetches(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	var fetches atomic.Int64
	srv := newKeySetServer(t, manager, &fetches)

	now := time.Unix(1700000000, 0)
	client := NewClient(srv.Client(),
		WithTTL(time.Minute),
		WithMaxStale(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	kid := manager.ActiveKID()
	if _, err := client.ResolveKey(context.Background(), srv.URL, kid); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	// past ttl and the stale allowance: the entry is gone, a fetch must happen
	now = now.Add(3 * time.Minute)
	if _, err := client.ResolveKey(context.Background(), srv.URL, kid); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected 2 upstream fetches, got %d", got)
	}
}

func TestClient_StaleEntryServedWhileRefreshing(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	srv := newKeySetServer(t, manager, nil)

	now := time.Unix(1700000000, 0)
	client := NewClient(srv.Client(),
		WithTTL(time.Minute),
		WithMaxStale(10*time.Minute),
		WithClock(func() time.Time { return now }),
	)
	kid := manager.ActiveKID()
	if _, err := client.ResolveKey(context.Background(), srv.URL, kid); err != nil {
		t.Fatalf("prime: %v", err)
	}

	// within the stale window the cached key is returned immediately
	now = now.Add(5 * time.Minute)
	if _, err := client.ResolveKey(context.Background(), srv.URL, kid); err != nil {
		t.Fatalf("stale resolve: %v", err)
	}
}

func TestClient_RotatedKeyResolvesAfterRefetch(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	srv := newKeySetServer(t, manager, nil)

	client := NewClient(srv.Client())
	if _, err := client.ResolveKey(context.Background(), srv.URL, manager.ActiveKID()); err != nil {
		t.Fatalf("prime: %v", err)
	}

	newKID, err := manager.Rotate()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	// the new kid is a cache miss, which forces a refetch that finds it
	if _, err := client.ResolveKey(context.Background(), srv.URL, newKID); err != nil {
		t.Fatalf("resolve rotated kid: %v", err)
	}
}

func TestResolver_BindsURL(t *testing.T) {
	manager, err := soft.NewManager(1024)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	srv := newKeySetServer(t, manager, nil)

	resolver := NewResolver(NewClient(srv.Client()), srv.URL)
	if _, err := resolver.ResolveKey(context.Background(), manager.ActiveKID()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := resolver.ResolveKey(context.Background(), "missing"); !errors.Is(err, domain.ErrKeyUnknown) {
		t.Fatalf("got %v, want ErrKeyUnknown", err)
	}
}
