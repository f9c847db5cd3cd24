package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

const (
	defaultCacheTTL      = 5 * time.Minute
	defaultMaxStale      = 15 * time.Minute
	defaultFetchTimeout  = 5 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = 200 * time.Millisecond
	defaultRetryMax      = 2 * time.Second
)

// Client fetches remote key sets and caches them per URL. Invalidation
// policy: entries are fresh for ttl, then served stale for up to maxStale
// while a background refresh runs; concurrent refreshes of one URL
// collapse into a single fetch.
type Client struct {
	httpClient   *http.Client
	ttl          time.Duration
	maxStale     time.Duration
	fetchTimeout time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	now          func() time.Time

	mu     sync.Mutex
	caches map[string]*urlCache
}

type Option func(*Client)

func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithMaxStale(maxStale time.Duration) Option {
	return func(c *Client) {
		if maxStale > 0 {
			c.maxStale = maxStale
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	c := &Client{
		httpClient:   httpClient,
		ttl:          defaultCacheTTL,
		maxStale:     defaultMaxStale,
		fetchTimeout: defaultFetchTimeout,
		retryBase:    defaultRetryBase,
		retryMax:     defaultRetryMax,
		now:          time.Now,
		caches:       map[string]*urlCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveKey returns the public key for kid from the key set at jwksURL.
// Missing kid maps to domain.ErrKeyUnknown, fetch trouble to
// domain.ErrKeySetFetch.
func (c *Client) ResolveKey(ctx context.Context, jwksURL, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, domain.ErrKeyUnknown
	}
	cache := c.cacheFor(jwksURL)
	now := c.now()
	if key, state := cache.lookup(kid, now); state == keyFresh {
		return key, nil
	} else if state == keyStale {
		cache.refreshAsync()
		return key, nil
	}
	if err := cache.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeySetFetch, err)
	}
	if key, _ := cache.lookup(kid, c.now()); key != nil {
		return key, nil
	}
	return nil, domain.ErrKeyUnknown
}

// FetchKeySet forces a fetch of the key set at jwksURL and primes the cache.
func (c *Client) FetchKeySet(ctx context.Context, jwksURL string) (map[string]*rsa.PublicKey, error) {
	cache := c.cacheFor(jwksURL)
	if err := cache.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeySetFetch, err)
	}
	return cache.snapshot(), nil
}

func (c *Client) cacheFor(jwksURL string) *urlCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	cache, ok := c.caches[jwksURL]
	if !ok {
		cache = &urlCache{client: c, url: jwksURL, keys: map[string]*rsa.PublicKey{}}
		c.caches[jwksURL] = cache
	}
	return cache
}

type keyState int

const (
	keyMissing keyState = iota
	keyFresh
	keyStale
)

type urlCache struct {
	client *Client
	url    string

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	expiresAt  time.Time
	staleUntil time.Time

	refreshMu sync.Mutex
	refreshCh chan struct{}
	lastErr   error
}

func (u *urlCache) lookup(kid string, now time.Time) (*rsa.PublicKey, keyState) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	key, ok := u.keys[kid]
	if !ok {
		return nil, keyMissing
	}
	if now.Before(u.expiresAt) {
		return key, keyFresh
	}
	if !u.staleUntil.IsZero() && now.Before(u.staleUntil) {
		return key, keyStale
	}
	return nil, keyMissing
}

func (u *urlCache) snapshot() map[string]*rsa.PublicKey {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[string]*rsa.PublicKey, len(u.keys))
	for kid, key := range u.keys {
		out[kid] = key
	}
	return out
}

func (u *urlCache) refreshAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), u.client.fetchTimeout)
	go func() {
		_ = u.refresh(ctx)
		cancel()
	}()
}

func (u *urlCache) refresh(ctx context.Context) error {
	ch, leader := u.beginRefresh()
	if !leader {
		select {
		case <-ch:
			u.refreshMu.Lock()
			defer u.refreshMu.Unlock()
			return u.lastErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := u.doRefresh(ctx)
	u.refreshMu.Lock()
	u.lastErr = err
	close(ch)
	u.refreshCh = nil
	u.refreshMu.Unlock()
	return err
}

func (u *urlCache) beginRefresh() (chan struct{}, bool) {
	u.refreshMu.Lock()
	defer u.refreshMu.Unlock()
	if u.refreshCh != nil {
		return u.refreshCh, false
	}
	ch := make(chan struct{})
	u.refreshCh = ch
	return ch, true
}

func (u *urlCache) doRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.client.fetchTimeout)
	defer cancel()

	keys, err := u.fetchWithRetry(ctx)
	if err != nil {
		return err
	}
	now := u.client.now()
	u.mu.Lock()
	u.keys = keys
	u.expiresAt = now.Add(u.client.ttl)
	u.staleUntil = u.expiresAt.Add(u.client.maxStale)
	u.mu.Unlock()
	return nil
}

func (u *urlCache) fetchWithRetry(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	delay := u.client.retryBase
	var lastErr error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
			if delay > u.client.retryMax {
				delay = u.client.retryMax
			}
		}
		keys, err := u.fetchOnce(ctx)
		if err == nil {
			return keys, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (u *urlCache) fetchOnce(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("key set fetch returned status %d", resp.StatusCode)
	}
	var keySet domain.KeySet
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return nil, err
	}
	keys := make(map[string]*rsa.PublicKey, len(keySet.Keys))
	for _, jwk := range keySet.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		pub, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("key set contains no usable keys")
	}
	return keys, nil
}

func jwkToRSAPublicKey(key domain.JWK) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
