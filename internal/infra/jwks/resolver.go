package jwks

import (
	"context"
	"crypto/rsa"
)

// Resolver binds a Client to one key-distribution URL so the verifier
// only has to think in kids.
type Resolver struct {
	client *Client
	url    string
}

func NewResolver(client *Client, jwksURL string) *Resolver {
	return &Resolver{client: client, url: jwksURL}
}

func (r *Resolver) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	return r.client.ResolveKey(ctx, r.url, kid)
}
