package domain

// JWK is a single RSA public key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet is the published collection of verification keys, keyed by kid.
// It is the only key material that crosses the sender/receiver boundary.
type KeySet struct {
	Keys []JWK `json:"keys"`
}
