package soft

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	cryptoinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/crypto"
)

const DefaultKeyBits = 2048

type keyPair struct {
	kid     string
	private *rsa.PrivateKey
}

// Manager holds the sender's RSA key material in memory. The private key
// never leaves the process; only the JWK form of the public half is
// published. Rotation keeps prior keys resolvable so tokens signed just
// before a rotation still verify.
type Manager struct {
	bits int

	mu      sync.RWMutex
	active  *keyPair
	retired []*keyPair
}

// NewManager generates the initial key pair. A generation failure here is
// fatal to the owning process; callers should not retry.
func NewManager(bits int) (*Manager, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	m := &Manager{bits: bits}
	pair, err := m.generate()
	if err != nil {
		return nil, err
	}
	m.active = pair
	return m, nil
}

func (m *Manager) generate() (*keyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, m.bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &keyPair{kid: uuid.NewString(), private: key}, nil
}

// Rotate installs a freshly generated key pair as the signing key and
// returns its kid. The previous key moves to the retired list and stays
// in the published key set.
func (m *Manager) Rotate() (string, error) {
	pair, err := m.generate()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.retired = append(m.retired, m.active)
	}
	m.active = pair
	return pair.kid, nil
}

func (m *Manager) ActiveKID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return ""
	}
	return m.active.kid
}

// Sign issues a compact RS256 token over claims with the active key.
func (m *Manager) Sign(claims map[string]any) (string, error) {
	m.mu.RLock()
	pair := m.active
	m.mu.RUnlock()
	if pair == nil {
		return "", fmt.Errorf("no active signing key")
	}
	return cryptoinfra.SignRS256(pair.private, pair.kid, claims)
}

// KeySet returns the public material for every key the manager has ever
// activated, active key first.
func (m *Manager) KeySet() domain.KeySet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]domain.JWK, 0, len(m.retired)+1)
	if m.active != nil {
		keys = append(keys, publicJWK(m.active))
	}
	for i := len(m.retired) - 1; i >= 0; i-- {
		keys = append(keys, publicJWK(m.retired[i]))
	}
	return domain.KeySet{Keys: keys}
}

func publicJWK(pair *keyPair) domain.JWK {
	pub := &pair.private.PublicKey
	return domain.JWK{
		Kty: "RSA",
		Kid: pair.kid,
		Use: "sig",
		Alg: domain.TokenAlg,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
