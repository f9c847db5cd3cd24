package crypto

import "crypto/rsa"

// Service adapts this package to the usecase-layer CryptoService contract.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) PayloadDigest(payload any) (string, error) {
	return PayloadDigest(payload)
}

func (s *Service) ParseToken(token string) (*ParsedToken, error) {
	return ParseCompact(token)
}

func (s *Service) VerifySignature(pub *rsa.PublicKey, signingInput string, sig []byte) error {
	return VerifyRS256(pub, signingInput, sig)
}
