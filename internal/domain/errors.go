package domain

import "errors"

var (
	ErrInvalidEnvelope   = errors.New("invalid notification envelope")
	ErrKeyUnknown        = errors.New("signing key unknown")
	ErrSignatureInvalid  = errors.New("signature invalid")
	ErrPayloadTampered   = errors.New("payload digest mismatch")
	ErrStaleNotification = errors.New("notification stale")
	ErrKeySetFetch       = errors.New("key set fetch failed")
	ErrDelivery          = errors.New("notification delivery failed")
	ErrOwnership         = errors.New("callback ownership not verified")
)
