package domain

import "encoding/json"

// Token claim names. ClaimPayloadSHA256 carries the hex sha256 of the
// canonicalized payload so the receiver can reconcile the delivered body
// against what was signed.
const (
	ClaimIssuedAt      = "iat"
	ClaimPayloadSHA256 = "request_body_sha256"
)

const TokenAlg = "RS256"

// Envelope is the signed notification unit. The payload travels as the
// request body; the compact JWS token rides the Authorization header.
type Envelope struct {
	Payload json.RawMessage
	Token   string
}
