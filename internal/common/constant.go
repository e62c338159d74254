package common

// Request headers carrying the signature envelope.
const (
	HeaderClientID  = "X-Client-Id"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
)

// Nonce length bounds, in characters.
const (
	MinNonceLength = 1
	MaxNonceLength = 128
)

// MaxConfigKeyLength bounds config keys, in characters.
const MaxConfigKeyLength = 256
