package cryptox

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
)

var (
	ErrInvalidEncoding  = errors.New("invalid signature encoding")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Sign signs the canonical string and returns the base64 (standard encoding)
// signature carried in the X-Signature header.
func Sign(priv ed25519.PrivateKey, canonical string) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(canonical)))
}

// Verify checks a base64 signature over canonical with the raw public key.
// Callers on the request path must not surface which of the errors occurred.
func Verify(pub []byte, canonical, signatureB64 string) error {
	if len(pub) != ed25519.PublicKeySize {
		return ErrInvalidPublicKey
	}

	sig, err := base64.StdEncoding.Strict().DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrInvalidEncoding
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(canonical), sig) {
		return ErrInvalidSignature
	}
	return nil
}
