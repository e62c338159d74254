package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

const pemTypePrivateKey = "PRIVATE KEY"

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
)

// KeyPair is a freshly generated identity key. PrivateKeyPEM is the only copy
// of the private half; the server hands it out once and never stores it.
type KeyPair struct {
	PublicKey     ed25519.PublicKey
	PrivateKeyPEM []byte
}

// GenerateKeyPair creates an Ed25519 keypair with the private key encoded as
// PKCS#8 PEM.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}

	pemBytes, err := MarshalPrivateKeyPEM(priv)
	if err != nil {
		return nil, err
	}

	return &KeyPair{PublicKey: pub, PrivateKeyPEM: pemBytes}, nil
}

// MarshalPrivateKeyPEM encodes priv as a PKCS#8 "PRIVATE KEY" PEM block.
func MarshalPrivateKeyPEM(priv ed25519.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal pkcs8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der}), nil
}

// ParsePrivateKey accepts either a PKCS#8 PEM block (as issued by the server)
// or an OpenSSH private key produced by `ssh-keygen -t ed25519`.
func ParsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	raw, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	switch k := raw.(type) {
	case ed25519.PrivateKey:
		return k, nil
	case *ed25519.PrivateKey:
		return *k, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidPrivateKey, raw)
	}
}

// Fingerprint returns the OpenSSH-style SHA256 fingerprint of an Ed25519
// public key, e.g. "SHA256:...". It is what operators see in listings and logs.
func Fingerprint(pub []byte) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", ErrInvalidPublicKey
	}
	sshPub, err := ssh.NewPublicKey(ed25519.PublicKey(pub))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return ssh.FingerprintSHA256(sshPub), nil
}
