package client

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/cryptox"
)

const nonceBytes = 16

// Signer adds the signature envelope to outgoing requests. Now and Nonce
// default to the wall clock and 16 random bytes in hex.
type Signer struct {
	ClientID string
	Key      ed25519.PrivateKey
	Now      func() time.Time
	Nonce    func() (string, error)
}

// LoadSigner reads a PEM private key from keyFile.
func LoadSigner(clientID, keyFile string) (*Signer, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	defer common.WipeByteArray(data)

	key, err := cryptox.ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}
	return &Signer{ClientID: clientID, Key: key}, nil
}

// Apply signs req over body, which must be the exact bytes sent.
func (s *Signer) Apply(req *http.Request, body []byte) error {
	if strings.TrimSpace(s.ClientID) == "" || len(s.Key) != ed25519.PrivateKeySize {
		return errors.New("client id and private key are required")
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	newNonce := s.Nonce
	if newNonce == nil {
		newNonce = func() (string, error) { return common.MakeRandHexString(nonceBytes) }
	}
	nonce, err := newNonce()
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}

	ts := now.Unix()
	canonical := cryptox.CanonicalString(ts, req.Method, req.URL.RequestURI(), nonce, body)

	req.Header.Set(common.HeaderClientID, s.ClientID)
	req.Header.Set(common.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(common.HeaderNonce, nonce)
	req.Header.Set(common.HeaderSignature, cryptox.Sign(s.Key, canonical))
	return nil
}
