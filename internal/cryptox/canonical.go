// Package cryptox holds the signing primitives shared by the server and the
// client: the canonical request string, Ed25519 key handling and signature
// creation/verification.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SHA256Hex returns the lowercase hex SHA-256 of b. A nil or empty slice
// hashes the empty byte sequence.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CanonicalString builds the exact string that is signed for a request:
//
//	timestamp \n METHOD \n path_and_query \n nonce \n hex(sha256(body))
//
// body must be the raw bytes as sent on the wire.
func CanonicalString(timestamp int64, method, pathAndQuery, nonce string, body []byte) string {
	var b strings.Builder
	b.Grow(len(method) + len(pathAndQuery) + len(nonce) + 96)

	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(pathAndQuery)
	b.WriteByte('\n')
	b.WriteString(nonce)
	b.WriteByte('\n')
	b.WriteString(SHA256Hex(body))

	return b.String()
}
