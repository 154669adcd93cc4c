// Package ident produces provider-facing correlation ids and generation seeds.
package ident

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"
)

const (
	// promptPrefixLen bounds how much of the prompt is mixed into the id. The
	// full prompt must never be recoverable from the token.
	promptPrefixLen = 32
	// bodyLen is the length of the encoded body after truncation.
	bodyLen = 18
	// suffixBytes of the nonce tail back the anti-collision suffix (6 encoded
	// characters, 32 bits of entropy surviving truncation).
	suffixBytes = 4
)

// ProviderJobID derives a short, practically-unique correlation token from the
// prompt, the current time and a 128-bit random nonce. Two calls with the same
// prompt yield different tokens with overwhelming probability. The token is
// not a durable primary key; the record store assigns that separately.
func ProviderJobID(prompt string) string {
	prefix := strings.TrimSpace(prompt)
	if len(prefix) > promptPrefixLen {
		prefix = prefix[:promptPrefixLen]
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		// crypto/rand failing means the host is broken; fall back to the
		// clock alone rather than panic in the request path.
		binary.BigEndian.PutUint64(nonce, uint64(time.Now().UnixNano()))
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixNano()))

	mixed := make([]byte, 0, len(prefix)+len(ts)+len(nonce))
	mixed = append(mixed, prefix...)
	mixed = append(mixed, ts[:]...)
	mixed = append(mixed, nonce...)

	body := base64.RawURLEncoding.EncodeToString(mixed)
	if len(body) > bodyLen {
		body = body[:bodyLen]
	}
	suffix := base64.RawURLEncoding.EncodeToString(nonce[len(nonce)-suffixBytes:])
	return body + suffix
}

// Seed returns a uniformly distributed integer in [0, 2^31-1), generated fresh
// per call from the OS randomness source.
func Seed() int32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return int32(time.Now().UnixNano() % (1<<31 - 1))
	}
	return int32(binary.BigEndian.Uint32(buf[:]) % (1<<31 - 1))
}
