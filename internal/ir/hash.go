package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored hashes.
const (
	DomainConfig = "sweep/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigHash is the content hash of a merged trial configuration. Two trials
// with equal hashes ran the objective on identical input.
func ConfigHash(cfg Object) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// MustConfigHash is like ConfigHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustConfigHash(cfg Object) string {
	h, err := ConfigHash(cfg)
	if err != nil {
		panic(err)
	}
	return h
}
