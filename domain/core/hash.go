package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 16 hex characters
func (h Hash) Short() string {
	if len(h) < 16 {
		return string(h)
	}
	return string(h[:16])
}

// ComputeSeriesHash fingerprints a list of voter counts
func ComputeSeriesHash(ns []int) Hash {
	var data strings.Builder
	for _, n := range ns {
		data.WriteString(fmt.Sprintf("%d,", n))
	}
	return NewHash([]byte(data.String()))
}
