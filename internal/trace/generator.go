// Package trace creates per-session trace identifiers and their one-way hashes.
package trace

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// TraceIDLength is the number of random bytes in a trace id.
	TraceIDLength = 16
	// TrimmedHashLength is the number of digest bytes kept in a hashed trace id.
	TrimmedHashLength = 16
)

// Generator creates trace identifiers. The zero value reads from crypto/rand.
type Generator struct {
	random io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{random: rand.Reader}
}

// NewGeneratorWithReader is used by tests that need a deterministic source.
func NewGeneratorWithReader(r io.Reader) *Generator {
	return &Generator{random: r}
}

// Generate returns a fresh base64 encoded trace id.
func (g *Generator) Generate() (string, error) {
	src := g.random
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, TraceIDLength)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read trace id entropy: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Hash derives the hashed trace id: SHA-256 over the raw trace id bytes,
// trimmed to TrimmedHashLength bytes and base64 encoded.
func (g *Generator) Hash(traceID string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(traceID)
	if err != nil {
		return "", fmt.Errorf("decode trace id: %w", err)
	}
	if len(raw) != TraceIDLength {
		return "", fmt.Errorf("trace id has %d bytes, want %d", len(raw), TraceIDLength)
	}
	sum := sha256.Sum256(raw)
	return base64.StdEncoding.EncodeToString(sum[:TrimmedHashLength]), nil
}

// GenerateWithHash is the session-start helper: one fresh id plus its hash.
func (g *Generator) GenerateWithHash() (traceID, hashed string, err error) {
	traceID, err = g.Generate()
	if err != nil {
		return "", "", err
	}
	hashed, err = g.Hash(traceID)
	if err != nil {
		return "", "", err
	}
	return traceID, hashed, nil
}

// DecodeHash validates an encoded hashed trace id and returns its bytes.
func DecodeHash(hashed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(hashed)
	if err != nil {
		return nil, err
	}
	if len(raw) != TrimmedHashLength {
		return nil, fmt.Errorf("hashed trace id has %d bytes, want %d", len(raw), TrimmedHashLength)
	}
	return raw, nil
}
