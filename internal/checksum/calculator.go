package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Calculator computes fixture checksums.
type Calculator interface {
	// CalculateRaw hashes content exactly as stored on disk.
	CalculateRaw(content []byte) string

	// CalculateNormalized hashes content after normalization, so two
	// formattings of the same document hash alike.
	CalculateNormalized(content []byte) string
}

// SHA256 is the production Calculator.
// Normalization compacts JSON content so that reindenting a fixture file
// does not change its normalized checksum. Content that is not valid JSON
// is hashed as-is.
//
// SHA256 is a zero-size type and is safe for concurrent use by multiple goroutines.
type SHA256 struct{}

// New returns the SHA-256 calculator.
func New() SHA256 {
	return SHA256{}
}

// CalculateRaw hashes the bytes as-is.
func (c SHA256) CalculateRaw(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// CalculateNormalized hashes the compacted form of content.
func (c SHA256) CalculateNormalized(content []byte) string {
	hash := sha256.Sum256(c.normalize(content))
	return hex.EncodeToString(hash[:])
}

// normalize compacts JSON content, stripping insignificant whitespace.
// Key order and value formatting inside the document are preserved, so
// two fixtures are normalized-equal exactly when their JSON token
// streams are identical. Invalid JSON is returned unchanged.
func (c SHA256) normalize(content []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(content))
	if err := json.Compact(&buf, content); err != nil {
		return content
	}
	return buf.Bytes()
}
