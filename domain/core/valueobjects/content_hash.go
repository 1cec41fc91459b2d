package valueobjects

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// ContentHash is a value object holding the SHA-256 digest of a memory's
// content, encoded as lowercase hex.
//
// The hash is the memory's externally-facing identity and is a pure function
// of the content: whenever content changes, the hash changes with it. Callers
// holding a hash hold an identity for that exact text, not a stable handle to
// the record.
type ContentHash struct {
	value string
}

const hashLength = sha256.Size * 2

// NewContentHash computes the hash of the given content.
func NewContentHash(content string) ContentHash {
	sum := sha256.Sum256([]byte(content))
	return ContentHash{value: hex.EncodeToString(sum[:])}
}

// ParseContentHash creates a ContentHash from its hex representation.
func ParseContentHash(s string) (ContentHash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ContentHash{}, pkgerrors.NewInvalidInput("hash cannot be empty")
	}
	if len(s) != hashLength {
		return ContentHash{}, pkgerrors.NewInvalidInput("hash must be 64 hex characters")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return ContentHash{}, pkgerrors.NewInvalidInput("hash must be hex encoded")
	}
	return ContentHash{value: s}, nil
}

// String returns the hex representation of the hash
func (h ContentHash) String() string {
	return h.value
}

// Equals checks if two hashes are equal
func (h ContentHash) Equals(other ContentHash) bool {
	return h.value == other.value
}

// IsZero checks if the hash is the zero value
func (h ContentHash) IsZero() bool {
	return h.value == ""
}

// MarshalJSON implements json.Marshaler
func (h ContentHash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (h *ContentHash) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ContentHash must be a string")
	}
	parsed, err := ParseContentHash(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
