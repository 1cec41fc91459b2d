package valueobjects

import (
	"strings"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// Content is a value object for a memory's text. The text is kept exactly as
// provided (it is the input to the content hash); validation only rejects
// empty or whitespace-only input.
type Content struct {
	value string
}

// NewContent creates content with validation.
func NewContent(text string) (Content, error) {
	if strings.TrimSpace(text) == "" {
		return Content{}, pkgerrors.NewInvalidInput("content cannot be empty")
	}
	return Content{value: text}, nil
}

// String returns the content text
func (c Content) String() string {
	return c.value
}

// Hash returns the content's hash identity.
func (c Content) Hash() ContentHash {
	return NewContentHash(c.value)
}

// IsZero checks if the content is the zero value
func (c Content) IsZero() bool {
	return c.value == ""
}

// Equals checks if two contents are equal
func (c Content) Equals(other Content) bool {
	return c.value == other.value
}

// WordCount returns the approximate word count
func (c Content) WordCount() int {
	return len(strings.Fields(c.value))
}
