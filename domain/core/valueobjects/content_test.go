package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

func TestNewContent_RejectsEmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tabs and newlines", "\t\n \r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContent(tt.input)

			require.Error(t, err)
			assert.True(t, pkgerrors.IsInvalidInput(err))
		})
	}
}

func TestNewContent_PreservesTextVerbatim(t *testing.T) {
	content, err := NewContent("  leading and trailing kept  ")

	require.NoError(t, err)
	assert.Equal(t, "  leading and trailing kept  ", content.String())
}

func TestContent_HashMatchesStandaloneHash(t *testing.T) {
	content, err := NewContent("hash parity")
	require.NoError(t, err)

	assert.True(t, content.Hash().Equals(NewContentHash("hash parity")))
}

func TestContent_WordCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"one", 1},
		{"two words", 2},
		{"  spread \t across\nlines ", 3},
	}

	for _, tt := range tests {
		content, err := NewContent(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, content.WordCount())
	}
}
