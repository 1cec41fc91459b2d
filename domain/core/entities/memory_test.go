package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

func TestNewMemory_ComputesHashAndDefaults(t *testing.T) {
	memory, err := NewMemory("remember this", []string{"note", "note", " "})

	require.NoError(t, err)
	assert.Equal(t, int64(0), memory.ID())
	assert.True(t, memory.Hash().Equals(valueobjects.NewContentHash("remember this")))
	assert.Equal(t, []string{"note"}, memory.Tags())
	assert.NotNil(t, memory.Metadata())
	assert.WithinDuration(t, time.Now().UTC(), memory.CreatedAt(), time.Minute)
}

func TestNewMemory_RejectsEmptyContent(t *testing.T) {
	_, err := NewMemory("   ", nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidInput(err))
}

func TestMemory_SetID_OnlyOnce(t *testing.T) {
	memory, err := NewMemory("id test", nil)
	require.NoError(t, err)

	require.NoError(t, memory.SetID(7))
	assert.Equal(t, int64(7), memory.ID())

	assert.Error(t, memory.SetID(8))
	assert.Equal(t, int64(7), memory.ID())
}

func TestMemory_UpdateContent_ChangesHashIdentity(t *testing.T) {
	memory, err := NewMemory("before", nil)
	require.NoError(t, err)
	oldHash := memory.Hash()

	require.NoError(t, memory.UpdateContent("after"))

	assert.Equal(t, "after", memory.Content())
	assert.False(t, memory.Hash().Equals(oldHash))
	assert.True(t, memory.Hash().Equals(valueobjects.NewContentHash("after")))
}

func TestMemory_UpdateContent_RejectsEmpty(t *testing.T) {
	memory, err := NewMemory("keep me", nil)
	require.NoError(t, err)

	assert.Error(t, memory.UpdateContent(" "))
	assert.Equal(t, "keep me", memory.Content())
}

func TestMemory_ReplaceTags_NilMeansKeep(t *testing.T) {
	memory, err := NewMemory("tagged", []string{"a", "b"})
	require.NoError(t, err)

	memory.ReplaceTags(nil)
	assert.Equal(t, []string{"a", "b"}, memory.Tags())

	memory.ReplaceTags([]string{})
	assert.Empty(t, memory.Tags())
}

func TestMemory_HasTag(t *testing.T) {
	memory, err := NewMemory("tagged", []string{"golang"})
	require.NoError(t, err)

	assert.True(t, memory.HasTag("golang"))
	assert.False(t, memory.HasTag("go"))
}

func TestMemory_Metadata_ReturnsCopy(t *testing.T) {
	memory, err := NewMemory("meta", nil)
	require.NoError(t, err)
	memory.SetMetadata(map[string]interface{}{"k": "v"})

	snapshot := memory.Metadata()
	snapshot["k"] = "mutated"

	assert.Equal(t, "v", memory.Metadata()["k"])
}

func TestMemory_SetCreatedAt_NormalizesToUTC(t *testing.T) {
	memory, err := NewMemory("time", nil)
	require.NoError(t, err)

	loc := time.FixedZone("CET", 3600)
	memory.SetCreatedAt(time.Date(2026, 3, 1, 12, 0, 0, 0, loc))

	assert.Equal(t, time.UTC, memory.CreatedAt().Location())
	assert.Equal(t, 11, memory.CreatedAt().Hour())
}

func TestReconstructMemory_PreservesFields(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	memory, err := ReconstructMemory(42, "stored text", []string{"x"}, createdAt, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(42), memory.ID())
	assert.Equal(t, createdAt, memory.CreatedAt())
	assert.NotNil(t, memory.Metadata())
	assert.True(t, memory.Hash().Equals(valueobjects.NewContentHash("stored text")))
}
