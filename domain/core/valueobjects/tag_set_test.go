package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTagSet_NormalizesLabels(t *testing.T) {
	set := NewTagSet([]string{" go ", "db", "go", "", "  "})

	assert.Equal(t, []string{"go", "db"}, set.Values())
	assert.Equal(t, 2, set.Len())
}

func TestNewTagSet_PreservesInsertionOrder(t *testing.T) {
	set := NewTagSet([]string{"zulu", "alpha", "mike"})

	assert.Equal(t, []string{"zulu", "alpha", "mike"}, set.Values())
}

func TestNewTagSet_Empty(t *testing.T) {
	assert.True(t, NewTagSet(nil).IsEmpty())
	assert.True(t, NewTagSet([]string{}).IsEmpty())
	assert.True(t, NewTagSet([]string{"", "  "}).IsEmpty())
}

func TestTagSet_Contains_ExactMatchOnly(t *testing.T) {
	set := NewTagSet([]string{"golang", "database"})

	assert.True(t, set.Contains("golang"))
	assert.False(t, set.Contains("go"))
	assert.False(t, set.Contains("GOLANG"))
}

func TestTagSet_Intersects(t *testing.T) {
	set := NewTagSet([]string{"go", "db"})

	assert.True(t, set.Intersects([]string{"rust", "db"}))
	assert.False(t, set.Intersects([]string{"rust", "zig"}))
	assert.False(t, set.Intersects(nil))
}

func TestTagSet_Values_ReturnsCopy(t *testing.T) {
	set := NewTagSet([]string{"go"})

	values := set.Values()
	values[0] = "mutated"

	assert.Equal(t, []string{"go"}, set.Values())
}

func TestTagSet_Equals(t *testing.T) {
	assert.True(t, NewTagSet([]string{"a", "b"}).Equals(NewTagSet([]string{"a", "b"})))
	assert.False(t, NewTagSet([]string{"a", "b"}).Equals(NewTagSet([]string{"b", "a"})))
	assert.False(t, NewTagSet([]string{"a"}).Equals(NewTagSet([]string{"a", "b"})))
}

func TestTagSet_Joined(t *testing.T) {
	assert.Equal(t, "go db", NewTagSet([]string{"go", "db"}).Joined())
	assert.Equal(t, "", NewTagSet(nil).Joined())
}
