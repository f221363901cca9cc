package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSortedMerge(t *testing.T) {
	remote := []Entry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}}
	stored := []Entry{{Key: "a", Value: "1"}, {Key: "b", Value: "changed"}, {Key: "d", Value: "4"}}

	result := Diff(remote, stored)
	assert.Equal(t, []Entry{{Key: "c", Value: "3"}}, result.Added)
	assert.Equal(t, []Entry{{Key: "d", Value: "4"}}, result.Removed)
	assert.Equal(t, []Entry{{Key: "b", Value: "2"}}, result.Changed)
}

func TestDiffHashJoin(t *testing.T) {
	const n = 128
	remote := make([]Entry, 0, n)
	stored := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		key := string(rune('a' + i%26))
		remote = append(remote, Entry{Key: key + string(rune('0'+i/26)), Value: "v"})
	}
	stored = append(stored, remote[:n-1]...)
	stored = append(stored, Entry{Key: "only-stored", Value: "gone"})

	result := Diff(remote, stored)
	assert.Len(t, result.Added, 1)
	assert.Equal(t, []Entry{{Key: "only-stored", Value: "gone"}}, result.Removed)
	assert.Empty(t, result.Changed)
}

func TestDiffEmptyWhenIdentical(t *testing.T) {
	bag := []Entry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}
	result := Diff(bag, bag)
	assert.True(t, result.Empty())
}

func TestCanonicalizeSortsKeysAndStripsWhitespace(t *testing.T) {
	got, err := Canonicalize(`{"b": 2, "a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, got)
}

func TestSameUpdatedTimestamp(t *testing.T) {
	assert.True(t, SameUpdatedTimestamp("2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"))
	assert.False(t, SameUpdatedTimestamp("", ""))
	assert.False(t, SameUpdatedTimestamp("2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"))
}
