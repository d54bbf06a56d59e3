package id

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndSorted(t *testing.T) {
	ids := make([]string, 500)
	seen := make(map[string]struct{}, len(ids))
	for i := range ids {
		ids[i] = New()
		_, dup := seen[ids[i]]
		require.False(t, dup, "duplicate id %s", ids[i])
		seen[ids[i]] = struct{}{}
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestWithPrefix(t *testing.T) {
	got := WithPrefix("custom")
	assert.True(t, strings.HasPrefix(got, "custom-"))
	assert.Len(t, got, len("custom-")+26)
}

func TestTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	parsed, err := Time(At(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
