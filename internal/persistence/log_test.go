package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLog(t *testing.T) *Log {
	dir := t.TempDir()
	return NewLog(filepath.Join(dir, "flush_data.txt"))
}

func TestRewriteAndScan(t *testing.T) {
	l := tempLog(t)
	snapshot := []Record{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
	}

	require.NoError(t, l.Rewrite(snapshot))

	cur, err := l.Scan()
	require.NoError(t, err)
	defer cur.Close()

	var got []Record
	for {
		rec, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, rec)
	}
	assert.Equal(t, snapshot, got)
}

func TestLookup(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Rewrite([]Record{{Key: "foo", Value: "bar"}}))

	value, ok, err := l.Lookup("foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", value)

	_, ok, err = l.Lookup("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanOnMissingFile(t *testing.T) {
	l := tempLog(t)

	cur, err := l.Scan()
	require.NoError(t, err)
	_, ok, err := cur.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestIdempotentFlush covers spec property 6: two consecutive Rewrites
// with no mutation in between must produce byte-identical files.
func TestIdempotentFlush(t *testing.T) {
	l := tempLog(t)
	snapshot := []Record{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}

	require.NoError(t, l.Rewrite(snapshot))
	first, err := os.ReadFile(l.path)
	require.NoError(t, err)

	require.NoError(t, l.Rewrite(snapshot))
	second, err := os.ReadFile(l.path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRemove(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Rewrite([]Record{{Key: "a", Value: "1"}}))

	require.NoError(t, l.Remove())
	_, err := os.Stat(l.path)
	assert.True(t, os.IsNotExist(err))

	// Removing an already-absent file is not an error.
	assert.NoError(t, l.Remove())
}

func TestEscapedKeysAndValuesRoundTrip(t *testing.T) {
	l := tempLog(t)
	snapshot := []Record{
		{Key: "has\ttab", Value: "has\nnewline"},
		{Key: `back\slash`, Value: "plain"},
	}
	require.NoError(t, l.Rewrite(snapshot))

	cur, err := l.Scan()
	require.NoError(t, err)
	defer cur.Close()

	var got []Record
	for {
		rec, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, rec)
	}
	assert.Equal(t, snapshot, got)
}
