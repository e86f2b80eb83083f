package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

func TestFileCacheSetGet(t *testing.T) {
	fc := NewFileCache[record](filepath.Join(t.TempDir(), "manifest"))
	key := fc.GenerateKey("product", 42)

	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, fc.Set(key, record{Path: "/tmp/a.zip", Size: 10}))
	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, record{Path: "/tmp/a.zip", Size: 10}, got)

	require.NoError(t, fc.Delete(key))
	_, ok = fc.Get(key)
	assert.False(t, ok)
	assert.NoError(t, fc.Delete(key))
}

func TestFileCacheRejectsTamperedEntry(t *testing.T) {
	fc := NewFileCache[record](t.TempDir())
	key := fc.GenerateKey("id")
	require.NoError(t, fc.Set(key, record{Path: "a", Size: 1}))

	file := filepath.Join(fc.Dir(), key+".json")
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"size":1`)
	tampered := strings.Replace(string(raw), `"size":1`, `"size":2`, 1)
	require.NoError(t, os.WriteFile(file, []byte(tampered), 0o644))

	_, ok := fc.Get(key)
	assert.False(t, ok)
}

func TestGenerateKeyIsDeterministic(t *testing.T) {
	fc := NewFileCache[record](t.TempDir())
	assert.Equal(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 1))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
}
