package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docqa", "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")

	store, err := NewConfigStore(nested)

	require.NoError(t, err)
	assert.DirExists(t, nested)
	assert.Equal(t, filepath.Join(nested, "config.toml"), store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("llm.model", "gpt-4.1-mini"))
	require.NoError(t, store.Set("retrieval.top_k", 8))
	require.NoError(t, store.Set("retrieval.use_rerank", true))
	require.NoError(t, store.Set("llm.temperature", 0.4))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("llm.model"), "gpt-4.1-mini"},
		{"string wrong type", store.GetString("retrieval.top_k"), ""},
		{"string missing", store.GetString("nope"), ""},
		{"int", store.GetInt("retrieval.top_k"), 8},
		{"int wrong type", store.GetInt("llm.model"), 0},
		{"int missing", store.GetInt("nope"), 0},
		{"bool", store.GetBool("retrieval.use_rerank"), true},
		{"bool wrong type", store.GetBool("llm.model"), false},
		{"float", store.GetFloat("llm.temperature"), 0.4},
		{"float widens int", store.GetFloat("retrieval.top_k"), 8.0},
		{"float wrong type", store.GetFloat("llm.model"), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t)

	val, ok := store.Get("missing")

	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_LoadFlattensTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[retrieval]
top_k = 7
use_rerank = false

[llm]
provider = "anthropic"
temperature = 0.1

[metrics]
cost_per_1k_input = 0.0002
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 7, store.GetInt("retrieval.top_k"))
	_, ok := store.Get("retrieval.use_rerank")
	assert.True(t, ok)
	assert.False(t, store.GetBool("retrieval.use_rerank"))
	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.InDelta(t, 0.1, store.GetFloat("llm.temperature"), 1e-12)
	assert.InDelta(t, 0.0002, store.GetFloat("metrics.cost_per_1k_input"), 1e-12)
}

func TestConfigStore_SaveWritesTables(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("retrieval.top_k", 9))
	require.NoError(t, store.Set("server.addr", ":9000"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[retrieval]")
	assert.Contains(t, string(data), "[server]")
	assert.NotContains(t, string(data), `"retrieval.top_k"`)
}

func TestConfigStore_SaveReload_PreservesData(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("chunking.chunk_size", 300))
	require.NoError(t, store.Set("llm.temperature", 0.3))
	require.NoError(t, store.Set("retrieval.use_rerank", false))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", reloaded.GetString("embedding.provider"))
	assert.Equal(t, 300, reloaded.GetInt("chunking.chunk_size"))
	assert.InDelta(t, 0.3, reloaded.GetFloat("llm.temperature"), 1e-12)
	assert.False(t, reloaded.GetBool("retrieval.use_rerank"))
}

func TestConfigStore_Load_NonExistent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Load())
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[[[ not toml"), 0600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes differ on windows")
	}
	store := newTestStore(t)
	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, store.Set("retrieval.top_k", n))
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("retrieval.top_k")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
		"e.f":   2,
	})

	a, ok := nested["a"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", a["d"])
	b, ok := a["b"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, b["c"])
	assert.Equal(t, true, nested["e"])

	// Flattening the nested form gives back the original keys.
	flat := flattenMap(map[string]any{"a": a}, "")
	assert.Equal(t, 1, flat["a.b.c"])
	assert.Equal(t, "x", flat["a.d"])
}
