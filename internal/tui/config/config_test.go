package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:8000", cfg.Server.BaseURL)
	assert.Equal(t, "sqlite", cfg.Queue.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadComputesScheme(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "localhost stays plain http",
			yaml: "server:\n  host: localhost\n  port: 8000\n  base_url: \"\"\n",
			want: "http://localhost:8000",
		},
		{
			name: "public host gets https",
			yaml: "server:\n  host: shop.example.com\n  port: 443\n  base_url: \"\"\n",
			want: "https://shop.example.com:443",
		},
		{
			name: "explicit base_url wins",
			yaml: "server:\n  host: shop.example.com\n  port: 443\n  base_url: http://10.0.0.5:9000\n",
			want: "http://10.0.0.5:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Server.BaseURL)
		})
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shopchat.yaml")

	cfg := Default()
	cfg.Queue.Backend = "memory"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", loaded.Queue.Backend)
	assert.Equal(t, cfg.Server.BaseURL, loaded.Server.BaseURL)
}
