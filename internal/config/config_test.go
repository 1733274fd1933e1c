package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/hpm", AppDir())

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	assert.Equal(t, filepath.Join(home, ".config", "hpm"), AppDir())
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	t.Setenv(S2APIKeyEnv, "")
	dir := t.TempDir()

	s, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.AppDir)
	assert.Equal(t, DefaultPageSize, s.PageSize)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.Equal(t, filepath.Join(dir, CacheDir), s.CacheDir)
	assert.ErrorIs(t, s.RequireToken(), ErrNoToken)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(dir, ConfigFile), File{
		Token:    "secret_file",
		S2APIKey: "s2-file",
		PageSize: 25,
		Timeout:  "5s",
		CacheDir: "~/hpm-cache",
	}))

	t.Setenv(TokenEnv, "")
	t.Setenv(S2APIKeyEnv, "s2-env")

	s, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "secret_file", s.Token)
	assert.Equal(t, "s2-env", s.S2APIKey, "environment overrides the file")
	assert.Equal(t, 25, s.PageSize)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.NoError(t, s.RequireToken())

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "hpm-cache"), s.CacheDir)

	t.Setenv(TokenEnv, "secret_env")
	s, err = LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "secret_env", s.Token)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "token: [\n"},
		{"page size", "page_size: 500\n"},
		{"timeout", "timeout: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tt.yaml), 0600))
			_, err := LoadFrom(dir)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWriteFile_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hpm", ConfigFile)
	require.NoError(t, WriteFile(path, File{Token: "secret"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", f.Token)
}

func TestSettingsPaths(t *testing.T) {
	s := Settings{AppDir: "/app", CacheDir: "/app/cache"}
	assert.Equal(t, "/app/config.yml", s.ConfigPath())
	assert.Equal(t, "/app/templates/paper.yml", s.TemplatePath("paper"))
	assert.Equal(t, "/app/cache/engine.db", s.CachePath("engine.db"))
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	assert.Equal(t, filepath.Join(home, "x"), ExpandTilde("~/x"))
	assert.Equal(t, "/abs", ExpandTilde("/abs"))
	assert.Equal(t, "~user/x", ExpandTilde("~user/x"))
}
