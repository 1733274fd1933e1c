// Package config loads hpm settings from the app directory and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the directory name under XDG_CONFIG_HOME.
	AppName = "hpm"
	// ConfigFile is the settings file name inside the app directory.
	ConfigFile = "config.yml"
	// TemplateDir is the template directory name inside the app directory.
	TemplateDir = "templates"
	// CacheDir is the default cache directory name inside the app directory.
	CacheDir = "cache"

	// TokenEnv overrides the configured Notion integration token.
	TokenEnv = "NOTION_TOKEN"
	// S2APIKeyEnv overrides the configured Semantic Scholar API key.
	S2APIKeyEnv = "S2_API_KEY"

	DefaultPageSize = 100
	DefaultTimeout  = 30 * time.Second
)

var (
	// ErrNoToken indicates no Notion integration token is configured.
	ErrNoToken = errors.New("no Notion integration token configured")

	// ErrInvalidConfig indicates a settings file that cannot be used.
	ErrInvalidConfig = errors.New("invalid config")
)

// File is the on-disk form of config.yml.
type File struct {
	Token    string `yaml:"token,omitempty"`
	S2APIKey string `yaml:"s2_api_key,omitempty"`
	PageSize int    `yaml:"page_size,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// Settings is the resolved configuration. It is loaded once at start-up and
// passed by value; nothing in it changes afterwards.
type Settings struct {
	AppDir   string
	Token    string
	S2APIKey string
	PageSize int
	Timeout  time.Duration
	CacheDir string
}

// AppDir returns the app directory. Respects XDG_CONFIG_HOME, defaults to
// ~/.config/hpm.
func AppDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName)
}

// ConfigPath returns the path of config.yml in the app directory.
func (s Settings) ConfigPath() string {
	return filepath.Join(s.AppDir, ConfigFile)
}

// TemplatePath returns the path of the named template.
func (s Settings) TemplatePath(name string) string {
	return filepath.Join(s.AppDir, TemplateDir, name+".yml")
}

// CachePath returns the path of the engine result cache database.
func (s Settings) CachePath(file string) string {
	return filepath.Join(s.CacheDir, file)
}

// RequireToken returns ErrNoToken when no token is configured.
func (s Settings) RequireToken() error {
	if s.Token == "" {
		return fmt.Errorf("%w: run `hpm init` or set %s", ErrNoToken, TokenEnv)
	}
	return nil
}

// Load resolves settings from config.yml in the app directory, then from
// the environment. A missing file yields defaults, not an error.
func Load() (Settings, error) {
	return LoadFrom(AppDir())
}

// LoadFrom resolves settings with appDir as the app directory.
func LoadFrom(appDir string) (Settings, error) {
	s := Settings{
		AppDir:   appDir,
		PageSize: DefaultPageSize,
		Timeout:  DefaultTimeout,
		CacheDir: filepath.Join(appDir, CacheDir),
	}

	f, err := ReadFile(s.ConfigPath())
	if err != nil {
		return Settings{}, err
	}

	s.Token = f.Token
	s.S2APIKey = f.S2APIKey
	if f.PageSize != 0 {
		if f.PageSize < 1 || f.PageSize > 100 {
			return Settings{}, fmt.Errorf("%w: page_size %d outside 1..100", ErrInvalidConfig, f.PageSize)
		}
		s.PageSize = f.PageSize
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil || d <= 0 {
			return Settings{}, fmt.Errorf("%w: timeout %q", ErrInvalidConfig, f.Timeout)
		}
		s.Timeout = d
	}
	if f.CacheDir != "" {
		s.CacheDir = ExpandTilde(f.CacheDir)
	}

	s.Token = GetConfigValue(TokenEnv, s.Token)
	s.S2APIKey = GetConfigValue(S2APIKeyEnv, s.S2APIKey)
	return s, nil
}

// ReadFile reads config.yml. A missing file yields an empty File.
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return f, nil
}

// WriteFile writes config.yml, readable only by the owner since it holds
// the integration token.
func WriteFile(path string, f File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating app directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// GetConfigValue returns the environment variable if set, else fallback.
func GetConfigValue(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// ExpandTilde replaces a leading ~ with the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
