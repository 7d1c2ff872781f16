// Package config loads profilebot settings from an optional YAML file and
// PROFILEBOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/profilebot/internal/archive"
	"github.com/abhisek/profilebot/internal/llm"
)

// EnvPrefix prefixes every environment override: llm.api_key is read from
// PROFILEBOT_LLM_API_KEY.
const EnvPrefix = "PROFILEBOT"

// Config is the full runtime configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Lark    LarkConfig    `mapstructure:"lark"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Scratch ScratchConfig `mapstructure:"scratch"`
	Store   StoreConfig   `mapstructure:"store"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Fonts   FontsConfig   `mapstructure:"fonts"`
	Assets  AssetsConfig  `mapstructure:"assets"`
}

type LLMConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
	// Attempts above 1 enable the retry decorator.
	Attempts int `mapstructure:"attempts"`
}

type ArchiveConfig struct {
	// Kind is lark, local or none.
	Kind string `mapstructure:"kind"`
	// Credentials is a JSON file with the Lark app_id and app_secret.
	Credentials   string        `mapstructure:"credentials"`
	RootFolder    string        `mapstructure:"root_folder"`
	LocalDir      string        `mapstructure:"local_dir"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

type LarkConfig struct {
	AppID       string `mapstructure:"app_id"`
	AppSecret   string `mapstructure:"app_secret"`
	OpenBaseURL string `mapstructure:"open_base_url"`
	WebURL      string `mapstructure:"web_url"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type ScratchConfig struct {
	Dir string `mapstructure:"dir"`
	// Retention is how long work directories of unpublished reports are kept.
	Retention time.Duration `mapstructure:"retention"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type FontsConfig struct {
	Dir string `mapstructure:"dir"`
}

type AssetsConfig struct {
	// Dir replaces the embedded item bank when set.
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.attempts", 1)

	v.SetDefault("archive.kind", "lark")
	v.SetDefault("archive.credentials", "")
	v.SetDefault("archive.root_folder", "")
	v.SetDefault("archive.local_dir", filepath.Join(dataDir(), "archive"))
	v.SetDefault("archive.upload_timeout", 60*time.Second)

	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.open_base_url", "")
	v.SetDefault("lark.web_url", archive.DefaultLarkWebURL)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("scratch.dir", filepath.Join(os.TempDir(), "profilebot"))
	v.SetDefault("scratch.retention", 72*time.Hour)
	v.SetDefault("store.path", "")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.max_sessions", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("fonts.dir", "")
	v.SetDefault("assets.dir", "")
}

// Load reads path when given, otherwise profilebot.yaml from the working
// directory or the user config directory if one exists. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("profilebot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "profilebot"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Archive.Kind {
	case "lark", "local", "none", "":
	default:
		errs = append(errs, fmt.Errorf("archive.kind must be lark, local or none, got %q", c.Archive.Kind))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session.ttl must not be negative"))
	}
	if c.LLM.Timeout < 0 || c.Archive.UploadTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

// ErrLLMOff means narratives come from templates only.
var ErrLLMOff = errors.New("LLM narratives disabled")

// LLMProviderConfig resolves the provider configuration. An explicit key
// wins; without one the standard provider env vars are probed. Missing
// credentials are not fatal: the error wraps ErrLLMOff.
func (c *Config) LLMProviderConfig() (llm.Config, error) {
	l := c.LLM
	if !l.Enabled {
		return llm.Config{}, fmt.Errorf("%w: llm.enabled is false", ErrLLMOff)
	}

	var cfg llm.Config
	if l.APIKey == "" && l.Provider != "mock" {
		found, ok := llm.DiscoverConfig()
		if !ok {
			return llm.Config{}, fmt.Errorf("%w: no API key configured", ErrLLMOff)
		}
		cfg = found
		if l.Provider != "" && l.Provider != cfg.Provider {
			return llm.Config{}, fmt.Errorf("%w: no API key for provider %s", ErrLLMOff, l.Provider)
		}
		if l.Model != "" {
			cfg = cfg.WithCredentials("", l.Model, cfg.APIKey(), l.BaseURL)
		}
	} else {
		provider := l.Provider
		if provider == "" {
			provider = "anthropic"
		}
		cfg = llm.DefaultConfig().WithCredentials(provider, l.Model, l.APIKey, l.BaseURL)
	}

	if l.Timeout > 0 {
		cfg.Timeout = l.Timeout
	}
	if l.Attempts > 0 {
		cfg.Retry.MaxAttempts = l.Attempts
	}
	if err := cfg.Validate(); err != nil {
		return llm.Config{}, fmt.Errorf("%w: %v", ErrLLMOff, err)
	}
	return cfg, nil
}

// LarkCredentials returns the Lark app credentials from the credential file
// or the lark.* keys. ok is false when neither is set.
func (c *Config) LarkCredentials() (archive.Credentials, bool, error) {
	if c.Archive.Credentials != "" {
		creds, err := archive.LoadCredentials(c.Archive.Credentials)
		if err != nil {
			return archive.Credentials{}, false, err
		}
		return creds, true, nil
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret != "" {
		return archive.Credentials{AppID: c.Lark.AppID, AppSecret: c.Lark.AppSecret}, true, nil
	}
	return archive.Credentials{}, false, nil
}

// NewArchive builds the configured archive. Lark without credentials
// degrades to archive.Disabled; disabled reports why.
func (c *Config) NewArchive() (a archive.Archive, disabled string, err error) {
	switch c.Archive.Kind {
	case "local":
		l, err := archive.NewLocal(c.Archive.LocalDir)
		if err != nil {
			return nil, "", err
		}
		return l, "", nil
	case "none", "":
		return archive.Disabled{}, "archive.kind is none", nil
	}

	creds, ok, err := c.LarkCredentials()
	if err != nil {
		return archive.Disabled{}, err.Error(), nil
	}
	if !ok {
		return archive.Disabled{}, "no Lark credentials configured", nil
	}
	d, err := archive.NewLarkDrive(archive.LarkOptions{
		Credentials: creds,
		OpenBaseURL:    c.Lark.OpenBaseURL,
		WebURL:         c.Lark.WebURL,
		RequestTimeout: c.Archive.UploadTimeout,
	})
	if err != nil {
		return nil, "", err
	}
	return d, "", nil
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "profilebot")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "profilebot")
	}
	return "profilebot"
}
