package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment override,
// e.g. INBOXDESK_BACKEND_MAIL_URL.
const envPrefix = "INBOXDESK"

// BackendConfig locates the two backend services.
type BackendConfig struct {
	// MailURL is the root URL of the mail/drafting backend.
	MailURL string `mapstructure:"mail_url" yaml:"mail_url"`

	// ChatURL is the root URL of the knowledge-base chat backend.
	ChatURL string `mapstructure:"chat_url" yaml:"chat_url"`

	// TimeoutSec bounds a single backend request. Drafting and chat go
	// through a local LLM, so the default is generous.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// UserConfig holds details about the person using the dashboard.
type UserConfig struct {
	// Name is passed to the drafting endpoint so replies are signed
	// in the user's voice.
	Name string `mapstructure:"name" yaml:"name"`
}

// InboxConfig controls which folder is listed and how often.
type InboxConfig struct {
	Folder             string `mapstructure:"folder" yaml:"folder"`
	RefreshIntervalSec int    `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// ReplyConfig holds reply dialog preferences.
type ReplyConfig struct {
	CloseDelayMS int `mapstructure:"close_delay_ms" yaml:"close_delay_ms"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	User    UserConfig    `mapstructure:"user" yaml:"user"`
	Inbox   InboxConfig   `mapstructure:"inbox" yaml:"inbox"`
	Reply   ReplyConfig   `mapstructure:"reply" yaml:"reply"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// Timeout returns the backend request timeout as a duration.
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

// RefreshInterval returns the inbox polling interval. Zero disables polling.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Inbox.RefreshIntervalSec) * time.Second
}

// CloseDelay returns how long the reply dialog stays open after a send.
func (c *AppConfig) CloseDelay() time.Duration {
	return time.Duration(c.Reply.CloseDelayMS) * time.Millisecond
}

// Validate reports configuration that would make the dashboard unusable.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Backend.MailURL) == "" {
		return fmt.Errorf("backend.mail_url is required")
	}
	if strings.TrimSpace(c.Backend.ChatURL) == "" {
		return fmt.Errorf("backend.chat_url is required")
	}
	if c.Backend.TimeoutSec <= 0 {
		return fmt.Errorf("backend.timeout_sec must be positive, got %d", c.Backend.TimeoutSec)
	}
	if c.Inbox.RefreshIntervalSec < 0 {
		return fmt.Errorf("inbox.refresh_interval_sec must not be negative")
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DefaultConfigPath returns ~/.config/inboxdesk/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxdesk", "config.yaml")
}

// DefaultLogPath returns ~/.config/inboxdesk/inboxdesk.log.
func DefaultLogPath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "inboxdesk.log")
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			MailURL:    "http://localhost:5000",
			ChatURL:    "http://localhost:5001",
			TimeoutSec: 180,
		},
		User: UserConfig{
			Name: "Me",
		},
		Inbox: InboxConfig{
			Folder: "inbox",
		},
		Reply: ReplyConfig{
			CloseDelayMS: 1500,
		},
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogPath(),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("backend.mail_url", d.Backend.MailURL)
	v.SetDefault("backend.chat_url", d.Backend.ChatURL)
	v.SetDefault("backend.timeout_sec", d.Backend.TimeoutSec)
	v.SetDefault("user.name", d.User.Name)
	v.SetDefault("inbox.folder", d.Inbox.Folder)
	v.SetDefault("inbox.refresh_interval_sec", d.Inbox.RefreshIntervalSec)
	v.SetDefault("reply.close_delay_ms", d.Reply.CloseDelayMS)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Exists reports whether a configuration file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads configuration from the YAML file at path. A .env file in the
// working directory is loaded first so INBOXDESK_* variables defined there
// act as overrides. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Backend.MailURL = strings.TrimRight(cfg.Backend.MailURL, "/")
	cfg.Backend.ChatURL = strings.TrimRight(cfg.Backend.ChatURL, "/")
	if strings.TrimSpace(cfg.Inbox.Folder) == "" {
		cfg.Inbox.Folder = "inbox"
	}

	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories if needed.
func Save(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", map[string]any{
		"mail_url":    cfg.Backend.MailURL,
		"chat_url":    cfg.Backend.ChatURL,
		"timeout_sec": cfg.Backend.TimeoutSec,
	})
	v.Set("user", map[string]any{"name": cfg.User.Name})
	v.Set("inbox", map[string]any{
		"folder":               cfg.Inbox.Folder,
		"refresh_interval_sec": cfg.Inbox.RefreshIntervalSec,
	})
	v.Set("reply", map[string]any{"close_delay_ms": cfg.Reply.CloseDelayMS})
	v.Set("log", map[string]any{"level": cfg.Log.Level, "file": cfg.Log.File})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
