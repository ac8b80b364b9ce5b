package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	PlatformRenrenShare  = "RenrenShare"
	PlatformRenrenStatus = "RenrenStatus"

	defaultPlaceholder   = "(default)"
	defaultAuthCallback  = "https://snsapi.ie.cuhk.edu.hk/aux/auth.php"
	renrenLoginSucceeded = "http://graph.renren.com/oauth/login_success.html"
)

// Config is the application's configuration model.
type Config struct {
	Channels []Channel     `yaml:"channels"`
	API      APIConfig     `yaml:"api"`
	Log      LogConfig     `yaml:"log"`
	Storage  StorageConfig `yaml:"storage"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Budget   BudgetConfig  `yaml:"budget"`
	Sync     SyncConfig    `yaml:"sync"`
}

// Channel is one authorized account on one platform.
type Channel struct {
	ChannelName string   `yaml:"channel_name"`
	Open        bool     `yaml:"open"`
	Description string   `yaml:"description,omitempty"`
	Methods     string   `yaml:"methods,omitempty"`
	Platform    string   `yaml:"platform"`
	AppKey      string   `yaml:"app_key"`
	AppSecret   string   `yaml:"app_secret"`
	AuthInfo    AuthInfo `yaml:"auth_info"`
}

type AuthInfo struct {
	CallbackURL   string `yaml:"callback_url"`
	SaveTokenFile string `yaml:"save_token_file,omitempty"`
	CmdRequestURL string `yaml:"cmd_request_url,omitempty"`
	CmdFetchCode  string `yaml:"cmd_fetch_code,omitempty"`
}

type APIConfig struct {
	// Requests per second and burst for the client rate limiter.
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	Timeout time.Duration `yaml:"timeout"`
	// Endpoint overrides, mostly for testing against a local server.
	ServerURL     string `yaml:"serverURL,omitempty"`
	SessionKeyURL string `yaml:"sessionKeyURL,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
	// OutputFile, when set, receives a rotated copy of every log line.
	OutputFile string `yaml:"outputFile,omitempty"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// BudgetConfig caps mutations (update, reply) per hour and per day.
type BudgetConfig struct {
	MaxPerHour int `yaml:"maxPerHour"`
	MaxPerDay  int `yaml:"maxPerDay"`
}

type SyncConfig struct {
	Count    int           `yaml:"count"`
	Interval time.Duration `yaml:"interval"`
}

// NewChannel returns a channel template for platform. full adds the optional
// descriptive fields.
func NewChannel(platform string, full bool) Channel {
	c := Channel{
		ChannelName: "",
		Open:        true,
		Platform:    platform,
		AuthInfo: AuthInfo{
			CallbackURL:   defaultAuthCallback,
			SaveTokenFile: defaultPlaceholder,
			CmdRequestURL: defaultPlaceholder,
			CmdFetchCode:  defaultPlaceholder,
		},
	}
	if full {
		c.Description = "A channel on " + platform
		c.Methods = "home_timeline,update,reply"
	}
	return c
}

// Default returns a sensible default configuration.
func Default() Config {
	share := NewChannel(PlatformRenrenShare, false)
	share.ChannelName = "renren_share"
	status := NewChannel(PlatformRenrenStatus, false)
	status.ChannelName = "renren_status"
	return Config{
		Channels: []Channel{status, share},
		API:      APIConfig{RPS: 2, Burst: 10, Timeout: 15 * time.Second},
		Log:      LogConfig{Level: "info", Format: "json"},
		Storage:  StorageConfig{DBPath: "./snsapi.db"},
		Budget:   BudgetConfig{MaxPerHour: 6, MaxPerDay: 40},
		Sync:     SyncConfig{Count: 20, Interval: 15 * time.Minute},
	}
}

// ResolveEnv overlays environment variables. Credentials and the metrics
// address only fill empty fields; the others override the file.
func (c *Config) ResolveEnv() {
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.AppKey == "" {
			ch.AppKey = os.Getenv("RENREN_APP_KEY")
		}
		if ch.AppSecret == "" {
			ch.AppSecret = os.Getenv("RENREN_APP_SECRET")
		}
	}
	if v := os.Getenv("SNSAPI_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("SNSAPI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
	if v := os.Getenv("SNSAPI_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.API.RPS = f
		}
	}
	if v := os.Getenv("SNSAPI_API_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.API.Burst = n
		}
	}
}

// applyDefaults fills what a hand-written file may leave out.
func (c *Config) applyDefaults() {
	d := Default()
	for i := range c.Channels {
		if c.Channels[i].AuthInfo.CallbackURL == "" {
			c.Channels[i].AuthInfo.CallbackURL = renrenLoginSucceeded
		}
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = d.Storage.DBPath
	}
	if c.API.RPS <= 0 {
		c.API.RPS = d.API.RPS
	}
	if c.API.Burst <= 0 {
		c.API.Burst = d.API.Burst
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Sync.Count <= 0 {
		c.Sync.Count = d.Sync.Count
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = d.Sync.Interval
	}
}

// Validate checks channel names and platforms.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, ch := range c.Channels {
		if ch.ChannelName == "" {
			return errors.New("channel_name is required")
		}
		if seen[ch.ChannelName] {
			return fmt.Errorf("duplicate channel %q", ch.ChannelName)
		}
		seen[ch.ChannelName] = true
		switch ch.Platform {
		case PlatformRenrenShare, PlatformRenrenStatus:
		default:
			return fmt.Errorf("channel %q: unsupported platform %q", ch.ChannelName, ch.Platform)
		}
	}
	return nil
}

// Channel returns the named channel, or the first open one when name is empty.
func (c *Config) Channel(name string) (Channel, error) {
	for _, ch := range c.Channels {
		if name == "" && ch.Open {
			return ch, nil
		}
		if name != "" && ch.ChannelName == name {
			return ch, nil
		}
	}
	if name == "" {
		return Channel{}, errors.New("no open channel configured")
	}
	return Channel{}, fmt.Errorf("channel %q not found", name)
}

// Load reads YAML config from path. A .env file in the working directory is
// loaded first so credentials can stay out of the YAML.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ResolveEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
