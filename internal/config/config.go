package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. CRISK_ANNOTATE_HIGHLIGHT_MODE
const EnvPrefix = "CRISK_ANNOTATE"

// Config holds all configuration settings
type Config struct {
	// Annotation policy
	Highlight HighlightConfig `mapstructure:"highlight" yaml:"highlight"`

	// Revision history provider
	Git GitConfig `mapstructure:"git" yaml:"git"`

	// Marker storage
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Annotation cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Terminal display
	Display DisplayConfig `mapstructure:"display" yaml:"display"`

	// Logging
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Watch mode
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`

	// Files annotated concurrently by batch commands
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=1,lte=64"`
}

type HighlightConfig struct {
	Mode          string        `mapstructure:"mode" yaml:"mode" validate:"highlight_mode"`
	Window        time.Duration `mapstructure:"window" yaml:"window" validate:"gte=0"`
	IgnoreAuthors []string      `mapstructure:"ignore_authors" yaml:"ignore_authors"`
	IgnoreSelf    bool          `mapstructure:"ignore_self" yaml:"ignore_self"`
}

type GitConfig struct {
	Binary    string        `mapstructure:"binary" yaml:"binary" validate:"required"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"` // blame calls per second, 0 = unlimited
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

type StorageConfig struct {
	Type        string `mapstructure:"type" yaml:"type" validate:"oneof=sqlite postgres memory"`
	LocalPath   string `mapstructure:"local_path" yaml:"local_path" validate:"required_if=Type sqlite"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn" validate:"required_if=Type postgres"`
}

type CacheConfig struct {
	Type      string        `mapstructure:"type" yaml:"type" validate:"oneof=memory bolt redis"`
	Directory string        `mapstructure:"directory" yaml:"directory" validate:"required_if=Type bolt"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	Redis     RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Password    string `mapstructure:"password" yaml:"password,omitempty"`
	UseKeychain bool   `mapstructure:"use_keychain" yaml:"use_keychain"`
}

type DisplayConfig struct {
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=table json csv"`
	Color  string `mapstructure:"color" yaml:"color" validate:"oneof=auto always never"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" validate:"gte=0"`
	Exclude  []string      `mapstructure:"exclude" yaml:"exclude"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".crisk-annotate")
	return &Config{
		Highlight: HighlightConfig{
			Mode:       "top5",
			Window:     14 * 24 * time.Hour,
			IgnoreSelf: true,
		},
		Git: GitConfig{
			Binary:    "git",
			RateLimit: 10,
			Timeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(base, "markers.db"),
		},
		Cache: CacheConfig{
			Type:      "bolt",
			Directory: filepath.Join(base, "cache"),
			TTL:       24 * time.Hour,
			Redis: RedisConfig{
				Host: "localhost",
				Port: 6379,
			},
		},
		Display: DisplayConfig{
			Format: "table",
			Color:  "auto",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
			Exclude:  []string{".git", "node_modules", "vendor"},
		},
		Workers: 4,
	}
}

// Load loads configuration from file, .env files and the environment
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".crisk-annotate")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".crisk-annotate"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyKeychain(cfg)

	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("highlight.mode", cfg.Highlight.Mode)
	v.SetDefault("highlight.window", cfg.Highlight.Window)
	v.SetDefault("highlight.ignore_authors", cfg.Highlight.IgnoreAuthors)
	v.SetDefault("highlight.ignore_self", cfg.Highlight.IgnoreSelf)
	v.SetDefault("git.binary", cfg.Git.Binary)
	v.SetDefault("git.rate_limit", cfg.Git.RateLimit)
	v.SetDefault("git.timeout", cfg.Git.Timeout)
	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.local_path", cfg.Storage.LocalPath)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("cache.type", cfg.Cache.Type)
	v.SetDefault("cache.directory", cfg.Cache.Directory)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.redis.host", cfg.Cache.Redis.Host)
	v.SetDefault("cache.redis.port", cfg.Cache.Redis.Port)
	v.SetDefault("cache.redis.password", cfg.Cache.Redis.Password)
	v.SetDefault("cache.redis.use_keychain", cfg.Cache.Redis.UseKeychain)
	v.SetDefault("display.format", cfg.Display.Format)
	v.SetDefault("display.color", cfg.Display.Color)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("watch.debounce", cfg.Watch.Debounce)
	v.SetDefault("watch.exclude", cfg.Watch.Exclude)
	v.SetDefault("workers", cfg.Workers)
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			// godotenv never overrides variables that are already set
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".crisk-annotate", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyKeychain fills the redis password from the OS keychain when asked to.
// Precedence: 1. env / config file 2. keychain
func applyKeychain(cfg *Config) {
	if !cfg.Cache.Redis.UseKeychain || cfg.Cache.Redis.Password != "" {
		return
	}
	km := NewKeyringManager()
	if !km.IsAvailable() {
		return
	}
	if password, err := km.GetRedisPassword(); err == nil && password != "" {
		cfg.Cache.Redis.Password = password
	}
}

// Save writes the configuration as YAML, omitting secrets stored in the keychain
func (c *Config) Save(path string) error {
	out := *c
	if out.Cache.Redis.UseKeychain {
		out.Cache.Redis.Password = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
