package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Embed    EmbedConfig    `yaml:"embed"`
	Blog     BlogConfig     `yaml:"blog"`
	Render   RenderConfig   `yaml:"render"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Sync     SyncConfig     `yaml:"sync"`
	LogLevel string         `yaml:"log_level"`
}

type FeedConfig struct {
	BaseURL       string        `yaml:"base_url"`
	UserID        string        `yaml:"user_id"`
	Collection    string        `yaml:"collection"`
	PageSize      int           `yaml:"page_size"`
	Timeout       time.Duration `yaml:"timeout"`
	ClientSecrets string        `yaml:"client_secrets"`
	TokenFile     string        `yaml:"token_file"`
	Scopes        []string      `yaml:"scopes"`
}

type EmbedConfig struct {
	Timeout   time.Duration    `yaml:"timeout"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig describes one oEmbed provider and the URL schemes it serves.
type EndpointConfig struct {
	URL     string   `yaml:"url"`
	Schemes []string `yaml:"schemes"`
	Key     string   `yaml:"key"`
}

type BlogConfig struct {
	XMLRPCURL       string        `yaml:"xmlrpc_url"`
	BlogID          int           `yaml:"blog_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	PageSize        int           `yaml:"page_size"`
	ActivityIDField string        `yaml:"activity_id_field"`
	Timeout         time.Duration `yaml:"timeout"`
}

type RenderConfig struct {
	IncludeLocation bool `yaml:"include_location"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Enabled reports whether the run ledger is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type SyncConfig struct {
	Interval          time.Duration `yaml:"interval"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxPagesPerSync   int           `yaml:"max_pages_per_sync"`
	MaxHistoricalDays int           `yaml:"max_historical_days"`
	MirrorComments    bool          `yaml:"mirror_comments"`
	DryRun            bool          `yaml:"dry_run"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Config{Sync: SyncConfig{MirrorComments: true}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://www.googleapis.com/plus/v1"
	}
	if c.Feed.UserID == "" {
		c.Feed.UserID = "me"
	}
	if c.Feed.Collection == "" {
		c.Feed.Collection = "public"
	}
	if c.Feed.PageSize == 0 {
		c.Feed.PageSize = 20
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Feed.ClientSecrets == "" {
		c.Feed.ClientSecrets = "client_secrets.json"
	}
	if c.Feed.TokenFile == "" {
		c.Feed.TokenFile = "plus.dat"
	}
	if len(c.Feed.Scopes) == 0 {
		c.Feed.Scopes = []string{"https://www.googleapis.com/auth/plus.me"}
	}
	if c.Embed.Timeout == 0 {
		c.Embed.Timeout = 15 * time.Second
	}
	if len(c.Embed.Endpoints) == 0 {
		c.Embed.Endpoints = []EndpointConfig{
			{
				URL: "http://picasaweb-oembed.appspot.com/oembed",
				Schemes: []string{
					"http://picasaweb.google.com/*",
					"https://picasaweb.google.com/*",
					"http://plus.google.com/photos/*",
					"https://plus.google.com/photos/*",
				},
			},
			{
				URL:     "http://api.embed.ly/1/oembed",
				Schemes: []string{"http://*", "https://*"},
				Key:     os.Getenv("EMBEDLY_KEY"),
			},
		}
	}
	if c.Blog.BlogID == 0 {
		c.Blog.BlogID = 1
	}
	if c.Blog.PageSize == 0 {
		c.Blog.PageSize = 100
	}
	if c.Blog.ActivityIDField == "" {
		c.Blog.ActivityIDField = "google_plus_activity_id"
	}
	if c.Blog.Timeout == 0 {
		c.Blog.Timeout = 30 * time.Second
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "pluspress"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "posts"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "blog_posts"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.Blog.XMLRPCURL == "" {
		return fmt.Errorf("blog.xmlrpc_url is required")
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must not be negative")
	}
	if c.Sync.Timeout < 0 {
		return fmt.Errorf("sync.timeout must not be negative")
	}
	return nil
}
