package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fillflow FillflowConfig `yaml:"fillflow"`
	Cache    CacheConfig    `yaml:"cache"`
	Source   SourceConfig   `yaml:"source"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type FillflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type CacheConfig struct {
	// CapacityHours bounds the number of hour buckets kept in memory.
	// The default covers one week.
	CapacityHours int `yaml:"capacity_hours"`
}

type SourceConfig struct {
	// Connection selects the fill source implementation:
	// rest, websocket, binance, parquet or s3.
	Connection string                `yaml:"connection"`
	REST       RESTSourceConfig      `yaml:"rest"`
	Websocket  WebsocketSourceConfig `yaml:"websocket"`
	Binance    BinanceSourceConfig   `yaml:"binance"`
	Parquet    ParquetSourceConfig   `yaml:"parquet"`
	S3         S3SourceConfig        `yaml:"s3"`
}

type RESTSourceConfig struct {
	URL            string               `yaml:"url"`
	Timeout        time.Duration        `yaml:"timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type WebsocketSourceConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

type BinanceSourceConfig struct {
	URL            string               `yaml:"url"`
	Symbol         string               `yaml:"symbol"`
	Limit          int                  `yaml:"limit"`
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ParquetSourceConfig struct {
	Dir string `yaml:"dir"`
}

type S3SourceConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Cache: CacheConfig{CapacityHours: 168},
		Source: SourceConfig{
			Connection: "rest",
			REST: RESTSourceConfig{
				Timeout: 10 * time.Second,
			},
			Binance: BinanceSourceConfig{
				Limit:   1000,
				Timeout: 10 * time.Second,
			},
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Source.Connection == "s3" {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Source.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Source.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Source.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Source.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Source.S3.Bucket = strings.TrimSpace(config.Source.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Fillflow.Name == "" {
		return fmt.Errorf("fillflow.name is required")
	}

	if cfg.Fillflow.Version == "" {
		return fmt.Errorf("fillflow.version is required")
	}

	if cfg.Cache.CapacityHours <= 0 {
		return fmt.Errorf("cache.capacity_hours must be greater than 0")
	}

	switch cfg.Source.Connection {
	case "rest":
		if cfg.Source.REST.URL == "" {
			return fmt.Errorf("source.rest.url is required for the rest connection")
		}
	case "websocket":
		if cfg.Source.Websocket.URL == "" {
			return fmt.Errorf("source.websocket.url is required for the websocket connection")
		}
	case "binance":
		if cfg.Source.Binance.Symbol == "" {
			return fmt.Errorf("source.binance.symbol is required for the binance connection")
		}
		if cfg.Source.Binance.Limit <= 0 {
			return fmt.Errorf("source.binance.limit must be greater than 0")
		}
	case "parquet":
		if cfg.Source.Parquet.Dir == "" {
			return fmt.Errorf("source.parquet.dir is required for the parquet connection")
		}
	case "s3":
		if cfg.Source.S3.Bucket == "" {
			return fmt.Errorf("source.s3.bucket is required for the s3 connection")
		}
		if cfg.Source.S3.Region == "" {
			return fmt.Errorf("source.s3.region is required for the s3 connection")
		}
		if !isValidS3Bucket(cfg.Source.S3.Bucket) {
			return fmt.Errorf("source.s3.bucket '%s' is invalid", cfg.Source.S3.Bucket)
		}
	default:
		return fmt.Errorf("unsupported source.connection '%s'", cfg.Source.Connection)
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
