package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Fetcher   FetcherConfig   `yaml:"fetcher" envconfig:"FETCHER"`
	Parser    ParserConfig    `yaml:"parser" envconfig:"PARSER"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DatabaseConfig contains storage configuration
type DatabaseConfig struct {
	Driver         string        `yaml:"driver" envconfig:"DRIVER"`
	Host           string        `yaml:"host" envconfig:"HOST"`
	Port           int           `yaml:"port" envconfig:"PORT"`
	User           string        `yaml:"user" envconfig:"USER"`
	Password       string        `yaml:"password" envconfig:"PASSWORD"`
	Name           string        `yaml:"name" envconfig:"NAME"`
	SSLMode        string        `yaml:"sslmode" envconfig:"SSLMODE"`
	MinConns       int32         `yaml:"min_conns" envconfig:"MIN_CONNS"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"MAX_CONNS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
	AutoMigrate    bool          `yaml:"auto_migrate" envconfig:"AUTO_MIGRATE"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	Driver       string        `yaml:"driver" envconfig:"DRIVER"`
	Addr         string        `yaml:"addr" envconfig:"ADDR"`
	Password     string        `yaml:"password" envconfig:"PASSWORD"`
	DB           int           `yaml:"db" envconfig:"DB"`
	TTL          time.Duration `yaml:"ttl" envconfig:"TTL"`
	DatesKey     string        `yaml:"dates_key" envconfig:"DATES_KEY"`
	FlushEnabled bool          `yaml:"flush_enabled" envconfig:"FLUSH_ENABLED"`
	FlushHour    int           `yaml:"flush_hour" envconfig:"FLUSH_HOUR"`
	FlushMinute  int           `yaml:"flush_minute" envconfig:"FLUSH_MINUTE"`
}

// FetcherConfig contains document archive configuration
type FetcherConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL"`
	IndexURL        string        `yaml:"index_url" envconfig:"INDEX_URL"`
	FirstPage       int           `yaml:"first_page" envconfig:"FIRST_PAGE"`
	LastPage        int           `yaml:"last_page" envconfig:"LAST_PAGE"`
	PerPage         int           `yaml:"per_page" envconfig:"PER_PAGE"`
	MinYear         int           `yaml:"min_year" envconfig:"MIN_YEAR"`
	PageTimeout     time.Duration `yaml:"page_timeout" envconfig:"PAGE_TIMEOUT"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT"`
	DownloadRPS     float64       `yaml:"download_rps" envconfig:"DOWNLOAD_RPS"`
	StagingDir      string        `yaml:"staging_dir" envconfig:"STAGING_DIR"`
	PageSource      string        `yaml:"page_source" envconfig:"PAGE_SOURCE"`
	UserAgent       string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// ParserConfig contains spreadsheet parser configuration
type ParserConfig struct {
	Workers       int      `yaml:"workers" envconfig:"WORKERS"`
	MaxRows       int      `yaml:"max_rows" envconfig:"MAX_ROWS"`
	HeaderMarkers []string `yaml:"header_markers" envconfig:"HEADER_MARKERS"`
	TotalMarkers  []string `yaml:"total_markers" envconfig:"TOTAL_MARKERS"`
}

// IngestConfig controls the startup ingestion run
type IngestConfig struct {
	OnStartup string `yaml:"on_startup" envconfig:"ON_STARTUP"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, an optional YAML file and
// SPIMEX_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the keys present in a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for driver %q", c.Database.Driver)
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("database max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case DriverRedis:
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache addr is required for driver %q", c.Cache.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported cache driver: %q", c.Cache.Driver)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Cache.DatesKey == "" {
		return fmt.Errorf("cache dates_key must not be empty")
	}
	if c.Cache.FlushHour < 0 || c.Cache.FlushHour > 23 {
		return fmt.Errorf("invalid cache flush_hour: %d", c.Cache.FlushHour)
	}
	if c.Cache.FlushMinute < 0 || c.Cache.FlushMinute > 59 {
		return fmt.Errorf("invalid cache flush_minute: %d", c.Cache.FlushMinute)
	}

	if c.Fetcher.FirstPage < 1 || c.Fetcher.LastPage < c.Fetcher.FirstPage {
		return fmt.Errorf("invalid fetcher page range: %d..%d", c.Fetcher.FirstPage, c.Fetcher.LastPage)
	}
	if c.Fetcher.PerPage < 1 {
		return fmt.Errorf("fetcher per_page must be positive")
	}
	if c.Fetcher.PageTimeout <= 0 {
		return fmt.Errorf("fetcher page timeout must be positive")
	}
	switch c.Fetcher.PageSource {
	case PageSourceHTTP, PageSourceBrowser:
	default:
		return fmt.Errorf("unsupported fetcher page_source: %q", c.Fetcher.PageSource)
	}

	if c.Parser.MaxRows < 1 {
		return fmt.Errorf("parser max_rows must be positive")
	}
	if len(c.Parser.HeaderMarkers) == 0 || len(c.Parser.TotalMarkers) == 0 {
		return fmt.Errorf("parser header and total markers must not be empty")
	}

	switch c.Ingest.OnStartup {
	case IngestBackground, IngestBlocking, IngestOff:
	default:
		return fmt.Errorf("unsupported ingest on_startup mode: %q", c.Ingest.OnStartup)
	}

	c.Logging.Format = "json"
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/spimex.log",
		},
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "spimex",
			SSLMode:        "prefer",
			MinConns:       1,
			MaxConns:       10,
			ConnectTimeout: 10 * time.Second,
			AutoMigrate:    true,
		},
		Cache: CacheConfig{
			Driver:       DriverRedis,
			Addr:         "localhost:6379",
			TTL:          DefaultCacheTTL,
			DatesKey:     DefaultDatesKey,
			FlushEnabled: true,
			FlushHour:    DefaultFlushHour,
			FlushMinute:  DefaultFlushMinute,
		},
		Fetcher: FetcherConfig{
			BaseURL:     DefaultBaseURL,
			IndexURL:    DefaultIndexURL,
			FirstPage:   1,
			LastPage:    DefaultLastPage,
			PerPage:     DefaultPerPage,
			MinYear:     DefaultMinYear,
			PageTimeout: DefaultPageTimeout,
			StagingDir:  DefaultStagingDir,
			PageSource:  PageSourceHTTP,
			UserAgent:   DefaultUserAgent,
		},
		Parser: ParserConfig{
			MaxRows:       DefaultMaxRows,
			HeaderMarkers: []string{HeaderMarkerEN, HeaderMarkerRU},
			TotalMarkers:  []string{TotalMarkerEN, TotalMarkerRU},
		},
		Ingest: IngestConfig{
			OnStartup: IngestBackground,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricsEnabled: true,
			SampleRatio:    1.0,
		},
	}
}
