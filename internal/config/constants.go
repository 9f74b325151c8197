package config

import "time"

// Application constants
const (
	AppName    = "spimex-trading"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces environment variables (SPIMEX_SERVER_PORT, ...)
	EnvPrefix = "SPIMEX"

	// Drivers
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"

	// Page sources
	PageSourceHTTP    = "http"
	PageSourceBrowser = "browser"

	// Startup ingestion modes
	IngestBackground = "background"
	IngestBlocking   = "blocking"
	IngestOff        = "off"

	// Rate Limiting
	DefaultRateLimit      = 100 // requests per second
	DefaultBurstSize      = 50
	DefaultRequestTimeout = 30 * time.Second

	// Cache Settings
	DefaultCacheTTL    = 60 * time.Second
	DefaultDatesKey    = "last_trading_dates"
	DefaultFlushHour   = 14
	DefaultFlushMinute = 11

	// Document archive
	DefaultBaseURL     = "https://spimex.com"
	DefaultIndexURL    = "https://spimex.com/markets/oil_products/trades/results/?page=page-"
	DefaultLastPage    = 64
	DefaultPerPage     = 10
	DefaultMinYear     = 2022
	DefaultPageTimeout = 15 * time.Second
	DefaultStagingDir  = "downloads"
	DefaultUserAgent   = "spimex-trading/1.0"

	// Spreadsheet layout
	DefaultMaxRows = 10000
	HeaderMarkerEN = "Unit of measurement: Metric ton"
	HeaderMarkerRU = "Единица измерения: Метрическая тонна"
	TotalMarkerEN  = "Total:"
	TotalMarkerRU  = "Итого:"
)
