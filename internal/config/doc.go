// Package config provides configuration management for the trading results service.
// It loads configuration from multiple sources, validates it, and exposes a
// typed Config consumed by the composition root.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//  1. Default values (Default())
//  2. A YAML file: $SPIMEX_CONFIG_FILE, config.yaml or configs/config.yaml
//  3. Environment variables
//
// Only keys present in the file and variables actually set in the environment
// override earlier layers.
//
// # Environment Variables
//
// All environment variables follow the pattern SPIMEX_<SECTION>_<KEY>:
//
//	SPIMEX_SERVER_PORT=8080
//	SPIMEX_DATABASE_DRIVER=postgres
//	SPIMEX_DATABASE_HOST=db
//	SPIMEX_CACHE_DRIVER=redis
//	SPIMEX_CACHE_ADDR=redis:6379
//	SPIMEX_CACHE_TTL=60s
//	SPIMEX_FETCHER_LAST_PAGE=64
//	SPIMEX_PARSER_MAX_ROWS=10000
//	SPIMEX_INGEST_ON_STARTUP=background
//
// List values (allowed origins, parser markers) are comma separated.
//
// # Validation
//
// Load rejects unknown drivers, invalid ports, empty cache keys, out-of-range
// flush times and empty parser markers. The log format is always JSON.
package config
