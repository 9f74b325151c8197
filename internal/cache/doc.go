// Package cache holds short-lived query results.
//
// A Cache stores lists of ISO trading dates under string keys with a TTL.
// RedisCache is the production backend; MemoryCache serves single-process
// deployments and tests. Scheduler empties the cache once a day at a fixed
// wall-clock time so results published after the exchange closes are seen.
package cache
