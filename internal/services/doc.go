// Package services holds the application logic between the HTTP transport
// and the storage, cache and ingestion components.
//
// TradingService answers the read queries. The last-trading-dates listing
// consults the cache before storage; dynamics and latest results always read
// through to storage.
//
// IngestionService drives a load: fetch documents, parse them on a bounded
// worker pool, then persist each file's batch in its own transaction. A
// failed batch is logged and counted without affecting the others.
//
// HealthService reports liveness, readiness (storage and cache reachability)
// and build information.
//
// Services depend only on the storage.Repository and cache.Cache interfaces
// and are tested with in-memory fakes.
package services
