// Package storage persists trade records and answers the read queries.
//
// Repository is the storage contract. PostgresRepository is the production
// implementation on pgx; MemoryRepository keeps records in process for
// local runs and tests. Both fold the optional filters of a
// domain.TradeFilter into an AND of equality predicates, so an absent
// filter never constrains the result.
package storage
