// Package app wires the trading results service together and manages its
// lifecycle.
//
// New opens storage and cache, builds the fetcher, parser and services, and
// mounts the HTTP routes. Start launches the daily cache flush and the
// startup ingestion (background, blocking or off) before serving. Stop shuts
// the server down, cancels and joins the background tasks, then closes the
// backends. Run ties Start and Stop to SIGINT and SIGTERM.
//
// Ingest runs a single load without the server, for the ingest command.
package app
