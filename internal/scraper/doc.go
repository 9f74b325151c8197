// Package scraper harvests trading results documents from the exchange
// archive.
//
// The Fetcher walks a fixed range of paginated index pages concurrently,
// picks document links from each page by publication year, and downloads
// every unique document into a staging directory. Failures of individual
// pages or downloads are logged and dropped; FetchAll reports only the
// files that were actually written.
//
// Index pages come from a PageSource. HTTPPageSource is a plain HTTP
// client; BrowserPageSource drives headless Chrome for archives that build
// the index with JavaScript.
package scraper
