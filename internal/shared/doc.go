// Package shared holds helpers used by more than one package.
//
// testutil provides test loggers and workbook fixtures for parser, service
// and application tests. Nothing here is imported by production code.
package shared
