// Package dataprocessing extracts trade records from the exchange's daily
// trading results spreadsheets.
//
// # Layout
//
// A results sheet opens with a title line followed by the table. In table
// coordinates the document date sits at row 2, column 1, as the trailing
// DD.MM.YYYY of the cell text. The parser scans column 1 from row 4 for the
// unit-of-measure header marker; instrument rows start three rows below it
// and end at the first row whose column 1 contains the total marker.
//
// Both scans are bounded by MaxRows. A document whose markers are not found
// within the bound fails on its own without affecting others.
//
// # Usage
//
//	p := dataprocessing.NewParser(cfg.Parser, logger, metrics)
//	batches, err := p.ParseAll(ctx, paths)
//
// Legacy .xls workbooks are decoded with extrame/xls; .xlsx workbooks with
// excelize.
package dataprocessing
