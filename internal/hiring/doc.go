// Package hiring turns the recruiting-activity spreadsheet into the six
// chart-ready datasets pushed to viewers.
//
// Pipeline (one call to Loader.ComputeSnapshot):
//   - read the configured sheet (excelize)
//   - drop rows whose date cell does not parse (FilterByDate)
//   - aggregate into a typed Snapshot (Aggregate)
//   - render the wire Payload, dates as YYYY-MM-DD (Normalize)
//
// Every failure is folded into an error Payload at the Loader boundary.
package hiring
