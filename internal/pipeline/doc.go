// Package pipeline joins the old and new snapshots, applies the fetched
// video metadata, and classifies and prices every output row.
//
// The work is split so that only one step touches the network:
//
//   - Load: sheet tables -> loader tables (required columns, link index)
//   - VideoIDs + enrich.Enrich: the lookups, one per distinct id
//   - Transform: pure join/diff/classify/price over the enrichment map
//
// Run wires these to config, files and the export package for the CLI;
// Process does the same for in-memory tables (serve mode, tests).
package pipeline
