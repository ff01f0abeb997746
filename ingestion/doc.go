// Package ingestion runs the per-file document pipeline.
//
// Each file moves through Received, Normalized, Extracted, Chunked,
// Persisted and Indexed. A failure at any stage ends the run in Failed and
// no later stage runs. Files whose elements have no grouping rule end in
// Skipped and leave the table unchanged.
//
// The chunk table is held in memory, guarded by a mutex, and written back to
// the checkpoint in full after every run that adds rows. The in-memory table
// is replaced only after the save succeeds.
package ingestion
