// Package reembed rebuilds the vector collection from the checkpoint table.
//
// The collection is dropped and recreated, then every stored chunk is
// embedded again in batches. Each batch is one all-or-nothing upsert retried
// with exponential backoff. Use it after changing the embedding model or
// when the index has drifted from the checkpoint.
package reembed
