// Package types defines the shared data model for the document ingestion
// pipeline: source documents, contextual chunks, quality reports, and run
// reports. It has no dependencies on the pipeline packages so that storage,
// enrichment, and transport layers can all share it.
package types
