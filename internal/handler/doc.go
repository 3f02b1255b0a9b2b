// Package handler implements the per-job-type work of the pipeline.
//
// A Handler turns one claimed job into a store.Bundle. Handlers only read
// from the store, through ArtifactReader; every write happens when the
// runner commits the returned bundle, so a handler error leaves nothing
// behind. IngestHandler extracts a source and synthesizes its knowledge
// core. GenerateHandler checks derivation legality, resolves knowledge
// contexts, merges them when there are several, generates the target
// artifact and renders its binary when the type requires one.
package handler
