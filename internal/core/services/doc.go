// Package services implements the core pipeline: the credential pool with
// health tracking, the sliding-window admission controller, the document
// strategy router, the retrieve-and-rerank pipeline, and the query
// orchestrator that ties them together. Services depend on ports, never on
// concrete adapters.
package services
