// Package driven defines the outbound ports of the Q&A pipeline: the LLM
// completion capability, embedding and rerank capabilities, the vector index,
// the answer cache, and the document fetcher. Adapters under
// internal/adapters/driven implement these interfaces.
package driven
