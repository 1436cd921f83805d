// Package core provides the shared domain primitives used by every swarmrail
// subsystem:
//
//   - Vector math (cosine similarity, normalization, deterministic
//     pseudo-embeddings) over opaque fixed-length float slices
//   - Notifications (immutable records of stage changes and basin activity)
//   - The subscriber Bus that fans notifications out to listeners
//
// The package intentionally keeps subsystem concerns (oscillators, routing,
// gossip, absorption) out of scope, exposing only the primitives those
// packages compose. Embeddings are treated as opaque numeric vectors supplied
// by callers; no embedding service is consulted anywhere in the substrate.
package core
