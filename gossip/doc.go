// Package gossip implements the distributed routing layer of the substrate.
// Each node owns a set of semantic attractor basins (centroid + mass + agent
// count) and periodically exchanges basin snapshots with peers. The merge
// protocol is additive and eventually consistent: remote basins matching a
// local id are folded in with a mass-weighted centroid average, unknown
// remote basins are adopted, and local-only basins are never evicted by
// gossip. Divergence between nodes is expected and tolerated between rounds;
// any node operates correctly while fully isolated from its peers.
//
// Snapshots carry no integrity check. Authenticating peers and verifying
// payloads is delegated entirely to the transport/security layer in front of
// this package.
package gossip
