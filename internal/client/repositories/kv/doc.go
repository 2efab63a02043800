// Package kv provides the client's local persistent key/value store.
//
// # Overview
//
// Store is a minimal byte-oriented map used by the session machine (persisted
// session and profile/role cache), the cart reconciler (anonymous cart and
// per-user mirror) and the identity provider (offline verifiers). Values are
// opaque to the store; each key is owned by one component.
//
// # Implementations
//
//   - SQLiteStore: default, a single kv table in the local SQLite database
//     (see internal/client/migrations).
//   - RedisStore: for deployments that share carts between processes on one
//     machine; keys are namespaced with a prefix.
//   - MemoryStore: process-local, used by tests and the "memory" setting.
//
// # Contract
//
// Get returns (nil, nil) for a missing key. Set overwrites. Delete of a
// missing key is not an error.
package kv
