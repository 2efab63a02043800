// Package client bootstraps the client's local persistence.
//
// InitDatabase opens (creating if needed) the SQLite file and applies the
// embedded migrations; OpenLocalStore picks the kv.Store backend named in the
// configuration.
//
// Typical usage:
//
//	store, closeFn, err := client.OpenLocalStore(ctx, cfg)
//	if err != nil { ... }
//	defer closeFn()
package client
