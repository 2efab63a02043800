// Package cli provides the interactive storefront shell.
//
// It wires configuration, the local store, the remote PostgreSQL store, the
// identity provider, the session machine and the cart reconciler, then runs
// a REPL on top of them. A background watcher probes the remote store and
// reconciles a degraded cart once the store is reachable again.
//
// Commands:
//   - register / login / logout / whoami
//   - add, remove <id>, qty <id> <n>, list, clear
//   - merge (rerun the anonymous cart merge), sync (reconcile degraded items)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
