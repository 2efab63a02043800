// Package models defines the client-side data model shared by the session
// state machine, the cart reconciler and the identity provider.
package models

// IdentityKind discriminates the Identity union.
type IdentityKind int

const (
	// IdentityAnonymous is a guest with a local-only cart.
	IdentityAnonymous IdentityKind = iota
	// IdentityLocalOffline is a user signed in against locally cached
	// credentials while the remote store was unreachable.
	IdentityLocalOffline
	// IdentityRemote is a user holding a remote-issued access token.
	IdentityRemote
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityLocalOffline:
		return "offline"
	case IdentityRemote:
		return "remote"
	default:
		return "anonymous"
	}
}

// Identity is the logical actor all reconciled state is keyed against.
// The zero value is Anonymous. Variants are built with Anonymous,
// LocalOffline and Remote and told apart with Kind, never by inspecting ids.
type Identity struct {
	kind   IdentityKind
	userID string
	token  string
}

// Anonymous returns the guest identity.
func Anonymous() Identity {
	return Identity{}
}

// LocalOffline returns an identity authenticated without the remote store.
func LocalOffline(userID string) Identity {
	return Identity{kind: IdentityLocalOffline, userID: userID}
}

// Remote returns an identity backed by a remote access token.
func Remote(userID, token string) Identity {
	return Identity{kind: IdentityRemote, userID: userID, token: token}
}

func (i Identity) Kind() IdentityKind { return i.kind }

// UserID is empty for Anonymous.
func (i Identity) UserID() string { return i.userID }

// Token is empty unless Kind is IdentityRemote.
func (i Identity) Token() string { return i.token }

// IsAuthenticated is true for LocalOffline and Remote.
func (i Identity) IsAuthenticated() bool { return i.kind != IdentityAnonymous }

// SameActor reports whether i and o are the same variant for the same user.
// Tokens are ignored: a rotated token does not change the actor.
func (i Identity) SameActor(o Identity) bool {
	return i.kind == o.kind && i.userID == o.userID
}

func (i Identity) String() string {
	if i.kind == IdentityAnonymous {
		return i.kind.String()
	}
	return i.kind.String() + ":" + i.userID
}
