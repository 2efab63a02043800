package session

import (
	"errors"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

var ErrAlreadyInitialized = errors.New("session machine already initialized")

// State is the lifecycle position of the Machine.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateUnauthenticated
	StateRefreshing
	StateStable
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateRefreshing:
		return "AUTHENTICATED_REFRESHING"
	case StateStable:
		return "AUTHENTICATED_STABLE"
	default:
		return "UNINITIALIZED"
	}
}

// Snapshot is the published, read-only view of the Machine.
type Snapshot struct {
	State           State
	Identity        models.Identity
	Email           string
	Profile         *models.Profile
	Role            models.Role
	IsLoading       bool
	IsAuthenticated bool
	// Degraded is set when the last refresh had a failing fetch.
	Degraded bool
}
