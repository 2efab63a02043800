// Package common contains shared constants and sentinel errors used across
// storefront components.
package common

// Local store keys. Values are JSON documents owned by a single component.
const (
	// KeyAnonymousCart holds the cart of the Anonymous identity.
	KeyAnonymousCart = "cart:anonymous"
	// KeyCartMirrorPrefix prefixes the per-user read-through mirror of the remote cart.
	KeyCartMirrorPrefix = "cart:mirror:"
	// KeySession holds the persisted identity-provider session.
	KeySession = "session:current"
	// KeySessionCache holds the persisted profile/role cache of the last user.
	KeySessionCache = "session:cache"
	// KeyOfflineAuthPrefix prefixes the cached offline verifier of a user.
	KeyOfflineAuthPrefix = "auth:offline:"
)

// CartMirrorKey returns the local mirror key of userID's remote cart.
func CartMirrorKey(userID string) string {
	return KeyCartMirrorPrefix + userID
}

// OfflineAuthKey returns the local key of the cached offline verifier for email.
func OfflineAuthKey(email string) string {
	return KeyOfflineAuthPrefix + email
}
