package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/cryptox"
	remotemodels "github.com/dmitrijs2005/storefront/internal/remote/models"
)

// offlineRecord is what an online sign-in leaves behind for offline use.
type offlineRecord struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

func (p *Provider) saveOffline(ctx context.Context, user *remotemodels.User) {
	raw, err := json.Marshal(offlineRecord{UserID: user.ID, Email: user.Email, Salt: user.Salt, Verifier: user.Verifier})
	if err == nil {
		err = p.local.Set(ctx, common.OfflineAuthKey(user.Email), raw)
	}
	if err != nil {
		p.log.Warn(ctx, "cache offline credentials", "user_id", user.ID, "err", err)
	}
}

func (p *Provider) loadOffline(ctx context.Context, email string) (*offlineRecord, error) {
	raw, err := p.local.Get(ctx, common.OfflineAuthKey(email))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, common.ErrLocalDataNotAvailable
	}
	rec := &offlineRecord{}
	if err := json.Unmarshal(raw, rec); err != nil || rec.UserID == "" {
		return nil, common.ErrLocalDataNotAvailable
	}
	return rec, nil
}

func (p *Provider) moveOffline(ctx context.Context, from, to string) {
	rec, err := p.loadOffline(ctx, from)
	if err != nil {
		return
	}
	rec.Email = to
	p.saveOffline(ctx, &remotemodels.User{ID: rec.UserID, Email: to, Salt: rec.Salt, Verifier: rec.Verifier})
	if err := p.local.Delete(ctx, common.OfflineAuthKey(from)); err != nil {
		p.log.Warn(ctx, "drop stale offline credentials", "err", err)
	}
}

// signInOffline runs with opMu held. cause is the remote failure that
// triggered the fallback.
func (p *Provider) signInOffline(ctx context.Context, creds models.Credentials, cause error) (*models.Session, error) {
	rec, err := p.loadOffline(ctx, creds.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (%v)", common.ErrUnavailable, common.ErrLocalDataNotAvailable, cause)
	}

	candidate := cryptox.MakeVerifier(cryptox.DeriveKey(creds.Password, rec.Salt))
	if !cryptox.CheckVerifier(rec.Verifier, candidate) {
		return nil, authError(errBadCredentials)
	}

	sess := &models.Session{UserID: rec.UserID, Email: rec.Email, Offline: true}
	p.commit(ctx, sess)
	p.log.Warn(ctx, "remote store unavailable, signed in offline", "user_id", rec.UserID, "cause", cause)
	return sess, nil
}
