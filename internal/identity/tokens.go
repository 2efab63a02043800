package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/remote/auth"
)

func (p *Provider) accessToken(userID, email string) (string, time.Time, error) {
	now := p.clock.Now()
	token, err := auth.GenerateToken(userID, email, p.secret, p.accessTTL, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, now.Add(p.accessTTL), nil
}

func (p *Provider) issue(ctx context.Context, userID, email string) (*models.Session, error) {
	return p.issueTx(ctx, p.db, userID, email)
}

// issueTx mints an access token and stores a fresh refresh token through tx.
func (p *Provider) issueTx(ctx context.Context, tx dbx.DBTX, userID, email string) (*models.Session, error) {
	access, expires, err := p.accessToken(userID, email)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(refreshTokenSize)
	if err != nil {
		return nil, err
	}
	if err := p.repos.RefreshTokens(tx).Create(ctx, userID, refresh, p.clock.Now().Add(p.refreshTTL)); err != nil {
		return nil, err
	}
	return &models.Session{
		UserID:       userID,
		Email:        email,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires,
	}, nil
}

// exchange trades sess's refresh token for a new token pair. The old refresh
// token is deleted in the same transaction.
func (p *Provider) exchange(ctx context.Context, sess *models.Session) (*models.Session, error) {
	if sess.RefreshToken == "" {
		return nil, common.ErrInvalidToken
	}
	stored, err := p.repos.RefreshTokens(p.db).Find(ctx, sess.RefreshToken)
	if err != nil {
		return nil, err
	}
	if stored.UserID != sess.UserID {
		return nil, common.ErrInvalidToken
	}
	if !stored.Expires.After(p.clock.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var next *models.Session
	err = dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := p.repos.RefreshTokens(tx).Delete(ctx, sess.RefreshToken); err != nil {
			return err
		}
		var err error
		next, err = p.issueTx(ctx, tx, sess.UserID, sess.Email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// scheduleLocked arms rotation for the current remote session, replacing any
// previous timer. Called with p.mu held.
func (p *Provider) scheduleLocked() {
	p.stopRotationLocked()
	if p.closed || p.session == nil || p.session.Offline {
		return
	}
	d := p.session.ExpiresAt.Sub(p.clock.Now()) - p.refreshLead
	p.armLocked(max(d, 0))
}

func (p *Provider) armLocked(d time.Duration) {
	gen := p.rotGen
	p.rotation = p.clock.AfterFunc(d, func() { p.rotate(gen) })
}

func (p *Provider) stopRotationLocked() {
	p.rotGen++
	if p.rotation != nil {
		p.rotation.Stop()
		p.rotation = nil
	}
}

// rotate runs on the timer. A rejected refresh token ends the session with
// SIGNED_OUT; an unreachable remote store retries after RetryDelay and keeps
// the current token.
func (p *Provider) rotate(gen uint64) {
	ctx := context.Background()

	p.opMu.Lock()
	p.mu.Lock()
	if gen != p.rotGen || p.closed || p.session == nil {
		p.mu.Unlock()
		p.opMu.Unlock()
		return
	}
	sess := cloneSession(p.session)
	p.mu.Unlock()

	next, err := p.exchange(ctx, sess)
	switch {
	case err == nil:
		p.commit(ctx, next)
		p.opMu.Unlock()
		p.log.Debug(ctx, "access token rotated", "user_id", next.UserID)
		p.emit(models.EventTokenRefreshed, next)

	case dbx.IsUnavailable(err):
		p.mu.Lock()
		if gen == p.rotGen {
			p.armLocked(RetryDelay)
		}
		p.mu.Unlock()
		p.opMu.Unlock()
		p.log.Warn(ctx, "token rotation deferred, remote store unavailable", "user_id", sess.UserID, "err", err)

	default:
		p.commit(ctx, nil)
		p.opMu.Unlock()
		p.log.Warn(ctx, "token rotation rejected, signing out", "user_id", sess.UserID, "err", err)
		p.emit(models.EventSignedOut, nil)
	}
}
