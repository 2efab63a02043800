package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/cryptox"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	remotemodels "github.com/dmitrijs2005/storefront/internal/remote/models"
)

var errBadCredentials = errors.New("unknown email or wrong password")

// SignIn verifies creds against the remote store and emits SIGNED_IN. When
// the remote store is unreachable it falls back to the locally cached
// verifier and returns an offline session.
func (p *Provider) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, authError(err)
	}

	sess, err := p.signIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	p.emit(models.EventSignedIn, sess)
	return cloneSession(sess), nil
}

func (p *Provider) signIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	user, err := p.repos.Users(p.db).GetByEmail(ctx, creds.Email)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		return nil, authError(errBadCredentials)
	case dbx.IsUnavailable(err):
		return p.signInOffline(ctx, creds, err)
	default:
		return nil, authError(err)
	}

	candidate := cryptox.MakeVerifier(cryptox.DeriveKey(creds.Password, user.Salt))
	if !cryptox.CheckVerifier(user.Verifier, candidate) {
		return nil, authError(errBadCredentials)
	}

	sess, err := p.issue(ctx, user.ID, user.Email)
	if err != nil {
		if dbx.IsUnavailable(err) {
			return p.signInOffline(ctx, creds, err)
		}
		return nil, authError(err)
	}

	p.saveOffline(ctx, user)
	p.commit(ctx, sess)
	p.log.Info(ctx, "signed in", "user_id", user.ID)
	return sess, nil
}

// SignUp creates the account with the standard role and a seeded profile,
// then signs it in and emits SIGNED_IN.
func (p *Provider) SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, authError(err)
	}

	sess, err := p.signUp(ctx, creds)
	if err != nil {
		return nil, err
	}
	p.emit(models.EventSignedIn, sess)
	return cloneSession(sess), nil
}

func (p *Provider) signUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	salt := common.GenerateRandByteArray(saltSize)
	user := &remotemodels.User{
		Email:    creds.Email,
		Salt:     salt,
		Verifier: cryptox.MakeVerifier(cryptox.DeriveKey(creds.Password, salt)),
	}

	var (
		sess    *models.Session
		created *remotemodels.User
	)
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := p.repos.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		created = u
		if err := p.repos.Roles(tx).Grant(ctx, u.ID, models.RoleStandard); err != nil {
			return err
		}
		profile := models.NewProfile(u.ID, u.Email)
		if creds.DisplayName != "" {
			profile.DisplayName = creds.DisplayName
		}
		if _, err := p.repos.Profiles(tx).Upsert(ctx, profile); err != nil {
			return err
		}
		sess, err = p.issueTx(ctx, tx, u.ID, u.Email)
		return err
	})
	if err != nil {
		if dbx.IsUnavailable(err) {
			return nil, fmt.Errorf("sign up: %w", err)
		}
		return nil, authError(err)
	}

	p.saveOffline(ctx, created)
	p.commit(ctx, sess)
	p.log.Info(ctx, "signed up", "user_id", created.ID)
	return sess, nil
}

// SignOut revokes the refresh token, forgets the persisted session and emits
// SIGNED_OUT. Revocation is best effort; the offline verifier is kept so the
// user can still sign in while the remote store is down.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.signOut(ctx); err != nil {
		return err
	}
	p.emit(models.EventSignedOut, nil)
	return nil
}

func (p *Provider) signOut(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	sess := p.current()
	if sess != nil && !sess.Offline && sess.RefreshToken != "" {
		if err := p.repos.RefreshTokens(p.db).Delete(ctx, sess.RefreshToken); err != nil {
			p.log.Warn(ctx, "revoke refresh token", "user_id", sess.UserID, "err", err)
		}
	}
	if err := p.local.Delete(ctx, common.KeySession); err != nil {
		return fmt.Errorf("delete persisted session: %w", err)
	}
	p.commit(ctx, nil)
	if sess != nil {
		p.log.Info(ctx, "signed out", "user_id", sess.UserID)
	}
	return nil
}

// UpdateEmail changes the signed-in user's email, reissues the access token
// and emits USER_UPDATED.
func (p *Provider) UpdateEmail(ctx context.Context, email string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrEmailRequired
	}

	sess, err := p.updateEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	p.emit(models.EventUserUpdated, sess)
	return cloneSession(sess), nil
}

func (p *Provider) updateEmail(ctx context.Context, email string) (*models.Session, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	sess := p.current()
	if sess == nil || sess.Offline {
		return nil, authError(errors.New("an online session is required"))
	}
	if err := p.repos.Users(p.db).UpdateEmail(ctx, sess.UserID, email); err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}

	access, expires, err := p.accessToken(sess.UserID, email)
	if err != nil {
		return nil, err
	}
	p.moveOffline(ctx, sess.Email, email)

	sess.Email = email
	sess.AccessToken = access
	sess.ExpiresAt = expires
	p.commit(ctx, sess)
	return sess, nil
}
