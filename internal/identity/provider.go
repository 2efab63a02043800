// Package identity implements the identity provider consumed by the session
// machine. Accounts and refresh tokens live in the remote PostgreSQL store;
// the current session and the offline sign-in verifiers live in the local
// store.
//
// The provider issues short-lived HS256 access tokens and rotates them
// shortly before expiry, reporting every change to subscribers as a
// models.ProviderEvent. When the remote store cannot be reached, SignIn falls
// back to the verifier cached by the last successful online sign-in and hands
// out an offline session.
package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/clock"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/remote/auth"
	"github.com/dmitrijs2005/storefront/internal/remote/repomanager"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	// DefaultRefreshLead is how long before access-token expiry rotation runs.
	DefaultRefreshLead = time.Minute
	// RetryDelay spaces rotation attempts while the remote store is down.
	RetryDelay = 30 * time.Second

	saltSize         = 32
	refreshTokenSize = 32
)

// KVStore is the local persistent store. Get returns (nil, nil) on a miss.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Clock           clock.Clock
	Logger          logging.Logger
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RefreshLead     time.Duration
}

// Provider is safe for concurrent use. Subscribers are called synchronously
// and must not call back into the provider.
type Provider struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	local KVStore
	clock clock.Clock
	log   logging.Logger

	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	refreshLead time.Duration

	// opMu serializes operations that read or replace the session.
	opMu sync.Mutex

	mu       sync.Mutex
	session  *models.Session
	loaded   bool
	closed   bool
	rotation clock.Timer
	rotGen   uint64
	subs     map[int]func(models.ProviderEvent)
	subSeq   int
}

func NewProvider(db *sql.DB, repos repomanager.RepositoryManager, local KVStore, cfg Config) *Provider {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.RefreshLead <= 0 || cfg.RefreshLead >= cfg.AccessTokenTTL {
		cfg.RefreshLead = min(DefaultRefreshLead, cfg.AccessTokenTTL/2)
	}
	return &Provider{
		db:          db,
		repos:       repos,
		local:       local,
		clock:       cfg.Clock,
		log:         cfg.Logger.With("component", "identity"),
		secret:      cfg.Secret,
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		refreshLead: cfg.RefreshLead,
		subs:        make(map[int]func(models.ProviderEvent)),
	}
}

// Subscribe registers fn and immediately delivers INITIAL_SESSION with the
// current session (nil when signed out).
func (p *Provider) Subscribe(fn func(models.ProviderEvent)) (unsubscribe func()) {
	ctx := context.Background()
	if err := p.ensureLoaded(ctx); err != nil {
		p.log.Warn(ctx, "restore persisted session", "err", err)
	}

	p.mu.Lock()
	id := p.subSeq
	p.subSeq++
	p.subs[id] = fn
	sess := cloneSession(p.session)
	p.mu.Unlock()

	fn(models.ProviderEvent{Type: models.EventInitialSession, Session: sess, At: p.clock.Now()})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// CurrentSession returns the active session, restoring the persisted one on
// first use. A restored session whose access token no longer verifies is
// rotated, or dropped when its refresh token is rejected.
func (p *Provider) CurrentSession(ctx context.Context) (*models.Session, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneSession(p.session), nil
}

// Close stops token rotation and drops all subscribers.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.stopRotationLocked()
	clear(p.subs)
}

func (p *Provider) ensureLoaded(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	loaded := p.loaded
	p.mu.Unlock()
	if loaded {
		return nil
	}

	sess, err := p.readSession(ctx)
	if err != nil {
		return err
	}
	if sess != nil && !sess.Offline {
		if _, err := auth.ParseToken(sess.AccessToken, p.secret, p.clock.Now()); err != nil {
			sess = p.restoreExpired(ctx, sess, err)
		}
	}

	p.mu.Lock()
	p.session = sess
	p.loaded = true
	p.scheduleLocked()
	p.mu.Unlock()
	return nil
}

func (p *Provider) restoreExpired(ctx context.Context, sess *models.Session, cause error) *models.Session {
	next, err := p.exchange(ctx, sess)
	switch {
	case err == nil:
		p.persist(ctx, next)
		p.log.Info(ctx, "persisted session rotated", "user_id", next.UserID)
		return next
	case dbx.IsUnavailable(err):
		p.log.Warn(ctx, "remote store unavailable, keeping persisted session", "user_id", sess.UserID, "token_err", cause)
		return sess
	default:
		p.log.Warn(ctx, "persisted session rejected", "user_id", sess.UserID, "err", err)
		if err := p.local.Delete(ctx, common.KeySession); err != nil {
			p.log.Warn(ctx, "delete persisted session", "err", err)
		}
		return nil
	}
}

func (p *Provider) readSession(ctx context.Context) (*models.Session, error) {
	raw, err := p.local.Get(ctx, common.KeySession)
	if err != nil {
		return nil, fmt.Errorf("read persisted session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	sess := &models.Session{}
	if err := json.Unmarshal(raw, sess); err != nil || sess.UserID == "" {
		p.log.Warn(ctx, "discarding malformed persisted session", "err", err)
		return nil, nil
	}
	return sess, nil
}

func (p *Provider) persist(ctx context.Context, sess *models.Session) {
	raw, err := json.Marshal(sess)
	if err == nil {
		err = p.local.Set(ctx, common.KeySession, raw)
	}
	if err != nil {
		p.log.Warn(ctx, "persist session", "user_id", sess.UserID, "err", err)
	}
}

// commit replaces the session and reschedules rotation. The caller emits.
func (p *Provider) commit(ctx context.Context, sess *models.Session) {
	if sess == nil {
		if err := p.local.Delete(ctx, common.KeySession); err != nil {
			p.log.Warn(ctx, "delete persisted session", "err", err)
		}
	} else {
		p.persist(ctx, sess)
	}

	p.mu.Lock()
	p.session = cloneSession(sess)
	p.loaded = true
	p.scheduleLocked()
	p.mu.Unlock()
}

func (p *Provider) current() *models.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneSession(p.session)
}

func (p *Provider) emit(typ models.EventType, sess *models.Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	fns := make([]func(models.ProviderEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	at := p.clock.Now()
	for _, fn := range fns {
		fn(models.ProviderEvent{Type: typ, Session: cloneSession(sess), At: at})
	}
}

func cloneSession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func authError(err error) error {
	if errors.Is(err, common.ErrAuthentication) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrAuthentication, err)
}
