// Package session implements the client session state machine.
//
// The Machine owns the active Identity together with the profile and role of
// the signed-in user. Identity-provider events pass through a debounce.Debouncer
// so bursts collapse into one transition, and a validity.Tracker decides which
// domains need a refetch. Refreshes fetch the stale domains concurrently and
// publish AUTHENTICATED_STABLE only after every fetch has resolved.
//
// Every identity-changing transition bumps a generation counter; a refresh
// applies its results only if the generation it started under is still
// current, so results of superseded refreshes are dropped rather than
// overwriting newer state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/storefront/internal/client/debounce"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/validity"
	"github.com/dmitrijs2005/storefront/internal/clock"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

// DefaultStableTimeout bounds how long IsLoading may stay true for one refresh.
const DefaultStableTimeout = 2 * time.Second

// Config tunes a Machine. Zero values select the package defaults.
type Config struct {
	Clock          clock.Clock
	Logger         logging.Logger
	DebounceWindow time.Duration
	StableTimeout  time.Duration
	CacheTTL       time.Duration
}

type listener struct {
	id int
	fn func(prev, next models.Identity)
}

// Machine is the session state machine. Construct it with NewMachine and
// start it with Init.
type Machine struct {
	provider IdentityProvider
	profiles ProfileStore
	roles    RoleStore
	kv       KVStore

	clock         clock.Clock
	log           logging.Logger
	stableTimeout time.Duration

	tracker   *validity.Tracker
	debouncer *debounce.Debouncer[models.ProviderEvent]

	mu          sync.Mutex
	state       State
	session     *models.Session
	identity    models.Identity
	fingerprint string
	profile     *models.Profile
	role        models.Role
	degraded    bool
	gen         uint64
	released    bool
	safety      clock.Timer
	safetyGen   uint64
	unsubscribe func()
	baseCtx     context.Context
	cancel      context.CancelFunc

	// tmu orders transition commits with their identity notifications.
	tmu sync.Mutex

	lmu       sync.Mutex
	listeners []listener
	nextID    int
}

// NewMachine wires a Machine to its collaborators.
func NewMachine(provider IdentityProvider, profiles ProfileStore, roles RoleStore, kv KVStore, cfg Config) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.StableTimeout <= 0 {
		cfg.StableTimeout = DefaultStableTimeout
	}

	m := &Machine{
		provider:      provider,
		profiles:      profiles,
		roles:         roles,
		kv:            kv,
		clock:         cfg.Clock,
		log:           cfg.Logger.With("component", "session"),
		stableTimeout: cfg.StableTimeout,
		tracker:       validity.NewTracker(cfg.Clock, cfg.CacheTTL),
	}
	m.debouncer = debounce.New(cfg.Clock, cfg.DebounceWindow, func(ev models.ProviderEvent) {
		m.apply(m.context(), ev)
	})
	return m
}

// Init probes the identity provider for a persisted session and subscribes
// to its events. A failing probe resolves to UNAUTHENTICATED.
func (m *Machine) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.state = StateInitializing
	m.baseCtx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Unlock()

	sess, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.log.Warn(ctx, "persisted session probe failed", "err", err)
		sess = nil
	}

	if sess == nil || sess.UserID == "" {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.mu.Unlock()
		m.log.Info(ctx, "no persisted session")
	} else {
		m.transition(ctx, sess, false, func() { m.loadCache(ctx, sess.UserID) })
	}

	unsubscribe := m.provider.Subscribe(m.OnProviderEvent)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

// Dispose detaches from the provider and drops any pending event. In-flight
// fetches see a cancelled context.
func (m *Machine) Dispose() {
	m.mu.Lock()
	unsubscribe, cancel := m.unsubscribe, m.cancel
	m.unsubscribe = nil
	m.stopSafetyLocked()
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.debouncer.Close()
	if cancel != nil {
		cancel()
	}
}

// OnProviderEvent queues ev behind the debounce window.
func (m *Machine) OnProviderEvent(ev models.ProviderEvent) {
	if ev.At.IsZero() {
		ev.At = m.clock.Now()
	}
	m.debouncer.Push(ev)
}

// SignIn authenticates through the provider and applies the resulting
// transition before returning. Provider errors are returned unchanged.
func (m *Machine) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	sess, err := m.provider.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, models.EventSignedIn, sess)
	return sess, nil
}

// SignUp registers through the provider and applies the resulting transition.
func (m *Machine) SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	sess, err := m.provider.SignUp(ctx, creds)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, models.EventSignedIn, sess)
	return sess, nil
}

// SignOut ends the session through the provider and resets local state.
func (m *Machine) SignOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return err
	}
	m.settle(ctx, models.EventSignedOut, nil)
	return nil
}

// EnsureFresh refetches domains whose TTL has elapsed. Valid domains are
// never refetched, so calling it on every screen or command is cheap.
func (m *Machine) EnsureFresh(ctx context.Context) {
	m.mu.Lock()
	if !m.identity.IsAuthenticated() || m.state == StateRefreshing {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	m.mu.Unlock()

	if len(m.tracker.Stale()) == 0 {
		return
	}
	m.refresh(ctx, gen)
}

// IsLoading is true while an authenticated identity lacks a valid profile or
// role, unless the safety timer of the current refresh has expired.
func (m *Machine) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLoadingLocked()
}

// Identity returns the active identity.
func (m *Machine) Identity() models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Snapshot returns the published state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		State:           m.state,
		Identity:        m.identity,
		Profile:         m.profile,
		Role:            m.role,
		IsLoading:       m.isLoadingLocked(),
		IsAuthenticated: m.identity.IsAuthenticated(),
		Degraded:        m.degraded,
	}
	if m.session != nil {
		s.Email = m.session.Email
	}
	return s
}

// SubscribeIdentity registers fn for identity changes. fn runs synchronously
// on the goroutine that committed the transition, after the commit and while
// the profile and role refresh is in flight, and only when the actor changes
// (token rotation is not reported). fn must not call SignIn, SignUp or
// SignOut.
func (m *Machine) SubscribeIdentity(fn func(prev, next models.Identity)) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})

	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Machine) apply(ctx context.Context, ev models.ProviderEvent) {
	switch ev.Type {
	case models.EventTokenRefreshed:
		m.rotateToken(ctx, ev.Session)
		return
	case models.EventSignedOut:
		m.signOutLocal(ctx)
		return
	case models.EventInitialSession:
		m.mu.Lock()
		same := ev.Session.Fingerprint() == m.fingerprint
		m.mu.Unlock()
		if same {
			m.log.Debug(ctx, "duplicate initial session ignored")
			return
		}
	case models.EventSignedIn, models.EventUserUpdated:
	default:
		m.log.Warn(ctx, "unknown provider event", "type", ev.Type)
		return
	}

	if ev.Session == nil || ev.Session.UserID == "" {
		m.signOutLocal(ctx)
		return
	}
	m.transition(ctx, ev.Session, true, nil)
}

// settle applies the transition of an explicit sign-in or sign-out without
// waiting for the debounce window. Flush returns only after an emission the
// timer already started has been applied, so the fingerprint check below sees
// its commit.
func (m *Machine) settle(ctx context.Context, typ models.EventType, sess *models.Session) {
	if m.debouncer.Flush() {
		return
	}
	m.mu.Lock()
	current := m.fingerprint
	m.mu.Unlock()
	if sess.Fingerprint() == current {
		return
	}
	m.apply(ctx, models.ProviderEvent{Type: typ, Session: sess, At: m.clock.Now()})
}

// transition commits sess as the active session and refreshes its stale
// domains. restore, if set, runs after the commit and before the staleness
// check. When the actor changes, identity listeners run while the refresh is
// in flight; transition returns once both are done. tmu is held only until
// the listeners return, so a newer transition can supersede the refresh.
func (m *Machine) transition(ctx context.Context, sess *models.Session, invalidate bool, restore func()) {
	m.tmu.Lock()

	m.mu.Lock()
	prev := m.identity
	next := sess.Identity()
	changed := !prev.SameActor(next)
	if changed {
		m.profile = nil
		m.role = ""
		m.tracker.Reset()
	}
	if invalidate {
		m.tracker.Invalidate(validity.Domains...)
	}
	m.session = sess
	m.identity = next
	m.fingerprint = sess.Fingerprint()
	m.degraded = false
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if restore != nil {
		restore()
	}

	m.mu.Lock()
	if gen == m.gen {
		if len(m.tracker.Stale()) == 0 {
			m.markStableLocked()
		} else {
			m.state = StateRefreshing
			m.armSafetyLocked(gen)
		}
	}
	m.mu.Unlock()

	if !changed {
		m.tmu.Unlock()
		m.refresh(ctx, gen)
		return
	}

	m.log.Info(ctx, "identity changed", "from", prev.String(), "to", next.String())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.refresh(ctx, gen)
	}()
	m.notify(prev, next)
	m.tmu.Unlock()
	<-done
}

func (m *Machine) rotateToken(ctx context.Context, sess *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess == nil || !m.identity.IsAuthenticated() || !m.identity.SameActor(sess.Identity()) {
		m.log.Debug(ctx, "token refresh for inactive session ignored")
		return
	}
	m.session = sess
	m.identity = sess.Identity()
	m.fingerprint = sess.Fingerprint()
}

func (m *Machine) signOutLocal(ctx context.Context) {
	m.tmu.Lock()
	defer m.tmu.Unlock()

	m.mu.Lock()
	prev := m.identity
	m.session = nil
	m.identity = models.Anonymous()
	m.fingerprint = ""
	m.profile = nil
	m.role = ""
	m.degraded = false
	m.tracker.Reset()
	m.gen++
	m.state = StateUnauthenticated
	m.stopSafetyLocked()
	m.mu.Unlock()

	m.dropCache(ctx)
	if prev.IsAuthenticated() {
		m.log.Info(ctx, "signed out", "from", prev.String())
		m.notify(prev, models.Anonymous())
	}
}

// refresh fetches the stale domains of generation gen concurrently and
// applies the results if gen is still current.
func (m *Machine) refresh(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.identity.IsAuthenticated() {
		m.mu.Unlock()
		return
	}
	stale := m.tracker.Stale()
	if len(stale) == 0 {
		m.markStableLocked()
		m.mu.Unlock()
		m.log.Debug(ctx, "session caches valid, no fetch")
		return
	}
	if m.state != StateRefreshing || m.safetyGen != gen {
		m.state = StateRefreshing
		m.armSafetyLocked(gen)
	}
	userID, email := m.identity.UserID(), m.session.Email
	m.mu.Unlock()

	var (
		profile    *models.Profile
		role       models.Role
		profileErr error
		g          errgroup.Group
	)
	for _, d := range stale {
		switch d {
		case validity.DomainProfile:
			g.Go(func() error {
				profile, profileErr = m.fetchProfile(ctx, userID, email)
				return profileErr
			})
		case validity.DomainRole:
			g.Go(func() error {
				var err error
				role, err = m.fetchRole(ctx, userID)
				return err
			})
		}
	}
	err := g.Wait()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.log.Debug(ctx, "discarding superseded refresh", "user_id", userID)
		return
	}
	for _, d := range stale {
		switch d {
		case validity.DomainProfile:
			if profileErr == nil {
				m.profile = profile
			}
		case validity.DomainRole:
			m.role = role
		}
		m.tracker.MarkChecked(d)
	}
	m.degraded = err != nil
	m.markStableLocked()
	c := m.cacheLocked()
	if profileErr != nil {
		c.ProfileCheckedAt = time.Time{}
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warn(ctx, "session refresh degraded", "user_id", userID, "err", err)
	}
	m.saveCache(ctx, c)
}

func (m *Machine) fetchProfile(ctx context.Context, userID, email string) (*models.Profile, error) {
	p, err := m.profiles.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p, err = m.profiles.Upsert(ctx, models.NewProfile(userID, email))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// fetchRole fails closed: any error yields the least privileged role.
func (m *Machine) fetchRole(ctx context.Context, userID string) (models.Role, error) {
	ok, err := m.roles.HasRole(ctx, userID, models.RolePrivileged)
	if err != nil {
		return models.LeastPrivileged(), fmt.Errorf("check role: %w", err)
	}
	if ok {
		return models.RolePrivileged, nil
	}
	return models.RoleStandard, nil
}

func (m *Machine) notify(prev, next models.Identity) {
	m.lmu.Lock()
	fns := make([]func(prev, next models.Identity), 0, len(m.listeners))
	for _, l := range m.listeners {
		fns = append(fns, l.fn)
	}
	m.lmu.Unlock()

	for _, fn := range fns {
		fn(prev, next)
	}
}

func (m *Machine) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseCtx == nil {
		return context.Background()
	}
	return m.baseCtx
}

func (m *Machine) isLoadingLocked() bool {
	if !m.identity.IsAuthenticated() || m.released {
		return false
	}
	return !(m.tracker.IsValid(validity.DomainProfile) && m.tracker.IsValid(validity.DomainRole))
}

func (m *Machine) armSafetyLocked(gen uint64) {
	m.stopSafetyLocked()
	m.safetyGen = gen
	m.safety = m.clock.AfterFunc(m.stableTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen == gen && m.state == StateRefreshing {
			m.released = true
		}
	})
}

func (m *Machine) stopSafetyLocked() {
	if m.safety != nil {
		m.safety.Stop()
		m.safety = nil
	}
	m.released = false
}

func (m *Machine) markStableLocked() {
	m.state = StateStable
	m.stopSafetyLocked()
}

func (m *Machine) cacheLocked() cachedSession {
	c := cachedSession{
		UserID:  m.identity.UserID(),
		Profile: m.profile,
		Role:    m.role,
	}
	c.ProfileCheckedAt, _ = m.tracker.LastChecked(validity.DomainProfile)
	c.RoleCheckedAt, _ = m.tracker.LastChecked(validity.DomainRole)
	return c
}
