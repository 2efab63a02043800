package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

type fakeProvider struct {
	mu         sync.Mutex
	current    *models.Session
	currentErr error
	next       *models.Session
	signInErr  error
	signOutErr error
	subs       map[int]func(models.ProviderEvent)
	subSeq     int

	EmitInitial bool
	// Quiet suppresses the SIGNED_IN event of SignIn.
	Quiet        bool
	SignInCalls  int
	SignOutCalls int
}

func newFakeProvider(current *models.Session) *fakeProvider {
	return &fakeProvider{current: current, subs: map[int]func(models.ProviderEvent){}}
}

func (p *fakeProvider) Subscribe(fn func(models.ProviderEvent)) func() {
	p.mu.Lock()
	id := p.subSeq
	p.subSeq++
	p.subs[id] = fn
	initial, current := p.EmitInitial, p.current
	p.mu.Unlock()

	if initial {
		fn(models.ProviderEvent{Type: models.EventInitialSession, Session: current})
	}
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *fakeProvider) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *fakeProvider) emit(ev models.ProviderEvent) {
	p.mu.Lock()
	fns := make([]func(models.ProviderEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *fakeProvider) CurrentSession(context.Context) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.currentErr
}

func (p *fakeProvider) SignIn(_ context.Context, _ models.Credentials) (*models.Session, error) {
	p.mu.Lock()
	p.SignInCalls++
	if p.signInErr != nil {
		err := p.signInErr
		p.mu.Unlock()
		return nil, err
	}
	p.current = p.next
	sess, quiet := p.current, p.Quiet
	p.mu.Unlock()

	if !quiet {
		p.emit(models.ProviderEvent{Type: models.EventSignedIn, Session: sess})
	}
	return sess, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	return p.SignIn(ctx, creds)
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.SignOutCalls++
	if p.signOutErr != nil {
		err := p.signOutErr
		p.mu.Unlock()
		return err
	}
	p.current = nil
	p.mu.Unlock()

	p.emit(models.ProviderEvent{Type: models.EventSignedOut})
	return nil
}

type fakeProfiles struct {
	mu          sync.Mutex
	profiles    map[string]*models.Profile
	GetErr      error
	UpsertErr   error
	GetCalls    int
	UpsertCalls int
	block       map[string]chan struct{}
	started     chan string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]*models.Profile{}, block: map[string]chan struct{}{}}
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	f.GetCalls++
	ch, started := f.block[userID], f.started
	f.mu.Unlock()

	if started != nil {
		started <- userID
	}
	if ch != nil {
		<-ch
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpsertCalls++
	if f.UpsertErr != nil {
		return nil, f.UpsertErr
	}
	cp := *p
	f.profiles[p.UserID] = &cp
	return p, nil
}

func (f *fakeProfiles) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetCalls
}

type fakeRoles struct {
	mu     sync.Mutex
	admins map[string]bool
	Err    error
	Calls  int
}

func (f *fakeRoles) HasRole(_ context.Context, userID string, role models.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return false, f.Err
	}
	return role == models.RolePrivileged && f.admins[userID], nil
}

func (f *fakeRoles) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}
