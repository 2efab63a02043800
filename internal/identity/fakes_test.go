package identity

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	remotemodels "github.com/dmitrijs2005/storefront/internal/remote/models"
	"github.com/dmitrijs2005/storefront/internal/remote/repositories/carts"
	"github.com/dmitrijs2005/storefront/internal/remote/repositories/profiles"
	"github.com/dmitrijs2005/storefront/internal/remote/repositories/refreshtokens"
	"github.com/dmitrijs2005/storefront/internal/remote/repositories/roles"
	"github.com/dmitrijs2005/storefront/internal/remote/repositories/users"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*remotemodels.User
	seq     int

	getErr    error
	createErr error
}

func (f *fakeUsers) Create(_ context.Context, u *remotemodels.User) (*remotemodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrAlreadyExists
	}
	f.seq++
	u.ID = fmt.Sprintf("u-%d", f.seq)
	c := *u
	f.byEmail[u.Email] = &c
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*remotemodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*remotemodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) UpdateEmail(_ context.Context, id, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for old, u := range f.byEmail {
		if u.ID == id {
			delete(f.byEmail, old)
			u.Email = email
			f.byEmail[email] = u
			return nil
		}
	}
	return common.ErrNotFound
}

type fakeRefresh struct {
	mu      sync.Mutex
	tokens  map[string]*remotemodels.RefreshToken
	deleted []string

	findErr error
}

func (f *fakeRefresh) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = &remotemodels.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (f *fakeRefresh) Find(_ context.Context, token string) (*remotemodels.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *rt
	return &c, nil
}

func (f *fakeRefresh) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefresh) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[string]*models.Profile
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	f.byID[p.UserID] = &c
	return &c, nil
}

type fakeRoles struct {
	mu     sync.Mutex
	grants map[string][]models.Role
}

func (f *fakeRoles) HasRole(_ context.Context, userID string, role models.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.grants[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) Grant(_ context.Context, userID string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[userID] = append(f.grants[userID], role)
	return nil
}

type fakeRepoManager struct {
	users    *fakeUsers
	refresh  *fakeRefresh
	profiles *fakeProfiles
	roles    *fakeRoles
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    &fakeUsers{byEmail: map[string]*remotemodels.User{}},
		refresh:  &fakeRefresh{tokens: map[string]*remotemodels.RefreshToken{}},
		profiles: &fakeProfiles{byID: map[string]*models.Profile{}},
		roles:    &fakeRoles{grants: map[string][]models.Role{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository           { return m.profiles }
func (m *fakeRepoManager) Roles(dbx.DBTX) roles.Repository                 { return m.roles }
func (m *fakeRepoManager) Carts(dbx.DBTX) carts.Repository                 { return nil }

type recorder struct {
	mu     sync.Mutex
	events []models.ProviderEvent
}

func (r *recorder) record(ev models.ProviderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last() models.ProviderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
