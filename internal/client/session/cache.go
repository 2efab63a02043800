package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/validity"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// cachedSession is the persisted copy of the profile and role domains, used
// to take the fast path of Init across restarts.
type cachedSession struct {
	UserID           string          `json:"user_id"`
	Profile          *models.Profile `json:"profile,omitempty"`
	Role             models.Role     `json:"role"`
	ProfileCheckedAt time.Time       `json:"profile_checked_at"`
	RoleCheckedAt    time.Time       `json:"role_checked_at"`
}

func (m *Machine) loadCache(ctx context.Context, userID string) {
	raw, err := m.kv.Get(ctx, common.KeySessionCache)
	if err != nil {
		m.log.Warn(ctx, "session cache read failed", "err", err)
		return
	}
	if raw == nil {
		return
	}

	var c cachedSession
	if err := json.Unmarshal(raw, &c); err != nil {
		m.log.Warn(ctx, "session cache is corrupt", "err", err)
		return
	}
	if c.UserID != userID {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = c.Profile
	m.role = c.Role
	m.tracker.MarkCheckedAt(validity.DomainProfile, c.ProfileCheckedAt)
	m.tracker.MarkCheckedAt(validity.DomainRole, c.RoleCheckedAt)
}

func (m *Machine) saveCache(ctx context.Context, c cachedSession) {
	raw, err := json.Marshal(c)
	if err != nil {
		m.log.Warn(ctx, "session cache encode failed", "err", err)
		return
	}
	if err := m.kv.Set(ctx, common.KeySessionCache, raw); err != nil {
		m.log.Warn(ctx, "session cache write failed", "err", err)
	}
}

func (m *Machine) dropCache(ctx context.Context) {
	if err := m.kv.Delete(ctx, common.KeySessionCache); err != nil {
		m.log.Warn(ctx, "session cache delete failed", "err", err)
	}
}
