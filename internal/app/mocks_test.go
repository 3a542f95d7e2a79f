package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
)

// ============================================================================
// Mock Profile Repository
// ============================================================================

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
	failWith error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*profile.Profile)}
}

func (m *mockProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.Email() == p.Email() {
			return profile.ErrEmailExists
		}
	}
	m.profiles[p.ID().String()] = p
	return nil
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id shared.ID) (*profile.Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id.String()]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfileRepo) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email() == strings.ToLower(email) {
			return p, nil
		}
	}
	return nil, profile.ErrProfileNotFound
}

func (m *mockProfileRepo) Update(ctx context.Context, p *profile.Profile) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID().String()]; !ok {
		return profile.ErrProfileNotFound
	}
	m.profiles[p.ID().String()] = p
	return nil
}

func (m *mockProfileRepo) Delete(ctx context.Context, id shared.ID) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id.String()]; !ok {
		return profile.ErrProfileNotFound
	}
	delete(m.profiles, id.String())
	return nil
}

func (m *mockProfileRepo) List(ctx context.Context, filter profile.ListFilter) ([]*profile.Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*profile.Profile
	for _, p := range m.profiles {
		if filter.IsActive != nil && p.IsActive() != *filter.IsActive {
			continue
		}
		if filter.Role != nil && p.Role() != *filter.Role {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProfileRepo) Count(ctx context.Context, filter profile.ListFilter) (int64, error) {
	got, err := m.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(got)), nil
}

func (m *mockProfileRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	_, err := m.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *mockProfileRepo) CountAdmins(ctx context.Context) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.profiles {
		if p.IsAdmin() && p.IsActive() {
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Mock Application Repository
// ============================================================================

type mockApplicationRepo struct {
	mu       sync.Mutex
	apps     map[string]*application.Application
	order    []string
	failWith error
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{apps: make(map[string]*application.Application)}
}

func (m *mockApplicationRepo) Create(ctx context.Context, a *application.Application) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[a.ID().String()] = a
	return nil
}

func (m *mockApplicationRepo) GetByID(ctx context.Context, id shared.ID) (*application.Application, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id.String()]
	if !ok {
		return nil, application.ErrApplicationNotFound
	}
	return a, nil
}

func (m *mockApplicationRepo) Update(ctx context.Context, a *application.Application) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[a.ID().String()]; !ok {
		return application.ErrApplicationNotFound
	}
	m.apps[a.ID().String()] = a
	return nil
}

func (m *mockApplicationRepo) Delete(ctx context.Context, id shared.ID) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[id.String()]; !ok {
		return application.ErrApplicationNotFound
	}
	delete(m.apps, id.String())
	return nil
}

func (m *mockApplicationRepo) List(ctx context.Context, filter application.ListFilter) ([]*application.Application, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*application.Application
	for _, a := range m.apps {
		if filter.IsActive != nil && a.IsActive() != *filter.IsActive {
			continue
		}
		if filter.IsPublic != nil && a.IsPublic() != *filter.IsPublic {
			continue
		}
		if filter.Tier != nil && a.Tier() != *filter.Tier {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockApplicationRepo) Count(ctx context.Context, filter application.ListFilter) (int64, error) {
	got, err := m.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(got)), nil
}

func (m *mockApplicationRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApplicationRepo) Reorder(ctx context.Context, orderedIDs []shared.ID) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = m.order[:0]
	for i, id := range orderedIDs {
		if a, ok := m.apps[id.String()]; ok {
			a.SetDisplayOrder(i)
		}
		m.order = append(m.order, id.String())
	}
	return nil
}

// ============================================================================
// Mock Group Repository
// ============================================================================

type memberKey struct{ groupID, userID string }
type grantKey struct{ groupID, appID string }

type mockGroupRepo struct {
	mu       sync.Mutex
	groups   map[string]*group.Group
	members  map[memberKey]*group.Member
	grants   map[grantKey]*group.Grant
	failWith error
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{
		groups:  make(map[string]*group.Group),
		members: make(map[memberKey]*group.Member),
		grants:  make(map[grantKey]*group.Grant),
	}
}

func (m *mockGroupRepo) Create(ctx context.Context, g *group.Group) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID().String()] = g
	return nil
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id shared.ID) (*group.Group, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id.String()]
	if !ok {
		return nil, group.ErrGroupNotFound
	}
	return g, nil
}

func (m *mockGroupRepo) GetByName(ctx context.Context, name string) (*group.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.Name() == name {
			return g, nil
		}
	}
	return nil, group.ErrGroupNotFound
}

func (m *mockGroupRepo) Update(ctx context.Context, g *group.Group) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[g.ID().String()]; !ok {
		return group.ErrGroupNotFound
	}
	m.groups[g.ID().String()] = g
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, id shared.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id.String()]; !ok {
		return group.ErrGroupNotFound
	}
	delete(m.groups, id.String())
	for k := range m.members {
		if k.groupID == id.String() {
			delete(m.members, k)
		}
	}
	for k := range m.grants {
		if k.groupID == id.String() {
			delete(m.grants, k)
		}
	}
	return nil
}

func (m *mockGroupRepo) List(ctx context.Context, filter group.ListFilter) ([]*group.Group, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*group.Group
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockGroupRepo) Count(ctx context.Context, filter group.ListFilter) (int64, error) {
	got, err := m.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(got)), nil
}

func (m *mockGroupRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := m.GetByName(ctx, name)
	return err == nil, nil
}

func (m *mockGroupRepo) AddMember(ctx context.Context, member *group.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey{member.GroupID().String(), member.UserID().String()}
	if _, ok := m.members[key]; ok {
		return nil
	}
	m.members[key] = member
	return nil
}

func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID, userID shared.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, memberKey{groupID.String(), userID.String()})
	return nil
}

func (m *mockGroupRepo) IsMember(ctx context.Context, groupID, userID shared.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[memberKey{groupID.String(), userID.String()}]
	return ok, nil
}

func (m *mockGroupRepo) ListMembers(ctx context.Context, groupID shared.ID) ([]*group.MemberWithProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*group.MemberWithProfile
	for k, member := range m.members {
		if k.groupID == groupID.String() {
			out = append(out, &group.MemberWithProfile{Member: member})
		}
	}
	return out, nil
}

func (m *mockGroupRepo) CountMembers(ctx context.Context, groupID shared.ID) (int64, error) {
	got, err := m.ListMembers(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return int64(len(got)), nil
}

func (m *mockGroupRepo) ListGroupIDsByUser(ctx context.Context, userID shared.ID) ([]shared.ID, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.ID
	for k, member := range m.members {
		if k.userID == userID.String() {
			out = append(out, member.GroupID())
		}
	}
	return out, nil
}

func (m *mockGroupRepo) UpsertGrant(ctx context.Context, g *group.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey{g.GroupID().String(), g.ApplicationID().String()}] = g
	return nil
}

func (m *mockGroupRepo) RemoveGrant(ctx context.Context, groupID, applicationID shared.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, grantKey{groupID.String(), applicationID.String()})
	return nil
}

func (m *mockGroupRepo) ListGrants(ctx context.Context, groupID shared.ID) ([]*group.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*group.Grant
	for k, g := range m.grants {
		if k.groupID == groupID.String() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) ListGrantsByApplication(ctx context.Context, applicationID shared.ID) ([]*group.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*group.Grant
	for k, g := range m.grants {
		if k.appID == applicationID.String() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) ListAllGrants(ctx context.Context) ([]*group.Grant, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*group.Grant
	for _, g := range m.grants {
		out = append(out, g)
	}
	return out, nil
}

// ============================================================================
// Mock Permission Repository
// ============================================================================

type permKey struct{ userID, appID string }

type mockPermissionRepo struct {
	mu       sync.Mutex
	grants   map[permKey]*permission.Grant
	failWith error

	// stall makes ListByUser hang until the caller's context expires,
	// simulating a database that stops answering.
	stall bool
}

func newMockPermissionRepo() *mockPermissionRepo {
	return &mockPermissionRepo{grants: make(map[permKey]*permission.Grant)}
}

func (m *mockPermissionRepo) Upsert(ctx context.Context, g *permission.Grant) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[permKey{g.UserID().String(), g.ApplicationID().String()}] = g
	return nil
}

func (m *mockPermissionRepo) GetByUserAndApp(ctx context.Context, userID, applicationID shared.ID) (*permission.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[permKey{userID.String(), applicationID.String()}]
	if !ok {
		return nil, permission.ErrGrantNotFound
	}
	return g, nil
}

func (m *mockPermissionRepo) Delete(ctx context.Context, userID, applicationID shared.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, permKey{userID.String(), applicationID.String()})
	return nil
}

func (m *mockPermissionRepo) ListByUser(ctx context.Context, userID shared.ID) ([]*permission.Grant, error) {
	if m.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*permission.Grant
	for k, g := range m.grants {
		if k.userID == userID.String() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockPermissionRepo) ListByApplication(ctx context.Context, applicationID shared.ID) ([]*permission.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*permission.Grant
	for k, g := range m.grants {
		if k.appID == applicationID.String() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockPermissionRepo) ListAll(ctx context.Context) ([]*permission.Grant, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*permission.Grant
	for _, g := range m.grants {
		out = append(out, g)
	}
	return out, nil
}

// ============================================================================
// Mock Token Store
// ============================================================================

type mockTokenStore struct {
	mu          sync.Mutex
	blacklisted map[string]bool
	refresh     map[string]map[string]bool // userID -> tokenHash set
	revokedAll  []string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{
		blacklisted: make(map[string]bool),
		refresh:     make(map[string]map[string]bool),
	}
}

func (m *mockTokenStore) BlacklistToken(ctx context.Context, jti string, expiry time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklisted[jti] = true
	return nil
}

func (m *mockTokenStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blacklisted[jti], nil
}

func (m *mockTokenStore) StoreRefreshToken(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refresh[userID] == nil {
		m.refresh[userID] = make(map[string]bool)
	}
	m.refresh[userID][tokenHash] = true
	return nil
}

func (m *mockTokenStore) ValidateRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh[userID][tokenHash], nil
}

func (m *mockTokenStore) RevokeRefreshToken(ctx context.Context, userID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh[userID], tokenHash)
	return nil
}

func (m *mockTokenStore) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, userID)
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockTokenStore) RotateRefreshToken(ctx context.Context, userID, oldTokenHash, newTokenHash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.refresh[userID][oldTokenHash] {
		return nil
	}
	delete(m.refresh[userID], oldTokenHash)
	m.refresh[userID][newTokenHash] = true
	return nil
}

// ============================================================================
// Mock Access Cache
// ============================================================================

type mockAccessCache struct {
	mu      sync.Mutex
	entries map[string]ResolvedAccess
	flushed bool
}

func newMockAccessCache() *mockAccessCache {
	return &mockAccessCache{entries: make(map[string]ResolvedAccess)}
}

func (m *mockAccessCache) Get(ctx context.Context, key string) (*ResolvedAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *mockAccessCache) Set(ctx context.Context, key string, value ResolvedAccess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mockAccessCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *mockAccessCache) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]ResolvedAccess)
	m.flushed = true
	return nil
}
