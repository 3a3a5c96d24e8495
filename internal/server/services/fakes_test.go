package services

// In-memory repository fakes backing the service tests. The fakes keep the
// repositories' observable contracts (generated ids, ErrNotFound on misses,
// half-open overlap test) so the services can be exercised end to end
// without PostgreSQL. A shared sqlite handle supplies the Begin/Commit
// plumbing for dbx.WithTx.

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/notify"
	eventsrepo "eventcal-backend/internal/server/repositories/events"
	historyrepo "eventcal-backend/internal/server/repositories/history"
	permissionsrepo "eventcal-backend/internal/server/repositories/permissions"
	usersrepo "eventcal-backend/internal/server/repositories/users"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:services_tests?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// --- users ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User

	createErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	f.users[user.ID] = &cp
	return user, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

// --- events ---

type fakeEventsRepo struct {
	mu     sync.Mutex
	events map[string]*models.Event

	createErr error
	updateErr error
}

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{events: make(map[string]*models.Event)}
}

func cloneEvent(e *models.Event) *models.Event {
	cp := *e
	cp.Permissions = nil
	return &cp
}

func (f *fakeEventsRepo) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	f.events[event.ID] = cloneEvent(event)
	return event, nil
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (f *fakeEventsRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEventsRepo) Update(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.events[event.ID]; !ok {
		return common.ErrNotFound
	}
	f.events[event.ID] = cloneEvent(event)
	return nil
}

func (f *fakeEventsRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventsRepo) ListForUser(ctx context.Context, userID string, skip, limit int) ([]*models.Event, error) {
	// Membership filtering lives in the permissions table; the fake returns
	// all events ordered by start time and lets callers assert on that.
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Event
	for _, e := range f.events {
		all = append(all, cloneEvent(e))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	if skip >= len(all) {
		return nil, nil
	}
	all = all[skip:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeEventsRepo) AnyOverlapping(ctx context.Context, ownerID string, start, end time.Time, excludeEventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.OwnerID != ownerID || e.ID == excludeEventID {
			continue
		}
		if e.StartTime.Before(end) && e.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

// --- permissions ---

type fakePermissionsRepo struct {
	mu    sync.Mutex
	perms map[string]*models.Permission // key eventID + "/" + userID
}

func newFakePermissionsRepo() *fakePermissionsRepo {
	return &fakePermissionsRepo{perms: make(map[string]*models.Permission)}
}

func permKey(eventID, userID string) string { return eventID + "/" + userID }

func (f *fakePermissionsRepo) Get(ctx context.Context, eventID, userID string) (*models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.perms[permKey(eventID, userID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePermissionsRepo) Create(ctx context.Context, perm *models.Permission) (*models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if perm.ID == "" {
		perm.ID = uuid.NewString()
	}
	cp := *perm
	f.perms[permKey(perm.EventID, perm.UserID)] = &cp
	return perm, nil
}

func (f *fakePermissionsRepo) ListByEvent(ctx context.Context, eventID string) ([]*models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Permission
	for _, p := range f.perms {
		if p.EventID == eventID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (f *fakePermissionsRepo) UpdateRole(ctx context.Context, eventID, userID string, role models.PermissionRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.perms[permKey(eventID, userID)]
	if !ok {
		return common.ErrNotFound
	}
	p.Role = role
	return nil
}

func (f *fakePermissionsRepo) Delete(ctx context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := permKey(eventID, userID)
	if _, ok := f.perms[key]; !ok {
		return common.ErrNotFound
	}
	delete(f.perms, key)
	return nil
}

func (f *fakePermissionsRepo) ParticipantIDs(ctx context.Context, eventID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, p := range f.perms {
		if p.EventID == eventID {
			ids = append(ids, p.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// deleteByEvent mimics the schema cascade that removes permission rows with
// their event.
func (f *fakePermissionsRepo) deleteByEvent(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, p := range f.perms {
		if p.EventID == eventID {
			delete(f.perms, key)
		}
	}
}

// --- history ---

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows []*models.History

	createErr error
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (f *fakeHistoryRepo) NextVersion(ctx context.Context, eventID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for _, h := range f.rows {
		if h.EventID == eventID && h.Version > max {
			max = h.Version
		}
	}
	return max + 1, nil
}

func (f *fakeHistoryRepo) Create(ctx context.Context, h *models.History) (*models.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	cp := *h
	f.rows = append(f.rows, &cp)
	return h, nil
}

func (f *fakeHistoryRepo) ListByEvent(ctx context.Context, eventID string) ([]*models.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.History
	for _, h := range f.rows {
		if h.EventID == eventID {
			cp := *h
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

func (f *fakeHistoryRepo) GetByID(ctx context.Context, id string) (*models.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.rows {
		if h.ID == id {
			cp := *h
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

// --- repomanager ---

type fakeRepoManager struct {
	users       *fakeUsersRepo
	events      *fakeEventsRepo
	permissions *fakePermissionsRepo
	history     *fakeHistoryRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:       newFakeUsersRepo(),
		events:      newFakeEventsRepo(),
		permissions: newFakePermissionsRepo(),
		history:     newFakeHistoryRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.users }

func (m *fakeRepoManager) Events(db dbx.DBTX) eventsrepo.Repository { return m.events }

func (m *fakeRepoManager) Permissions(db dbx.DBTX) permissionsrepo.Repository {
	return m.permissions
}

func (m *fakeRepoManager) History(db dbx.DBTX) historyrepo.Repository { return m.history }

// --- publisher ---

type publishedMessage struct {
	UserIDs      []string
	Notification notify.Notification
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *fakePublisher) Publish(ctx context.Context, userIDs []string, n notify.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{UserIDs: userIDs, Notification: n})
	return nil
}

func (p *fakePublisher) published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

// --- revocation store ---

type fakeRevocationStore struct {
	mu      sync.Mutex
	jtis    map[string]string
	revoked map[string]bool
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{jtis: make(map[string]string), revoked: make(map[string]bool)}
}

func (s *fakeRevocationStore) PutRefreshJTI(ctx context.Context, jti, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jtis[jti] = userID
	return nil
}

func (s *fakeRevocationStore) RefreshJTIExists(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jtis[jti]
	return ok, nil
}

func (s *fakeRevocationStore) DeleteRefreshJTI(ctx context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jtis, jti)
	return nil
}

func (s *fakeRevocationStore) RevokeAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
	return nil
}

func (s *fakeRevocationStore) IsAccessTokenRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token], nil
}
