package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"platform_backend/internal/events"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/ws"

	"github.com/google/uuid"
)

var errStorage = errors.New("storage unavailable")

type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeSubscriptionRepo struct {
	byExternal map[string]*models.Subscription
	updated    []models.Subscription
	updateErr  error
}

func newFakeSubscriptionRepo(subs ...*models.Subscription) *fakeSubscriptionRepo {
	r := &fakeSubscriptionRepo{byExternal: make(map[string]*models.Subscription)}
	for _, s := range subs {
		r.byExternal[s.ExternalSubscriptionID] = s
	}
	return r
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, s *models.Subscription) error {
	r.byExternal[s.ExternalSubscriptionID] = s
	return nil
}

func (r *fakeSubscriptionRepo) FindByID(_ context.Context, id string) (*models.Subscription, error) {
	for _, s := range r.byExternal {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) FindByExternalID(_ context.Context, externalID string) (*models.Subscription, error) {
	s, ok := r.byExternal[externalID]
	if !ok {
		return nil, repositories.ErrSubscriptionNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSubscriptionRepo) FindByUser(_ context.Context, userID string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range r.byExternal {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, s *models.Subscription) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	copied := *s
	r.byExternal[s.ExternalSubscriptionID] = &copied
	r.updated = append(r.updated, copied)
	return nil
}

type fakePaymentRepo struct {
	payments []models.Payment
	err      error
}

func (r *fakePaymentRepo) Create(_ context.Context, p *models.Payment) error {
	if r.err != nil {
		return r.err
	}
	p.ID = uuid.NewString()
	r.payments = append(r.payments, *p)
	return nil
}

func (r *fakePaymentRepo) FindBySubscription(_ context.Context, subscriptionID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.payments {
		if p.SubscriptionID == subscriptionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindByUser(_ context.Context, userID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users  map[string]*models.User
	active map[string]bool
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User), active: make(map[string]bool)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) SetActiveSubscription(_ context.Context, userID string, active bool) error {
	r.active[userID] = active
	return nil
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*models.Device // sessionID -> device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*models.Device)}
}

func (r *fakeDeviceRepo) Create(_ context.Context, d *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.NewString()
	copied := *d
	r.devices[d.SessionID] = &copied
	return nil
}

func (r *fakeDeviceRepo) FindBySessionID(_ context.Context, sessionID string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[sessionID]
	if !ok {
		return nil, repositories.ErrDeviceNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDeviceRepo) FindByUser(_ context.Context, userID string) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Device
	for _, d := range r.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) BumpTokenVersion(_ context.Context, sessionID string, expected int, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[sessionID]
	if !ok || d.TokenVersion != expected {
		return repositories.ErrDeviceNotFound
	}
	d.TokenVersion++
	d.LastSeenAt = seenAt
	return nil
}

func (r *fakeDeviceRepo) DeleteBySessionID(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[sessionID]; !ok {
		return repositories.ErrDeviceNotFound
	}
	delete(r.devices, sessionID)
	return nil
}

func (r *fakeDeviceRepo) DeleteByUserExcept(_ context.Context, userID, keep string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for sid, d := range r.devices {
		if d.UserID == userID && sid != keep {
			delete(r.devices, sid)
			n++
		}
	}
	return n, nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
	read    map[string]bool
	missing bool
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeNotificationRepo) FindByID(_ context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.created {
		if n.ID == id {
			copied := n
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) FindByUser(_ context.Context, userID string, c repositories.NotificationCriteria) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.created {
		if n.UserID == userID && (c.Type == "" || n.Type == c.Type) {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, userID, id string, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing {
		return false, repositories.ErrNotificationNotFound
	}
	owned := false
	for _, n := range r.created {
		if n.ID == id && n.UserID == userID {
			owned = true
			break
		}
	}
	if !owned {
		return false, repositories.ErrNotificationNotFound
	}
	if r.read == nil {
		r.read = make(map[string]bool)
	}
	if r.read[id] {
		return false, nil
	}
	r.read[id] = true
	return true, nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(_ context.Context, userID string, _ time.Time) (int64, error) {
	return int64(len(r.created)), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, _ string) (int64, error) {
	return int64(len(r.created)), nil
}

func (r *fakeNotificationRepo) CountArchivable(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeNotificationRepo) Archive(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *fakeNotificationRepo) CountPurgeable(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeNotificationRepo) Purge(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type fakeSettingsRepo struct {
	rows map[string]models.NotificationSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: make(map[string]models.NotificationSettings)}
}

func settingsKey(userID string, t models.NotificationType) string { return userID + ":" + string(t) }

func (r *fakeSettingsRepo) Find(_ context.Context, userID string, t models.NotificationType) (*models.NotificationSettings, error) {
	s, ok := r.rows[settingsKey(userID, t)]
	if !ok {
		return nil, repositories.ErrSettingsNotFound
	}
	return &s, nil
}

func (r *fakeSettingsRepo) FindByUser(_ context.Context, userID string) ([]models.NotificationSettings, error) {
	var out []models.NotificationSettings
	for _, s := range r.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, s *models.NotificationSettings) error {
	r.rows[settingsKey(s.UserID, s.Type)] = *s
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.NotificationEvent
}

func (r *recordingEmitter) Notify(_ context.Context, ev events.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) all() []events.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.NotificationEvent(nil), r.events...)
}

type emitted struct {
	event string
	data  any
}

type fakeConn struct {
	id      string
	err     error
	emitted []emitted
}

func (c *fakeConn) SocketID() string { return c.id }

func (c *fakeConn) Emit(event string, data any) error {
	if c.err != nil {
		return c.err
	}
	c.emitted = append(c.emitted, emitted{event: event, data: data})
	return nil
}

type fakeConns map[string]*fakeConn

func (f fakeConns) Get(userID string) (ws.Conn, bool) {
	c, ok := f[userID]
	if !ok {
		return nil, false
	}
	return c, true
}

type memoryCounterStore struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{values: make(map[string]int64)}
}

func (m *memoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.values[key], nil
}

func (m *memoryCounterStore) Set(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

// atomicCounterStore дополнительно умеет IncrBy, как redis
type atomicCounterStore struct {
	*memoryCounterStore
	incrCalls int
}

func (a *atomicCounterStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.incrCalls++
	a.values[key] += delta
	return a.values[key], nil
}
