package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend/internal/event"
	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes for the repository interfaces. They implement just enough
// behavior for the state-machine and routing tests; persistence details are
// covered by the sqlmock repository tests.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- item requests ---

type fakeItemRequestRepo struct {
	requests map[uuid.UUID]*model.ItemRequest
	seq      int
}

func newFakeItemRequestRepo() *fakeItemRequestRepo {
	return &fakeItemRequestRepo{requests: make(map[uuid.UUID]*model.ItemRequest)}
}

func (f *fakeItemRequestRepo) Create(_ context.Context, req *model.ItemRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	for i := range req.Lines {
		if req.Lines[i].ID == uuid.Nil {
			req.Lines[i].ID = uuid.New()
		}
		req.Lines[i].RequestID = req.ID
	}
	f.requests[req.ID] = req
	return nil
}

func (f *fakeItemRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	return f.get(id)
}

func (f *fakeItemRequestRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	return f.get(id)
}

func (f *fakeItemRequestRepo) FindByIDWithRelations(_ context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	return f.get(id)
}

func (f *fakeItemRequestRepo) get(id uuid.UUID) (*model.ItemRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return req, nil
}

func (f *fakeItemRequestRepo) List(_ context.Context, status string, requesterID *uuid.UUID, _, _ int) ([]model.ItemRequest, int64, error) {
	var out []model.ItemRequest
	for _, req := range f.requests {
		if status != "" && req.Status != status {
			continue
		}
		if requesterID != nil && req.RequesterID != *requesterID {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (f *fakeItemRequestRepo) Update(_ context.Context, req *model.ItemRequest) error {
	f.requests[req.ID] = req
	return nil
}

func (f *fakeItemRequestRepo) UpdateLine(_ context.Context, _ *model.ItemRequestLine) error {
	return nil
}

func (f *fakeItemRequestRepo) NextRequestNumber(_ context.Context) (string, error) {
	f.seq++
	return fmt.Sprintf("REQ-20260830-%05d", f.seq), nil
}

// --- supply requests ---

type fakeSupplyRequestRepo struct {
	requests map[uuid.UUID]*model.SupplyRequest
	seq      int
}

func newFakeSupplyRequestRepo() *fakeSupplyRequestRepo {
	return &fakeSupplyRequestRepo{requests: make(map[uuid.UUID]*model.SupplyRequest)}
}

func (f *fakeSupplyRequestRepo) Create(_ context.Context, req *model.SupplyRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	for i := range req.Lines {
		if req.Lines[i].ID == uuid.Nil {
			req.Lines[i].ID = uuid.New()
		}
		req.Lines[i].RequestID = req.ID
	}
	f.requests[req.ID] = req
	return nil
}

func (f *fakeSupplyRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.SupplyRequest, error) {
	return f.get(id)
}

func (f *fakeSupplyRequestRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.SupplyRequest, error) {
	return f.get(id)
}

func (f *fakeSupplyRequestRepo) FindByIDWithRelations(_ context.Context, id uuid.UUID) (*model.SupplyRequest, error) {
	return f.get(id)
}

func (f *fakeSupplyRequestRepo) get(id uuid.UUID) (*model.SupplyRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return req, nil
}

func (f *fakeSupplyRequestRepo) List(_ context.Context, status string, requesterID *uuid.UUID, _, _ int) ([]model.SupplyRequest, int64, error) {
	var out []model.SupplyRequest
	for _, req := range f.requests {
		if status != "" && req.Status != status {
			continue
		}
		if requesterID != nil && req.RequesterID != *requesterID {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSupplyRequestRepo) Update(_ context.Context, req *model.SupplyRequest) error {
	f.requests[req.ID] = req
	return nil
}

func (f *fakeSupplyRequestRepo) UpdateLine(_ context.Context, _ *model.SupplyRequestLine) error {
	return nil
}

func (f *fakeSupplyRequestRepo) NextRequestNumber(_ context.Context) (string, error) {
	f.seq++
	return fmt.Sprintf("SUP-20260830-%05d", f.seq), nil
}

// --- stock ---

type fakeItemRepo struct {
	items map[uuid.UUID]*model.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uuid.UUID]*model.Item)}
}

func (f *fakeItemRepo) Create(_ context.Context, item *model.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeItemRepo) Update(_ context.Context, item *model.Item) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

func (f *fakeItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeItemRepo) List(_ context.Context, _, _ int, _ string) ([]model.Item, int64, error) {
	var out []model.Item
	for _, item := range f.items {
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (f *fakeItemRepo) ListBelowThreshold(_ context.Context) ([]model.Item, error) {
	var out []model.Item
	for _, item := range f.items {
		if item.Quantity <= item.ReorderThreshold {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) UpdateQuantity(_ context.Context, id uuid.UUID, quantity int) error {
	item, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	return nil
}

type fakeSupplyRepo struct {
	supplies map[uuid.UUID]*model.OfficeSupply
}

func newFakeSupplyRepo() *fakeSupplyRepo {
	return &fakeSupplyRepo{supplies: make(map[uuid.UUID]*model.OfficeSupply)}
}

func (f *fakeSupplyRepo) Create(_ context.Context, supply *model.OfficeSupply) error {
	if supply.ID == uuid.Nil {
		supply.ID = uuid.New()
	}
	f.supplies[supply.ID] = supply
	return nil
}

func (f *fakeSupplyRepo) Update(_ context.Context, supply *model.OfficeSupply) error {
	f.supplies[supply.ID] = supply
	return nil
}

func (f *fakeSupplyRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.supplies, id)
	return nil
}

func (f *fakeSupplyRepo) FindByID(_ context.Context, id uuid.UUID) (*model.OfficeSupply, error) {
	supply, ok := f.supplies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return supply, nil
}

func (f *fakeSupplyRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.OfficeSupply, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeSupplyRepo) List(_ context.Context, _, _ int, _ string) ([]model.OfficeSupply, int64, error) {
	var out []model.OfficeSupply
	for _, supply := range f.supplies {
		out = append(out, *supply)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSupplyRepo) ListBelowThreshold(_ context.Context) ([]model.OfficeSupply, error) {
	var out []model.OfficeSupply
	for _, supply := range f.supplies {
		if supply.Quantity <= supply.ReorderThreshold {
			out = append(out, *supply)
		}
	}
	return out, nil
}

func (f *fakeSupplyRepo) UpdateQuantity(_ context.Context, id uuid.UUID, quantity int) error {
	supply, ok := f.supplies[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supply.Quantity = quantity
	return nil
}

type fakeMovementRepo struct {
	movements []model.StockMovement
}

func (f *fakeMovementRepo) Create(_ context.Context, movement *model.StockMovement) error {
	f.movements = append(f.movements, *movement)
	return nil
}

func (f *fakeMovementRepo) ListByEntity(_ context.Context, kind string, entityID uuid.UUID, _, _ int) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range f.movements {
		if m.EntityKind == kind && m.EntityID == entityID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

// --- users, preferences, outbox ---

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	user, ok := f.users[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetFirstByRole(_ context.Context, role string) (*model.User, error) {
	for _, u := range f.users {
		if u.Role == role {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	delete(f.users, parsed)
	return nil
}

type fakePrefRepo struct {
	prefs map[uuid.UUID]*model.NotificationPreference
}

func newFakePrefRepo(prefs ...*model.NotificationPreference) *fakePrefRepo {
	f := &fakePrefRepo{prefs: make(map[uuid.UUID]*model.NotificationPreference)}
	for _, p := range prefs {
		f.prefs[p.UserID] = p
	}
	return f
}

func (f *fakePrefRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	pref, ok := f.prefs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pref, nil
}

func (f *fakePrefRepo) GetOrCreate(_ context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if pref, ok := f.prefs[userID]; ok {
		return pref, nil
	}
	created := model.DefaultPreference(userID)
	f.prefs[userID] = &created
	return &created, nil
}

func (f *fakePrefRepo) Update(_ context.Context, pref *model.NotificationPreference) error {
	f.prefs[pref.UserID] = pref
	return nil
}

type fakeLogRepo struct {
	entries []model.NotificationLog
}

func (f *fakeLogRepo) Create(_ context.Context, entry *model.NotificationLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogRepo) List(_ context.Context, status string, _, _ int) ([]model.NotificationLog, int64, error) {
	var out []model.NotificationLog
	for _, e := range f.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeLogRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]model.NotificationLog, int64, error) {
	var out []model.NotificationLog
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type fakeOutboxRepo struct {
	jobs []*model.OutboxJob
}

func (f *fakeOutboxRepo) Enqueue(_ context.Context, job *model.OutboxJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeOutboxRepo) ClaimDue(_ context.Context, _ string, _ int) ([]model.OutboxJob, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkSent(_ context.Context, id uuid.UUID) error {
	return f.setStatus(id, model.JobStatusSent)
}

func (f *fakeOutboxRepo) MarkSkipped(_ context.Context, id uuid.UUID) error {
	return f.setStatus(id, model.JobStatusSkipped)
}

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	return f.setStatus(id, model.JobStatusFailed)
}

func (f *fakeOutboxRepo) setStatus(id uuid.UUID, status string) error {
	for _, job := range f.jobs {
		if job.ID == id {
			job.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeOutboxRepo) Reschedule(_ context.Context, id uuid.UUID, _ string, _ time.Time) error {
	return f.setStatus(id, model.JobStatusPending)
}

func (f *fakeOutboxRepo) ReleaseStale(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeTokenRepo struct {
	tokens map[string]*model.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.RefreshToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeTokenRepo) FindByToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rt, nil
}

func (f *fakeTokenRepo) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeTokenRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for token, rt := range f.tokens {
		if rt.UserID == userID {
			delete(f.tokens, token)
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) error {
	for token, rt := range f.tokens {
		if time.Now().After(rt.ExpiresAt) {
			delete(f.tokens, token)
		}
	}
	return nil
}

// captureEvents subscribes a recording handler to the bus and returns the
// accessor for published events.
func captureEvents(bus *event.Bus) func() []event.Event {
	var mu sync.Mutex
	var events []event.Event
	bus.Subscribe(func(_ context.Context, e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	return func() []event.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]event.Event(nil), events...)
	}
}
