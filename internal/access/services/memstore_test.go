package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/pkg/apperrors"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory Store that enforces the same partial unique
// constraint as the Mongo index.
type memStore struct {
	mu        sync.Mutex
	access    map[primitive.ObjectID]*models.AccessRecord
	order     []primitive.ObjectID
	history   []models.PermissionHistoryEntry
	templates map[primitive.ObjectID]*models.PermissionTemplate

	// replaceHook, when set, can fail a ReplaceAccess call
	replaceHook func(rec *models.AccessRecord) error
	touched     map[primitive.ObjectID]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		access:    make(map[primitive.ObjectID]*models.AccessRecord),
		templates: make(map[primitive.ObjectID]*models.PermissionTemplate),
		touched:   make(map[primitive.ObjectID]time.Time),
	}
}

var _ Store = (*memStore)(nil)

func (m *memStore) conflicts(rec *models.AccessRecord) bool {
	if rec.Status != models.StatusActive {
		return false
	}
	for id, other := range m.access {
		if id != rec.ID && other.Status == models.StatusActive && other.User == rec.User && other.Department == rec.Department {
			return true
		}
	}
	return false
}

func (m *memStore) FindActiveAccess(_ context.Context, userID, departmentID primitive.ObjectID) (*models.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		rec := m.access[id]
		if rec.User == userID && rec.Department == departmentID && rec.Status == models.StatusActive {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindAccessByID(_ context.Context, id primitive.ObjectID) (*models.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.access[id]; ok {
		return rec.Clone(), nil
	}
	return nil, nil
}

func (m *memStore) filter(keep func(*models.AccessRecord) bool) []models.AccessRecord {
	out := make([]models.AccessRecord, 0)
	for _, id := range m.order {
		if rec := m.access[id]; keep(rec) {
			out = append(out, *rec.Clone())
		}
	}
	return out
}

func (m *memStore) FindAccessByUser(_ context.Context, userID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(r *models.AccessRecord) bool {
		return r.User == userID && (includeInactive || r.Status == models.StatusActive)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Assignment.IsPrimary != out[j].Assignment.IsPrimary {
			return out[i].Assignment.IsPrimary
		}
		return out[i].Assignment.Priority > out[j].Assignment.Priority
	})
	return out, nil
}

func (m *memStore) FindAccessByDepartment(_ context.Context, departmentID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(r *models.AccessRecord) bool {
		return r.Department == departmentID && (includeInactive || r.Status == models.StatusActive)
	}), nil
}

func (m *memStore) FindExpiredActive(_ context.Context, now time.Time) ([]models.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(r *models.AccessRecord) bool {
		return r.Status == models.StatusActive && r.Validity.EndDate != nil && r.Validity.EndDate.Before(now)
	}), nil
}

func (m *memStore) InsertAccess(_ context.Context, rec *models.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if m.conflicts(rec) {
		return apperrors.AlreadyExists("user already has active access to this department")
	}
	m.access[rec.ID] = rec.Clone()
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *memStore) ReplaceAccess(_ context.Context, rec *models.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceHook != nil {
		if err := m.replaceHook(rec); err != nil {
			return err
		}
	}
	if _, ok := m.access[rec.ID]; !ok {
		return apperrors.NotFound("access record", rec.ID.Hex())
	}
	if m.conflicts(rec) {
		return apperrors.AlreadyExists("user already has active access to this department")
	}
	m.access[rec.ID] = rec.Clone()
	return nil
}

func (m *memStore) TouchLastAccessed(_ context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.access[id]; ok {
		rec.LastAccessed = &at
		m.touched[id] = at
	}
	return nil
}

func (m *memStore) InsertHistory(_ context.Context, entry *models.PermissionHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) FindHistory(_ context.Context, accessID primitive.ObjectID) ([]models.PermissionHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PermissionHistoryEntry, 0)
	for _, e := range m.history {
		if e.AccessRecordID == accessID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) InsertTemplate(_ context.Context, tmpl *models.PermissionTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.Name == tmpl.Name {
			return apperrors.AlreadyExists("template already exists")
		}
	}
	if tmpl.ID.IsZero() {
		tmpl.ID = primitive.NewObjectID()
	}
	c := *tmpl
	m.templates[tmpl.ID] = &c
	return nil
}

func (m *memStore) FindTemplateByID(_ context.Context, id primitive.ObjectID) (*models.PermissionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.templates[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) FindTemplateByName(_ context.Context, name string) (*models.PermissionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListTemplates(_ context.Context, activeOnly bool) ([]models.PermissionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PermissionTemplate, 0)
	for _, t := range m.templates {
		if !activeOnly || t.IsActive {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ReplaceTemplate(_ context.Context, tmpl *models.PermissionTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[tmpl.ID]; !ok {
		return apperrors.NotFound("permission template", tmpl.ID.Hex())
	}
	c := *tmpl
	m.templates[tmpl.ID] = &c
	return nil
}

// WithTransaction has no rollback, like a standalone mongod
func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) historyFor(id primitive.ObjectID) []models.PermissionHistoryEntry {
	entries, _ := m.FindHistory(context.Background(), id)
	return entries
}

// mockContracts is a testify mock for ContractLookup
type mockContracts struct {
	mock.Mock
}

func (m *mockContracts) FindContract(ctx context.Context, id primitive.ObjectID) (*models.ContractRef, error) {
	args := m.Called(ctx, id)
	contract, _ := args.Get(0).(*models.ContractRef)
	return contract, args.Error(1)
}

// memCache is an in-process DecisionCache
type memCache struct {
	mu          sync.Mutex
	entries     map[string]map[string]Decision
	ttls        map[string]time.Duration
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{
		entries: make(map[string]map[string]Decision),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *memCache) Get(_ context.Context, userID, departmentID primitive.ObjectID, field string) (*Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[decisionKey(userID, departmentID)][field]
	if !ok {
		return nil, false
	}
	return &d, true
}

func (c *memCache) Set(_ context.Context, userID, departmentID primitive.ObjectID, field string, d *Decision, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := decisionKey(userID, departmentID)
	if c.entries[key] == nil {
		c.entries[key] = make(map[string]Decision)
	}
	c.entries[key][field] = *d
	c.ttls[key+"|"+field] = ttl
}

func (c *memCache) Invalidate(_ context.Context, userID, departmentID primitive.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, decisionKey(userID, departmentID))
	c.invalidated++
}
