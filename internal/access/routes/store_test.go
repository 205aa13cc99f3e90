package routes

import (
	"context"
	"sync"
	"time"

	"gad-esmeraldas/internal/access/models"
	"gad-esmeraldas/internal/access/services"
	"gad-esmeraldas/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore keeps access data in memory and enforces the one ACTIVE record
// per (user, department) rule like the Mongo partial index.
type memStore struct {
	mu        sync.Mutex
	access    []*models.AccessRecord
	history   []models.PermissionHistoryEntry
	templates []*models.PermissionTemplate
}

var _ services.Store = (*memStore)(nil)

func (m *memStore) conflicts(rec *models.AccessRecord) bool {
	if rec.Status != models.StatusActive {
		return false
	}
	for _, other := range m.access {
		if other.ID != rec.ID && other.Status == models.StatusActive && other.User == rec.User && other.Department == rec.Department {
			return true
		}
	}
	return false
}

func (m *memStore) filter(keep func(*models.AccessRecord) bool) []models.AccessRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AccessRecord{}
	for _, rec := range m.access {
		if keep(rec) {
			out = append(out, *rec.Clone())
		}
	}
	return out
}

func (m *memStore) FindActiveAccess(_ context.Context, userID, departmentID primitive.ObjectID) (*models.AccessRecord, error) {
	found := m.filter(func(r *models.AccessRecord) bool {
		return r.User == userID && r.Department == departmentID && r.Status == models.StatusActive
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (m *memStore) FindAccessByID(_ context.Context, id primitive.ObjectID) (*models.AccessRecord, error) {
	found := m.filter(func(r *models.AccessRecord) bool { return r.ID == id })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (m *memStore) FindAccessByUser(_ context.Context, userID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	return m.filter(func(r *models.AccessRecord) bool {
		return r.User == userID && (includeInactive || r.IsActive)
	}), nil
}

func (m *memStore) FindAccessByDepartment(_ context.Context, departmentID primitive.ObjectID, includeInactive bool) ([]models.AccessRecord, error) {
	return m.filter(func(r *models.AccessRecord) bool {
		return r.Department == departmentID && (includeInactive || r.IsActive)
	}), nil
}

func (m *memStore) FindExpiredActive(_ context.Context, now time.Time) ([]models.AccessRecord, error) {
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
	m.access = append(m.access, rec.Clone())
	return nil
}

func (m *memStore) ReplaceAccess(_ context.Context, rec *models.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(rec) {
		return apperrors.AlreadyExists("user already has active access to this department")
	}
	for i, existing := range m.access {
		if existing.ID == rec.ID {
			m.access[i] = rec.Clone()
			return nil
		}
	}
	return apperrors.NotFound("access record", rec.ID.Hex())
}

func (m *memStore) TouchLastAccessed(context.Context, primitive.ObjectID, time.Time) error {
	return nil
}

func (m *memStore) InsertHistory(_ context.Context, entry *models.PermissionHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) FindHistory(_ context.Context, accessID primitive.ObjectID) ([]models.PermissionHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PermissionHistoryEntry{}
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
			return apperrors.AlreadyExists("template name already in use")
		}
	}
	if tmpl.ID.IsZero() {
		tmpl.ID = primitive.NewObjectID()
	}
	copied := *tmpl
	m.templates = append(m.templates, &copied)
	return nil
}

func (m *memStore) findTemplate(match func(*models.PermissionTemplate) bool) *models.PermissionTemplate {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if match(t) {
			copied := *t
			return &copied
		}
	}
	return nil
}

func (m *memStore) FindTemplateByID(_ context.Context, id primitive.ObjectID) (*models.PermissionTemplate, error) {
	return m.findTemplate(func(t *models.PermissionTemplate) bool { return t.ID == id }), nil
}

func (m *memStore) FindTemplateByName(_ context.Context, name string) (*models.PermissionTemplate, error) {
	return m.findTemplate(func(t *models.PermissionTemplate) bool { return t.Name == name }), nil
}

func (m *memStore) ListTemplates(_ context.Context, activeOnly bool) ([]models.PermissionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PermissionTemplate{}
	for _, t := range m.templates {
		if !activeOnly || t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) ReplaceTemplate(_ context.Context, tmpl *models.PermissionTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.templates {
		if t.ID == tmpl.ID {
			copied := *tmpl
			m.templates[i] = &copied
			return nil
		}
	}
	return apperrors.NotFound("permission template", tmpl.ID.Hex())
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
