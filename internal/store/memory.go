package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sells-group/esg-cli/internal/model"
)

// MemoryStore implements Store in process memory. Writes are serialized by a
// single mutex; values are deep-copied in and out.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]*model.Record
	byOwner  map[model.Owner]string
	profiles map[string]*model.SupplierProfile
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		records:  map[string]*model.Record{},
		byOwner:  map[model.Owner]string{},
		profiles: map[string]*model.SupplierProfile{},
	}
}

func (s *MemoryStore) Ping(context.Context) error    { return nil }
func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) GetRecord(_ context.Context, owner model.Owner) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOwner[owner]
	if !ok {
		return nil, recordNotFound(owner.String())
	}
	return s.records[id].Clone()
}

func (s *MemoryStore) GetRecordByID(_ context.Context, id string) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, recordNotFound(id)
	}
	return rec.Clone()
}

func (s *MemoryStore) UpdateRecord(_ context.Context, owner model.Owner, create bool, fn RecordFunc) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byOwner[owner]; ok {
		return s.update(s.records[id], false, fn)
	}
	if !create {
		return nil, recordNotFound(owner.String())
	}
	return s.update(newRecord(owner), true, fn)
}

func (s *MemoryStore) UpdateRecordByID(_ context.Context, id string, fn RecordFunc) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, recordNotFound(id)
	}
	return s.update(rec, false, fn)
}

// update must be called with mu held.
func (s *MemoryStore) update(stored *model.Record, created bool, fn RecordFunc) (*model.Record, error) {
	work, err := stored.Clone()
	if err != nil {
		return nil, err
	}
	if err := commitRecord(work, created, fn); err != nil {
		return nil, err
	}
	saved, err := work.Clone()
	if err != nil {
		return nil, err
	}
	s.records[saved.ID] = saved
	s.byOwner[saved.Owner()] = saved.ID
	return work, nil
}

func (s *MemoryStore) ListRecords(_ context.Context, filter RecordFilter) ([]*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Record
	for _, rec := range s.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.CompanyID != "" && rec.CompanyID != filter.CompanyID {
			continue
		}
		c, err := rec.Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return recordNotFound(id)
	}
	delete(s.records, id)
	delete(s.byOwner, rec.Owner())
	return nil
}

func (s *MemoryStore) ImportRecords(_ context.Context, records []*model.Record) (int64, error) {
	if err := prepareImport(records); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		c, err := rec.Clone()
		if err != nil {
			return 0, err
		}
		if prevID, ok := s.byOwner[c.Owner()]; ok {
			c.ID = prevID
			c.Version = s.records[prevID].Version + 1
		}
		s.records[c.ID] = c
		s.byOwner[c.Owner()] = c.ID
	}
	return int64(len(records)), nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*model.SupplierProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, profileNotFound(userID)
	}
	return cloneProfile(p), nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, userID string, seed *model.SupplierProfile, fn ProfileFunc) (*model.SupplierProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	stored, ok := s.profiles[userID]
	if !ok {
		if seed == nil {
			return nil, profileNotFound(userID)
		}
		stored = seedProfile(userID, seed)
		created = true
	}
	work := cloneProfile(stored)
	if err := commitProfile(work, created, fn); err != nil {
		return nil, err
	}
	s.profiles[userID] = cloneProfile(work)
	return work, nil
}

func (s *MemoryStore) ListProfiles(_ context.Context, filter ProfileFilter) ([]*model.SupplierProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.SupplierProfile
	for _, p := range s.profiles {
		if filter.Industry != "" && p.Industry != filter.Industry {
			continue
		}
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func cloneProfile(p *model.SupplierProfile) *model.SupplierProfile {
	c := *p
	c.FormSubmissions = make(map[model.Category]model.FormSubmission, len(p.FormSubmissions))
	for k, v := range p.FormSubmissions {
		if v.LastUpdated != nil {
			t := *v.LastUpdated
			v.LastUpdated = &t
		}
		c.FormSubmissions[k] = v
	}
	return &c
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
