package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository keeps contacts in process memory.
type MemoryRepository struct {
	mu       sync.Mutex
	contacts map[int64]Contact
	nextID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{contacts: make(map[int64]Contact)}
}

func (r *MemoryRepository) conflicts(c Contact) bool {
	for _, existing := range r.contacts {
		if existing.OwnerID != c.OwnerID || existing.ID == c.ID {
			continue
		}
		if existing.Email == c.Email || existing.PhoneNumber == c.PhoneNumber {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, c Contact) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = 0
	if r.conflicts(c) {
		return Contact{}, ErrDuplicate
	}
	r.nextID++
	c.ID = r.nextID
	r.contacts[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Get(_ context.Context, ownerID, id int64) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) List(_ context.Context, ownerID int64, page Page) ([]Contact, error) {
	page = page.normalize()
	all := r.owned(ownerID, func(Contact) bool { return true })
	if page.Skip >= len(all) {
		return []Contact{}, nil
	}
	all = all[page.Skip:]
	if len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

func (r *MemoryRepository) Search(_ context.Context, ownerID int64, q string) ([]Contact, error) {
	q = strings.ToLower(q)
	return r.owned(ownerID, func(c Contact) bool {
		return strings.Contains(strings.ToLower(c.FirstName), q) ||
			strings.Contains(strings.ToLower(c.LastName), q) ||
			strings.Contains(strings.ToLower(c.Email), q)
	}), nil
}

func (r *MemoryRepository) All(_ context.Context, ownerID int64) ([]Contact, error) {
	return r.owned(ownerID, func(Contact) bool { return true }), nil
}

func (r *MemoryRepository) Update(_ context.Context, c Contact) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.contacts[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return Contact{}, ErrNotFound
	}
	if r.conflicts(c) {
		return Contact{}, ErrDuplicate
	}
	r.contacts[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Delete(_ context.Context, ownerID, id int64) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return Contact{}, ErrNotFound
	}
	delete(r.contacts, id)
	return c, nil
}

func (r *MemoryRepository) owned(ownerID int64, keep func(Contact) bool) []Contact {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Contact, 0)
	for _, c := range r.contacts {
		if c.OwnerID == ownerID && keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
