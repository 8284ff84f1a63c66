package state

import (
	"sync"

	"github.com/SoarinFerret/BreakWarden/internal/session"
)

// Registry owns every attendance record, grouped by tenant. Records are
// created lazily and live for the lifetime of the process.
type Registry struct {
	mu      sync.RWMutex
	tenants map[int64]*tenant
	order   []int64
}

// tenant serializes all access to its users. Resets and actions for the same
// tenant never interleave.
type tenant struct {
	mu    sync.Mutex
	users map[int64]*session.Record
	order []int64
}

// UserRecord is a copy of one user's record taken under the tenant lock.
type UserRecord struct {
	UserID int64
	Record session.Record
}

func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[int64]*tenant),
	}
}

func (r *Registry) lookup(tenantID int64) (*tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	return t, ok
}

func (r *Registry) getOrCreateTenant(tenantID int64) *tenant {
	if t, ok := r.lookup(tenantID); ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[tenantID]; ok {
		return t
	}
	t := &tenant{users: make(map[int64]*session.Record)}
	r.tenants[tenantID] = t
	r.order = append(r.order, tenantID)
	return t
}

// getOrCreate must be called with t.mu held.
func (t *tenant) getOrCreate(userID int64, name string) *session.Record {
	rec, ok := t.users[userID]
	if !ok {
		rec = session.NewRecord(name)
		t.users[userID] = rec
		t.order = append(t.order, userID)
	}
	if name != "" {
		rec.Name = name
	}
	return rec
}

// GetOrCreate returns a copy of the record for (tenantID, userID), creating
// it if needed and refreshing its display name.
func (r *Registry) GetOrCreate(tenantID, userID int64, name string) session.Record {
	t := r.getOrCreateTenant(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getOrCreate(userID, name).Clone()
}

// Get returns a copy of an existing record.
func (r *Registry) Get(tenantID, userID int64) (session.Record, bool) {
	t, ok := r.lookup(tenantID)
	if !ok {
		return session.Record{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.users[userID]
	if !ok {
		return session.Record{}, false
	}
	return rec.Clone(), true
}

// Update runs fn against a working copy of the user's record under the
// tenant lock. The copy replaces the stored record only when fn succeeds, so
// a failing update leaves no trace. The updated record is returned.
func (r *Registry) Update(tenantID, userID int64, name string, fn func(*session.Record) error) (session.Record, error) {
	t := r.getOrCreateTenant(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	current, exists := t.users[userID]
	var working session.Record
	if exists {
		working = current.Clone()
	} else {
		working = session.NewRecord(name).Clone()
	}
	if name != "" {
		working.Name = name
	}

	if err := fn(&working); err != nil {
		return session.Record{}, err
	}

	if !exists {
		t.users[userID] = &working
		t.order = append(t.order, userID)
	} else {
		*current = working
	}
	return working.Clone(), nil
}

// ListTenants returns tenant ids in the order they were first seen.
func (r *Registry) ListTenants() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, len(r.order))
	copy(out, r.order)
	return out
}

// ListUsers returns copies of a tenant's records in insertion order.
func (r *Registry) ListUsers(tenantID int64) []UserRecord {
	return r.SnapshotAndApply(tenantID, nil)
}

// SnapshotAndApply copies every record of the tenant and then applies mutate
// to each stored record, all under one hold of the tenant lock. The returned
// copies reflect the state before mutate ran. A nil mutate only snapshots.
func (r *Registry) SnapshotAndApply(tenantID int64, mutate func(*session.Record)) []UserRecord {
	t, ok := r.lookup(tenantID)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]UserRecord, 0, len(t.order))
	for _, id := range t.order {
		rec := t.users[id]
		out = append(out, UserRecord{UserID: id, Record: rec.Clone()})
		if mutate != nil {
			mutate(rec)
		}
	}
	return out
}

// Counts returns the number of tenants and the number of tracked users.
func (r *Registry) Counts() (tenants int, users int) {
	r.mu.RLock()
	all := make([]*tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		all = append(all, t)
	}
	r.mu.RUnlock()

	for _, t := range all {
		t.mu.Lock()
		users += len(t.users)
		t.mu.Unlock()
	}
	return len(all), users
}
