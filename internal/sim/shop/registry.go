package shop

import (
	"fmt"

	"shopcraft.gg/internal/persistence/kvstore"
)

const shopsKey = "shops"

// Registry is the persisted shop store: posKey -> Record, held as one
// document in the backing store and written back whole on every mutation.
type Registry struct {
	store kvstore.Store
}

func NewRegistry(store kvstore.Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) shops() (map[string]Record, error) {
	m := map[string]Record{}
	if _, err := r.store.Get(shopsKey, &m); err != nil {
		return nil, fmt.Errorf("load shops: %w", err)
	}
	return m, nil
}

func (r *Registry) persist(m map[string]Record) error {
	if err := r.store.Put(shopsKey, m); err != nil {
		return fmt.Errorf("persist shops: %w", err)
	}
	return nil
}

// Register inserts or overwrites the record at posKey.
func (r *Registry) Register(posKey string, rec Record) error {
	m, err := r.shops()
	if err != nil {
		return err
	}
	rec.PosKey = posKey
	m[posKey] = rec
	return r.persist(m)
}

// Lookup returns the record at posKey, if any.
func (r *Registry) Lookup(posKey string) (Record, bool, error) {
	m, err := r.shops()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := m[posKey]
	return rec, ok, nil
}

// Update replaces the record at posKey. The caller carries forward the
// immutable fields (Owner, IsAdmin, PosKey).
func (r *Registry) Update(posKey string, rec Record) error {
	return r.Register(posKey, rec)
}

// Delete removes the record at posKey. Deleting an absent key is a no-op.
func (r *Registry) Delete(posKey string) error {
	m, err := r.shops()
	if err != nil {
		return err
	}
	delete(m, posKey)
	return r.persist(m)
}

// All returns every registered shop keyed by posKey.
func (r *Registry) All() (map[string]Record, error) {
	return r.shops()
}
