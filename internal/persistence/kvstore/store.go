// Package kvstore is the persistent backing store for the economy ledger and
// the shop registry: a tiny document store keyed by string, holding one JSON
// value per key.
//
// The contract every implementation must honor: Get decodes a fresh copy of
// the stored document, and only Put makes a mutation durable. Callers do a
// whole-value read-modify-write-persist cycle per mutation; mutating a fetched
// document without a final Put persists nothing.
package kvstore

type Store interface {
	// Contains reports whether key holds a document.
	Contains(key string) (bool, error)
	// Get decodes the document at key into v. ok is false if the key is absent.
	Get(key string, v any) (ok bool, err error)
	// Put replaces the whole document at key.
	Put(key string, v any) error
}
