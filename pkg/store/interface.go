// Package store provides the durable local cache storage: a transactional
// key-value store with named collections over BadgerDB. A single Store backs
// the whole offline cache; collections scope keys by prefix so unrelated
// data never collides.
package store

import (
	"errors"
)

var (
	ErrKeyNotFound = errors.New("key not found")
)

// Store is the underlying transactional KV storage.
type Store interface {
	// Close closes the storage.
	Close() error

	// RunTx runs a transaction. If update is true it is read-write,
	// otherwise read-only.
	RunTx(update bool, fn func(Tx) error) error

	// View runs a read-only transaction.
	View(fn func(Tx) error) error

	// Update runs a read-write transaction. Everything written inside fn
	// commits atomically or not at all.
	Update(fn func(Tx) error) error
}

// Tx is a transaction handle.
type Tx interface {
	// Set stores the value under key.
	Set(key, value []byte) error

	// Get returns the value for key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Delete removes the key.
	Delete(key []byte) error

	// NewIterator creates an iterator with the given options.
	NewIterator(opts IteratorOptions) Iterator
}

// IteratorOptions configures an iterator.
type IteratorOptions struct {
	Prefix  []byte
	Reverse bool
}

// Iterator walks keys in the store.
type Iterator interface {
	// Seek moves the iterator to the first key >= key.
	Seek(key []byte)

	// Rewind moves the iterator to the start of the range.
	Rewind()

	// Valid reports whether the iterator points at a valid key.
	Valid() bool

	// ValidForPrefix reports whether the current key carries the prefix.
	ValidForPrefix(prefix []byte) bool

	// Next advances the iterator.
	Next()

	// Item returns the current key and value.
	Item() (key, value []byte, err error)

	// Close closes the iterator.
	Close()
}
