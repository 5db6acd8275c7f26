package store

import (
	"fmt"
	"strconv"
)

const (
	sysKeySchemaVersion = "_sys/schema_version"
	sysCollectionMarker = "_sys/collections/"
)

// Schema declares the collections a cache expects and the schema version it
// was compiled against.
type Schema struct {
	Version     int
	Collections []string
}

// SchemaVersion reads the version recorded in the store, 0 for a fresh one.
func SchemaVersion(s Store) (int, error) {
	version := 0
	err := s.View(func(tx Tx) error {
		val, err := tx.Get([]byte(sysKeySchemaVersion))
		if err == ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, convErr := strconv.Atoi(string(val))
		if convErr != nil {
			return fmt.Errorf("corrupt schema version %q: %w", val, convErr)
		}
		version = v
		return nil
	})
	return version, err
}

// EnsureSchema prepares the store for use with the given schema. Migration
// is strictly additive: missing collection markers are created, existing
// ones are never touched, and no data is ever dropped. Opening a store whose
// recorded version is newer than the compiled one fails.
func EnsureSchema(s Store, schema Schema) error {
	stored, err := SchemaVersion(s)
	if err != nil {
		return err
	}
	if stored > schema.Version {
		return fmt.Errorf("cache schema version %d is newer than supported version %d", stored, schema.Version)
	}

	return s.Update(func(tx Tx) error {
		for _, name := range schema.Collections {
			marker := []byte(sysCollectionMarker + name)
			if _, err := tx.Get(marker); err == ErrKeyNotFound {
				if err := tx.Set(marker, []byte("1")); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
		}
		return tx.Set([]byte(sysKeySchemaVersion), []byte(strconv.Itoa(schema.Version)))
	})
}

// HasCollection reports whether a collection marker exists.
func HasCollection(s Store, name string) (bool, error) {
	found := false
	err := s.View(func(tx Tx) error {
		_, err := tx.Get([]byte(sysCollectionMarker + name))
		if err == ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}
