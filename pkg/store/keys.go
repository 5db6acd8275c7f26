package store

import "bytes"

// Data keys are laid out as:
//
//	'c' + collection name + 0x00 + part1 + 0x00 + part2 + 0x00 + ...
//
// Every component is NUL-terminated, so a key built from the leading
// components of a composite key is also a valid scan prefix. System keys
// live under "_sys/" and never collide with the 'c' space.
const dataPrefix byte = 'c'

// Collection names a keyspace inside the store.
type Collection struct {
	name string
}

// NewCollection returns a handle for the named collection.
func NewCollection(name string) Collection {
	return Collection{name: name}
}

func (c Collection) Name() string { return c.name }

// Key encodes a (possibly composite) key inside the collection.
func (c Collection) Key(parts ...string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(dataPrefix)
	buf.WriteString(c.name)
	buf.WriteByte(0x00)
	for _, p := range parts {
		buf.WriteString(p)
		buf.WriteByte(0x00)
	}
	return buf.Bytes()
}

// Prefix encodes a scan prefix from the leading components of a composite
// key. Prefix() with no parts covers the whole collection.
func (c Collection) Prefix(parts ...string) []byte {
	return c.Key(parts...)
}

// ScanPrefix iterates all entries under prefix in key order.
func ScanPrefix(tx Tx, prefix []byte, fn func(key, value []byte) error) error {
	it := tx.NewIterator(IteratorOptions{Prefix: prefix})
	defer it.Close()
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		k, v, err := it.Item()
		if err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// GetAll returns all values under prefix in key order.
func GetAll(tx Tx, prefix []byte) ([][]byte, error) {
	var out [][]byte
	err := ScanPrefix(tx, prefix, func(_, v []byte) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePrefix removes every entry under prefix.
func DeletePrefix(tx Tx, prefix []byte) error {
	var keys [][]byte
	err := ScanPrefix(tx, prefix, func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
