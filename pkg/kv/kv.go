// Package kv provides the key-value store minerva persists through.
// Keys are hierarchical path segments (e.g. Key{"sessions", id}) encoded
// with '/' for storage, so lexicographic order over encoded keys follows
// the segment hierarchy.
//
// Two implementations exist: Badger for durable on-disk state and Memory
// for tests. Open selects one from a URL ("badger:///var/lib/minerva",
// "memory://").
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded form. Segments must not
// contain it.
const Separator byte = '/'

// Key is a hierarchical path represented as string segments.
type Key []string

// String returns the encoded form, for display and storage alike.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Entry is a key-value pair returned by List and written by BatchSet.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with hierarchical keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Removing an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates entries under the given key prefix in lexicographic
	// order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchSet stores multiple entries in one write batch.
	BatchSet(ctx context.Context, entries []Entry) error

	// Close releases resources held by the store.
	Close() error
}

// Open creates a Store from a URL. Supported schemes:
//
//	badger://<dir>  durable BadgerDB store at dir
//	memory://       in-memory store
func Open(url string) (Store, error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("kv: open %q: missing scheme", url)
	}
	switch scheme {
	case "badger":
		if rest == "" {
			return nil, fmt.Errorf("kv: open %q: badger needs a directory", url)
		}
		return NewBadger(rest)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("kv: open %q: unsupported scheme %q", url, scheme)
	}
}

func encode(k Key) []byte {
	n := 0
	for i, seg := range k {
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, Separator)
		}
		buf = append(buf, seg...)
	}
	return buf
}

func decode(b []byte) Key {
	parts := strings.Split(string(b), string(Separator))
	return Key(parts)
}

// listPrefix returns the encoded scan prefix for a key prefix. A trailing
// separator is appended so "a/b" does not match "a/bc".
func listPrefix(prefix Key) []byte {
	p := encode(prefix)
	if len(p) > 0 {
		p = append(p, Separator)
	}
	return p
}
