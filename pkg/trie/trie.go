// Package trie implements a generic path trie with optional wildcard
// segments. Paths are "/"-separated; "+" matches exactly one segment and
// "#" matches all remaining segments. It backs the name registries used
// across minerva: generator models, speech synthesizers, and specialist
// agents are all looked up through a Trie.
package trie

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrPattern is returned when a path pattern is malformed, e.g. "#" is used
// anywhere but the final segment.
var ErrPattern = errors.New("trie: malformed pattern, want a/b/c, a/+/c or a/#")

// Trie stores values of type T under "/"-separated paths. Registration may
// use wildcards; lookup walks exact segments first, then "+", then "#", so a
// concrete registration always shadows a wildcard one.
type Trie[T any] struct {
	children map[string]*Trie[T]
	wildOne  *Trie[T] // "+" child
	wildRest *Trie[T] // "#" child
	value    T
	set      bool
}

// New returns an empty Trie.
func New[T any]() *Trie[T] {
	return &Trie[T]{}
}

// Put stores value under path, creating intermediate nodes as needed. It
// reports whether a value was already present at that exact pattern.
func (t *Trie[T]) Put(path string, value T) (replaced bool, err error) {
	node, err := t.dig(path)
	if err != nil {
		return false, err
	}
	replaced = node.set
	node.value = value
	node.set = true
	return replaced, nil
}

// dig walks to the node for path, allocating along the way.
func (t *Trie[T]) dig(path string) (*Trie[T], error) {
	if path == "" {
		return t, nil
	}
	first, rest, _ := strings.Cut(path, "/")
	switch first {
	case "#":
		if rest != "" {
			return nil, ErrPattern
		}
		if t.wildRest == nil {
			t.wildRest = &Trie[T]{}
		}
		return t.wildRest, nil
	case "+":
		if t.wildOne == nil {
			t.wildOne = &Trie[T]{}
		}
		return t.wildOne.dig(rest)
	default:
		if t.children == nil {
			t.children = make(map[string]*Trie[T])
		}
		ch, ok := t.children[first]
		if !ok {
			ch = &Trie[T]{}
			t.children[first] = ch
		}
		return ch.dig(rest)
	}
}

// Get returns the value registered for path, honoring wildcards.
func (t *Trie[T]) Get(path string) (T, bool) {
	_, v, ok := t.match("", path)
	if !ok {
		var zero T
		return zero, false
	}
	return *v, true
}

// Match returns the pattern that matched path along with its value.
func (t *Trie[T]) Match(path string) (pattern string, value T, ok bool) {
	p, v, ok := t.match("", path)
	if !ok {
		var zero T
		return "", zero, false
	}
	return strings.TrimPrefix(p, "/"), *v, true
}

func (t *Trie[T]) match(matched, path string) (string, *T, bool) {
	if path == "" {
		return matched, &t.value, t.set
	}
	first, rest, _ := strings.Cut(path, "/")
	if ch, ok := t.children[first]; ok {
		if p, v, ok := ch.match(matched+"/"+first, rest); ok {
			return p, v, true
		}
	}
	if t.wildOne != nil {
		if p, v, ok := t.wildOne.match(matched+"/+", rest); ok {
			return p, v, true
		}
	}
	if t.wildRest != nil {
		if p, v, ok := t.wildRest.match(matched+"/#", ""); ok {
			return p, v, true
		}
	}
	return "", nil, false
}

// Walk visits every registered value. Iteration order is unspecified.
func (t *Trie[T]) Walk(f func(pattern string, value T)) {
	t.walk(nil, func(path []string, node *Trie[T]) {
		if node.set {
			f(strings.Join(path, "/"), node.value)
		}
	})
}

func (t *Trie[T]) walk(path []string, f func([]string, *Trie[T])) {
	for seg, ch := range t.children {
		ch.walk(append(path, seg), f)
	}
	if t.wildOne != nil {
		t.wildOne.walk(append(path, "+"), f)
	}
	if t.wildRest != nil {
		t.wildRest.walk(append(path, "#"), f)
	}
	f(path, t)
}

// Len returns the number of registered values.
func (t *Trie[T]) Len() int {
	n := 0
	t.Walk(func(string, T) { n++ })
	return n
}

// String lists registered patterns and values, sorted, for debugging.
func (t *Trie[T]) String() string {
	var lines []string
	t.Walk(func(pattern string, value T) {
		lines = append(lines, fmt.Sprintf("%s: %v", pattern, value))
	})
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
