package kv_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/edvora/minerva/pkg/kv"
)

func stores(t *testing.T) map[string]kv.Store {
	t.Helper()
	b, err := kv.NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory: %v", err)
	}
	m := kv.NewMemory()
	t.Cleanup(func() {
		b.Close()
		m.Close()
	})
	return map[string]kv.Store{"memory": m, "badger": b}
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"sessions", "s-001"}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get absent key err = %v; want ErrNotFound", err)
			}

			if err := s.Set(ctx, key, []byte("v1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "v1" {
				t.Fatalf("Get = %q, %v; want v1, nil", got, err)
			}

			if err := s.Set(ctx, key, []byte("v2")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _ = s.Get(ctx, key)
			if string(got) != "v2" {
				t.Fatalf("Get after overwrite = %q; want v2", got)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get after Delete err = %v; want ErrNotFound", err)
			}

			// Deleting again is not an error.
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete absent key: %v", err)
			}
		})
	}
}

func TestListPrefixBoundary(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Set(ctx, kv.Key{"evidence", "u1"}, []byte("x"))
			s.Set(ctx, kv.Key{"evidence", "u1", "001"}, []byte("a"))
			s.Set(ctx, kv.Key{"evidence", "u1", "002"}, []byte("b"))
			s.Set(ctx, kv.Key{"evidence", "u10", "001"}, []byte("c"))

			var got []string
			for e, err := range s.List(ctx, kv.Key{"evidence", "u1"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, e.Key.String())
			}
			// "evidence/u10/..." must not match the "evidence/u1" prefix,
			// and the bare "evidence/u1" key itself is not under it either.
			want := []string{"evidence/u1/001", "evidence/u1/002"}
			if len(got) != len(want) {
				t.Fatalf("List keys = %v; want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("List[%d] = %q; want %q", i, got[i], want[i])
				}
			}
		})
	}
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// Insert out of order; List must come back sorted.
			for _, seq := range []string{"00000003", "00000001", "00000002"} {
				s.Set(ctx, kv.Key{"corrections", "s1", seq}, []byte(seq))
			}
			var got []string
			for e, err := range s.List(ctx, kv.Key{"corrections", "s1"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, string(e.Value))
			}
			want := []string{"00000001", "00000002", "00000003"}
			if len(got) != len(want) {
				t.Fatalf("List = %v; want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("List order = %v; want %v", got, want)
				}
			}
		})
	}
}

func TestBatchSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var entries []kv.Entry
			for i := 0; i < 5; i++ {
				entries = append(entries, kv.Entry{
					Key:   kv.Key{"interactions", "s1", fmt.Sprintf("%03d", i)},
					Value: []byte{byte(i)},
				})
			}
			if err := s.BatchSet(ctx, entries); err != nil {
				t.Fatalf("BatchSet: %v", err)
			}
			n := 0
			for _, err := range s.List(ctx, kv.Key{"interactions", "s1"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				n++
			}
			if n != 5 {
				t.Fatalf("List count = %d; want 5", n)
			}
		})
	}
}

func TestOpenURL(t *testing.T) {
	s, err := kv.Open("memory://")
	if err != nil {
		t.Fatalf("Open(memory://): %v", err)
	}
	s.Close()

	if _, err := kv.Open("redis://localhost"); err == nil {
		t.Error("Open with unsupported scheme should fail")
	}
	if _, err := kv.Open("no-scheme"); err == nil {
		t.Error("Open without scheme should fail")
	}
}
