// Package store persists minerva's tutoring records over a [kv.Store].
//
// Records are msgpack-encoded. Time-ordered rows are keyed by a zero-padded
// nanosecond timestamp so lexicographic key order matches chronological
// order.
//
// # Key layout
//
//	sessions/{id}                      → msgpack Session
//	lessons/{id}                       → msgpack Lesson
//	profiles/{userID}                  → msgpack Profile
//	evidence/{userID}/{lessonID}/{ts}  → msgpack Evidence
//	corrections/{sessionID}/{ts}       → msgpack PendingCorrection
//	interactions/{sessionID}/{ts}      → msgpack Interaction
//	audit/{sessionID}/{ts}             → msgpack AuditEntry
package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/edvora/minerva/pkg/kv"
)

// Store reads and writes tutoring records.
type Store struct {
	kv kv.Store
}

// New wraps a kv store.
func New(s kv.Store) *Store {
	return &Store{kv: s}
}

func nowNano() int64 {
	return time.Now().UnixNano()
}

// tsKey formats a nanosecond timestamp as a fixed-width key segment.
// The zero padding keeps lexicographic order chronological for any value.
func tsKey(ns int64) string {
	return fmt.Sprintf("%020d", ns)
}

// parseTSKey reverses tsKey.
func parseTSKey(seg string) (int64, error) {
	ns, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("store: malformed timestamp key %q: %w", seg, err)
	}
	return ns, nil
}

// sessionKey builds the KV key for a session record.
// Format: "sessions" + {id}
func sessionKey(id string) kv.Key {
	return kv.Key{"sessions", id}
}

// lessonKey builds the KV key for a lesson record.
// Format: "lessons" + {id}
func lessonKey(id string) kv.Key {
	return kv.Key{"lessons", id}
}

// profileKey builds the KV key for a student profile.
// Format: "profiles" + {userID}
func profileKey(userID string) kv.Key {
	return kv.Key{"profiles", userID}
}

// evidenceKey builds the KV key for one evidence row.
// Format: "evidence" + {userID} + {lessonID} + {ts}
func evidenceKey(userID, lessonID string, ts int64) kv.Key {
	return kv.Key{"evidence", userID, lessonID, tsKey(ts)}
}

// evidencePrefix returns the prefix for listing a student's evidence in a
// lesson.
// Format: "evidence" + {userID} + {lessonID}
func evidencePrefix(userID, lessonID string) kv.Key {
	return kv.Key{"evidence", userID, lessonID}
}

// correctionKey builds the KV key for a pending-correction row.
// Format: "corrections" + {sessionID} + {ts}
func correctionKey(sessionID string, ts int64) kv.Key {
	return kv.Key{"corrections", sessionID, tsKey(ts)}
}

// correctionPrefix returns the prefix for listing a session's corrections.
// Format: "corrections" + {sessionID}
func correctionPrefix(sessionID string) kv.Key {
	return kv.Key{"corrections", sessionID}
}

// interactionKey builds the KV key for one turn of the interaction log.
// Format: "interactions" + {sessionID} + {ts}
func interactionKey(sessionID string, ts int64) kv.Key {
	return kv.Key{"interactions", sessionID, tsKey(ts)}
}

// interactionPrefix returns the prefix for listing a session's interactions.
// Format: "interactions" + {sessionID}
func interactionPrefix(sessionID string) kv.Key {
	return kv.Key{"interactions", sessionID}
}

// auditKey builds the KV key for a validation audit entry.
// Format: "audit" + {sessionID} + {ts}
func auditKey(sessionID string, ts int64) kv.Key {
	return kv.Key{"audit", sessionID, tsKey(ts)}
}

// auditPrefix returns the prefix for listing a session's audit entries.
// Format: "audit" + {sessionID}
func auditPrefix(sessionID string) kv.Key {
	return kv.Key{"audit", sessionID}
}
