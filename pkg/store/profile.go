package store

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Profile describes the student the tutor is adapting to.
type Profile struct {
	UserID    string   `json:"user_id" msgpack:"uid"`
	Name      string   `json:"name" msgpack:"name"`
	Grade     string   `json:"grade,omitempty" msgpack:"grade,omitempty"`
	Interests []string `json:"interests,omitempty" msgpack:"interests,omitempty"`

	// PreferredStyle tunes delivery: "visual", "verbal", "hands-on".
	PreferredStyle string `json:"preferred_style,omitempty" msgpack:"style,omitempty"`
}

// GetProfile loads a student profile. Returns kv.ErrNotFound if absent.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	data, err := s.kv.Get(ctx, profileKey(userID))
	if err != nil {
		return nil, fmt.Errorf("store: get profile %s: %w", userID, err)
	}
	var p Profile
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("store: decode profile %s: %w", userID, err)
	}
	return &p, nil
}

// PutProfile saves a student profile.
func (s *Store) PutProfile(ctx context.Context, p *Profile) error {
	data, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode profile %s: %w", p.UserID, err)
	}
	if err := s.kv.Set(ctx, profileKey(p.UserID), data); err != nil {
		return fmt.Errorf("store: put profile %s: %w", p.UserID, err)
	}
	return nil
}
