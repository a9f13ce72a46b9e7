package store

import "github.com/i4energy/alarmdial/internal/hal"

// Store owns the live configuration plus its persistence to flash, per
// spec.md §4.6.
type Store struct {
	flash hal.FlashStore
	Live  Live
	Dirty bool
}

// Open loads the configuration from flash. On a checksum mismatch it loads
// Defaults() and marks the store dirty so the first idle tick persists a
// self-consistent record, per spec.md §7.
func Open(flash hal.FlashStore) (*Store, error) {
	raw, err := flash.Load()
	if err != nil {
		return nil, err
	}

	s := &Store{flash: flash}
	live, decErr := Decode(raw)
	if decErr != nil {
		s.Live = Defaults()
		s.Dirty = true
		return s, nil
	}
	s.Live = live
	return s, nil
}

// MarkDirty flags the live configuration as needing a flash commit. Called
// by the Dialogue Engine after any mutation, including the password reset
// that the Input Monitor triggers through it.
func (s *Store) MarkDirty() {
	s.Dirty = true
}

// Commit persists the live configuration if dirty. The caller (the
// scheduler loop) is responsible for only calling this while the exchange
// arbiter reports idle, per spec.md §4.6/§4.7.
func (s *Store) Commit() error {
	if !s.Dirty {
		return nil
	}
	record := Encode(s.Live)
	if err := s.flash.Commit(record[:]); err != nil {
		return err
	}
	s.Dirty = false
	return nil
}
