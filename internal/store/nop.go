package store

import "time"

// NopStore never remembers anything, so every posting is new on each run.
// Used by watch --dry-run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasSeen(string) (bool, error) { return false, nil }
func (s *NopStore) MarkSeen(string) error        { return nil }
func (s *NopStore) Cleanup(time.Duration) error  { return nil }
func (s *NopStore) IsEmpty() (bool, error)       { return false, nil }
