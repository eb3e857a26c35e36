package ledger

import (
	"context"
	"errors"
)

// StubRepository is an in-memory Repository for tests.
type StubRepository struct {
	saved   []Entry
	saves   int
	failing bool
}

func NewStubRepository() *StubRepository {
	return &StubRepository{}
}

func (s *StubRepository) Load(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, len(s.saved))
	copy(entries, s.saved)
	return entries, nil
}

func (s *StubRepository) Save(ctx context.Context, entries []Entry) error {
	if s.failing {
		return errors.New("stub repository: save failure")
	}
	s.saved = make([]Entry, len(entries))
	copy(s.saved, entries)
	s.saves++
	return nil
}

// Seed replaces the stored log without counting as a save.
func (s *StubRepository) Seed(entries []Entry) {
	s.saved = make([]Entry, len(entries))
	copy(s.saved, entries)
}

func (s *StubRepository) Saves() int {
	return s.saves
}

func (s *StubRepository) FailWrites(fail bool) {
	s.failing = fail
}

func (s *StubRepository) Cleanup() {
	s.saved = nil
	s.saves = 0
	s.failing = false
}
