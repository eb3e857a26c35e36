package storage

import (
	"context"
	"errors"
)

// StubKVStore is an in-memory KVStore for tests.
type StubKVStore struct {
	data    map[string][]byte
	failing bool
}

func NewStubKVStore() *StubKVStore {
	return &StubKVStore{data: map[string][]byte{}}
}

func (s *StubKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *StubKVStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failing {
		return errors.New("stub kv store: write failure")
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	s.data[key] = copied
	return nil
}

// FailWrites makes every subsequent Set return an error.
func (s *StubKVStore) FailWrites(fail bool) {
	s.failing = fail
}

func (s *StubKVStore) Cleanup() {
	s.data = map[string][]byte{}
	s.failing = false
}
