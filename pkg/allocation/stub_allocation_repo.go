package allocation

import "context"

// StubRepository is an in-memory Repository for tests.
type StubRepository struct {
	cfg   Config
	saves int
}

func NewStubRepository() *StubRepository {
	return &StubRepository{cfg: NewConfig()}
}

func (s *StubRepository) Load(ctx context.Context) (Config, error) {
	return s.cfg, nil
}

func (s *StubRepository) Save(ctx context.Context, cfg Config) error {
	s.cfg = cfg
	s.saves++
	return nil
}

func (s *StubRepository) Saves() int {
	return s.saves
}

func (s *StubRepository) Cleanup() {
	s.cfg = NewConfig()
	s.saves = 0
}
