package kv

// Memory es un storage en memoria para tests y sesiones efímeras.
type Memory struct {
	m map[string]string
	// SetErr fuerza fallas de escritura en tests.
	SetErr error
}

func NewMemory() *Memory {
	return &Memory{m: map[string]string{}}
}

func (s *Memory) Get(key string) (string, bool) {
	v, ok := s.m[key]
	return v, ok
}

func (s *Memory) Set(key, value string) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.m[key] = value
	return nil
}

func (s *Memory) Remove(key string) {
	delete(s.m, key)
}
