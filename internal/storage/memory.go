package storage

import "sync"

// Memory is an in-process Backend, used by tests and ephemeral sessions.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte

	// FailWrites makes every Write return the given error when non-nil.
	FailWrites error
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.docs[name] = append([]byte(nil), data...)
	return nil
}

// Put seeds a document without going through the failure hook.
func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), data...)
}

func (m *Memory) Close() error {
	return nil
}
