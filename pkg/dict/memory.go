package dict

// Memory is an in-memory interner whose lifetime is one evaluation or merge pass.
// It is not safe for concurrent use.
type Memory struct {
	ids     map[string]ID
	symbols []string // index = ID, slot 0 unused
}

// NewMemory creates an empty interner.
func NewMemory() *Memory {
	return &Memory{
		ids:     make(map[string]ID),
		symbols: []string{""},
	}
}

// Intern returns the ID of s, assigning the next free ID on first sight.
func (m *Memory) Intern(s string) ID {
	if id, ok := m.ids[s]; ok {
		return id
	}
	id := ID(len(m.symbols))
	m.ids[s] = id
	m.symbols = append(m.symbols, s)
	return id
}

// Lookup returns the ID of s without assigning one.
func (m *Memory) Lookup(s string) (ID, bool) {
	id, ok := m.ids[s]
	return id, ok
}

// String returns the symbol for id, or "" if it was never assigned.
func (m *Memory) String(id ID) string {
	if id == 0 || int(id) >= len(m.symbols) {
		return ""
	}
	return m.symbols[id]
}

// Len returns the number of interned symbols.
func (m *Memory) Len() int {
	return len(m.symbols) - 1
}

func (m *Memory) GetOrCreateID(s string) (ID, error) {
	return m.Intern(s), nil
}

func (m *Memory) GetIDs(keys []string) ([]ID, error) {
	out := make([]ID, len(keys))
	for i, k := range keys {
		out[i] = m.Intern(k)
	}
	return out, nil
}

func (m *Memory) GetID(s string) (ID, error) {
	if id, ok := m.ids[s]; ok {
		return id, nil
	}
	return 0, ErrNotFound
}

func (m *Memory) GetString(id ID) (string, error) {
	if id == 0 || int(id) >= len(m.symbols) {
		return "", ErrNotFound
	}
	return m.symbols[id], nil
}

// Close drops all symbols.
func (m *Memory) Close() error {
	m.ids = make(map[string]ID)
	m.symbols = []string{""}
	return nil
}
