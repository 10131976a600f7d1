package testutil

import "context"

// MemoryMarker keeps a session marker in memory.
type MemoryMarker struct {
	Value   string
	LoadErr error
	SaveErr error
}

func (m *MemoryMarker) Load(ctx context.Context) (string, error) {
	if m.LoadErr != nil {
		return "", m.LoadErr
	}
	return m.Value, nil
}

func (m *MemoryMarker) Save(ctx context.Context, value string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Value = value
	return nil
}

func (m *MemoryMarker) Clear(ctx context.Context) error {
	m.Value = ""
	return nil
}
