package localstore

import "context"

// KeySession holds the remote session value between command invocations.
const KeySession = "cookieFallback"

// SessionMarker persists the session marker in the store.
type SessionMarker struct {
	store *Store
}

func NewSessionMarker(store *Store) *SessionMarker {
	return &SessionMarker{store: store}
}

func (m *SessionMarker) Load(ctx context.Context) (string, error) {
	v, err := m.store.Get(ctx, KeySession)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (m *SessionMarker) Save(ctx context.Context, value string) error {
	return m.store.Set(ctx, KeySession, []byte(value))
}

func (m *SessionMarker) Clear(ctx context.Context) error {
	return m.store.Delete(ctx, KeySession)
}
