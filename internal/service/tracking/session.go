package tracking

import (
	"sync"

	"github.com/google/uuid"
)

// SessionKey is the storage key holding the per-session identifier.
const SessionKey = "utm_session_id"

// SessionStorage is a session-scoped key/value store (the browser's
// sessionStorage, a session cookie, ...).
type SessionStorage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// MemoryStorage is an in-process SessionStorage. Setting Err makes every
// call fail, which is how storage-less (privacy mode) clients behave.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	Err    error
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", false, m.Err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.values[key] = value
	return nil
}

// SessionResolver derives the stable per-session identifier of one page load.
// When storage fails it degrades to an identifier that lives only as long as
// the resolver.
type SessionResolver struct {
	storage   SessionStorage
	ephemeral string
	newID     func() string
}

// NewSessionResolver wraps storage. A nil storage behaves like unavailable storage.
func NewSessionResolver(storage SessionStorage) *SessionResolver {
	return &SessionResolver{storage: storage, newID: uuid.NewString}
}

// Resolve returns the session identifier, creating and persisting one if
// none exists yet. It never fails.
func (r *SessionResolver) Resolve() string {
	if r.storage == nil {
		return r.fallback(ErrStorageUnavailable)
	}
	id, ok, err := r.storage.Get(SessionKey)
	if err != nil {
		return r.fallback(err)
	}
	if ok && id != "" {
		return id
	}
	id = r.newID()
	if err := r.storage.Set(SessionKey, id); err != nil {
		tlog.Warn("session storage write failed, using ephemeral id", "err", err)
		r.ephemeral = id
	}
	return id
}

// Current returns the stored session identifier without creating one.
func (r *SessionResolver) Current() (string, bool) {
	if r == nil {
		return "", false
	}
	if r.storage != nil {
		if id, ok, err := r.storage.Get(SessionKey); err == nil && ok && id != "" {
			return id, true
		}
	}
	if r.ephemeral != "" {
		return r.ephemeral, true
	}
	return "", false
}

func (r *SessionResolver) fallback(cause error) string {
	if r.ephemeral == "" {
		tlog.Warn("session storage unavailable, using ephemeral id", "err", cause)
		r.ephemeral = r.newID()
	}
	return r.ephemeral
}
