package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

const maxTxAttempts = 5

type memoryEntry struct {
	doc     domain.Session
	version int64
}

// MemoryStore is an in-process SessionStore. It backs engine unit tests
// and single-node deployments; the transaction semantics mirror the
// postgres store exactly, including optimistic retries.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	subs     map[string]map[int]func(domain.Session)
	nextSub  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		subs:     make(map[string]map[int]func(domain.Session)),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.Id]; exists {
		return domain.UnexpectedDatabaseError
	}
	m.sessions[s.Id] = &memoryEntry{doc: s.Clone(), version: 1}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return entry.doc.Clone(), nil
}

func (m *MemoryStore) GetByCode(ctx context.Context, code string) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.sessions {
		if entry.doc.Code == code {
			return entry.doc.Clone(), nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (m *MemoryStore) Transaction(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		m.mu.RLock()
		entry, ok := m.sessions[id]
		if !ok {
			m.mu.RUnlock()
			return domain.Session{}, domain.ErrSessionNotFound
		}
		doc := entry.doc.Clone()
		version := entry.version
		m.mu.RUnlock()

		err := fn(&doc)
		destroy := errors.Is(err, domain.ErrDestroySession)
		if err != nil && !destroy {
			return domain.Session{}, err
		}

		m.mu.Lock()
		entry, ok = m.sessions[id]
		if !ok {
			m.mu.Unlock()
			return domain.Session{}, domain.ErrSessionNotFound
		}
		if entry.version != version {
			m.mu.Unlock()
			continue
		}
		if destroy {
			delete(m.sessions, id)
		} else {
			entry.doc = doc.Clone()
			entry.version++
		}
		listeners := m.listenersLocked(id)
		if destroy {
			delete(m.subs, id)
		}
		m.mu.Unlock()

		for _, fn := range listeners {
			fn(doc.Clone())
		}
		return doc, nil
	}
	return domain.Session{}, domain.ErrTransactionConflict
}

func (m *MemoryStore) Subscribe(id string, fn func(domain.Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[id] == nil {
		m.subs[id] = make(map[int]func(domain.Session))
	}
	key := m.nextSub
	m.nextSub++
	m.subs[id][key] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if listeners, ok := m.subs[id]; ok {
			delete(listeners, key)
			if len(listeners) == 0 {
				delete(m.subs, id)
			}
		}
	}
}

func (m *MemoryStore) ListOpen(ctx context.Context) ([]domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Session{}
	for _, entry := range m.sessions {
		if entry.doc.Phase == domain.PhaseLobby && !entry.doc.Private {
			out = append(out, entry.doc.Clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) Expired(ctx context.Context, now time.Time, lobbyCutoff time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for id, entry := range m.sessions {
		if deadline, ok := entry.doc.Deadline(); ok && now.After(deadline) {
			out = append(out, id)
			continue
		}
		if entry.doc.Phase == domain.PhaseLobby && entry.doc.CreatedAt.Before(lobbyCutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *MemoryStore) listenersLocked(id string) []func(domain.Session) {
	listeners := make([]func(domain.Session), 0, len(m.subs[id]))
	for _, fn := range m.subs[id] {
		listeners = append(listeners, fn)
	}
	return listeners
}
