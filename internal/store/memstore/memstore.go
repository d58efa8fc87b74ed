// Package memstore provides an in-memory Store implementation used by tests
// and the local console channel.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pluralhub/plural-gateway/internal/store"
)

// MemStore keeps all entities in maps guarded by a single RWMutex. Unlike a
// command invocation, the store is shared across invocations and must be
// safe for concurrent use.
type MemStore struct {
	mu        sync.RWMutex
	systems   map[string]*store.System // system ID -> system
	members   map[string]*store.Member // member ID -> member
	systemHID map[string]string        // hid -> system ID
	memberHID map[string]string        // hid -> member ID
	accounts  map[uint64]string        // account ID -> system ID
	nextID    int
}

// New creates an empty MemStore
func New() *MemStore {
	return &MemStore{
		systems:   make(map[string]*store.System),
		members:   make(map[string]*store.Member),
		systemHID: make(map[string]string),
		memberHID: make(map[string]string),
		accounts:  make(map[uint64]string),
	}
}

func (m *MemStore) SystemByAccount(ctx context.Context, accountID uint64) (*store.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.accounts[accountID]
	if !ok {
		return nil, nil
	}
	return copySystem(m.systems[id]), nil
}

func (m *MemStore) SystemByHID(ctx context.Context, hid string) (*store.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.systemHID[hid]
	if !ok {
		return nil, nil
	}
	return copySystem(m.systems[id]), nil
}

func (m *MemStore) MemberByName(ctx context.Context, systemID, name string) (*store.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *store.Member
	for _, mem := range m.members {
		if mem.SystemID != systemID || mem.Name != name {
			continue
		}
		// Same-name members are tie-broken on the lowest HID.
		if best == nil || mem.HID < best.HID {
			best = mem
		}
	}
	return copyMember(best), nil
}

func (m *MemStore) MemberByHID(ctx context.Context, hid string) (*store.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.memberHID[hid]
	if !ok {
		return nil, nil
	}
	return copyMember(m.members[id]), nil
}

func (m *MemStore) CreateSystem(ctx context.Context, name string, accountID uint64) (*store.System, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; ok {
		return nil, store.ErrAccountLinked
	}

	m.nextID++
	sys := &store.System{
		ID:       fmt.Sprintf("sys_%d", m.nextID),
		HID:      m.freshHID(m.systemHID),
		Name:     name,
		Accounts: []uint64{accountID},
		Created:  time.Now(),
	}
	m.systems[sys.ID] = sys
	m.systemHID[sys.HID] = sys.ID
	m.accounts[accountID] = sys.ID
	return copySystem(sys), nil
}

func (m *MemStore) LinkAccount(ctx context.Context, systemID string, accountID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; ok {
		return store.ErrAccountLinked
	}
	sys, ok := m.systems[systemID]
	if !ok {
		return fmt.Errorf("unknown system: %s", systemID)
	}
	sys.Accounts = append(sys.Accounts, accountID)
	m.accounts[accountID] = systemID
	return nil
}

func (m *MemStore) CreateMember(ctx context.Context, systemID, name string) (*store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.systems[systemID]; !ok {
		return nil, fmt.Errorf("unknown system: %s", systemID)
	}

	m.nextID++
	mem := &store.Member{
		ID:       fmt.Sprintf("mem_%d", m.nextID),
		HID:      m.freshHID(m.memberHID),
		SystemID: systemID,
		Name:     name,
		Created:  time.Now(),
	}
	m.members[mem.ID] = mem
	m.memberHID[mem.HID] = mem.ID
	return copyMember(mem), nil
}

func (m *MemStore) UpdateMember(ctx context.Context, member *store.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.members[member.ID]
	if !ok {
		return fmt.Errorf("unknown member: %s", member.ID)
	}
	existing.Name = member.Name
	existing.AvatarURL = member.AvatarURL
	return nil
}

func (m *MemStore) MembersBySystem(ctx context.Context, systemID string) ([]*store.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*store.Member
	for _, mem := range m.members {
		if mem.SystemID == systemID {
			out = append(out, copyMember(mem))
		}
	}
	return out, nil
}

func (m *MemStore) Counts(ctx context.Context) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.systems)), int64(len(m.members)), nil
}

func (m *MemStore) Close() error {
	return nil
}

// freshHID generates a handle not present in taken. Caller must hold the
// write lock.
func (m *MemStore) freshHID(taken map[string]string) string {
	for {
		hid := store.NewHID()
		if _, ok := taken[hid]; !ok {
			return hid
		}
	}
}

func copySystem(s *store.System) *store.System {
	if s == nil {
		return nil
	}
	out := *s
	out.Accounts = append([]uint64(nil), s.Accounts...)
	return &out
}

func copyMember(mem *store.Member) *store.Member {
	if mem == nil {
		return nil
	}
	out := *mem
	return &out
}
