package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Memory is a goroutine-safe in-process Store. It keeps the same key
// semantics as Redis for the commands the engine uses.
type Memory struct {
	mu      sync.RWMutex
	strings map[string]string
	expires map[string]time.Time
	sets    map[string]map[string]struct{}
	lists   map[string][]string
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		strings: make(map[string]string),
		expires: make(map[string]time.Time),
		sets:    make(map[string]map[string]struct{}),
		lists:   make(map[string][]string),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.getLocked(key)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) GetMany(_ context.Context, keys []string) ([]Lookup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Lookup, len(keys))
	for i, key := range keys {
		v, ok := m.getLocked(key)
		out[i] = Lookup{Value: v, Found: ok}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value)
	return nil
}

func (m *Memory) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value)
	if ttl > 0 {
		m.expires[key] = m.now().Add(ttl)
	}
	return nil
}

func (m *Memory) Swap(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.getLocked(key)
	m.setLocked(key, value)
	return existed, nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if v, ok := m.getLocked(key); ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr %s: value is not an integer", key)
		}
		n = parsed
	}
	n++
	m.strings[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.sets[key]
	out := make([]string, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) LLen(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.lists[key])), nil
}

func (m *Memory) LRange(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.lists[key]
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (m *Memory) Exec(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, op := range ops {
		switch op.Kind {
		case OpSet:
			m.setLocked(op.Key, op.Value)
		case OpDel:
			m.delLocked(op.Key)
		case OpSAdd:
			set, ok := m.sets[op.Key]
			if !ok {
				set = make(map[string]struct{})
				m.sets[op.Key] = set
			}
			set[op.Value] = struct{}{}
		case OpSRem:
			if set, ok := m.sets[op.Key]; ok {
				delete(set, op.Value)
				if len(set) == 0 {
					delete(m.sets, op.Key)
				}
			}
		case OpRPush:
			m.lists[op.Key] = append(m.lists[op.Key], op.Value)
		default:
			return fmt.Errorf("exec op %d: unsupported kind %s", i, op.Kind)
		}
	}
	return nil
}

func (m *Memory) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, key := range m.keysLocked() {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return deleted, fmt.Errorf("matching pattern %s: %w", pattern, err)
		}
		if ok {
			m.delLocked(key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len reports the number of live keys across all value types.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for key := range m.strings {
		if _, ok := m.getLocked(key); ok {
			n++
		}
	}
	return n + len(m.sets) + len(m.lists)
}

func (m *Memory) getLocked(key string) (string, bool) {
	v, ok := m.strings[key]
	if !ok {
		return "", false
	}
	if exp, has := m.expires[key]; has && !m.now().Before(exp) {
		return "", false
	}
	return v, true
}

func (m *Memory) setLocked(key, value string) {
	m.strings[key] = value
	delete(m.expires, key)
}

func (m *Memory) delLocked(key string) {
	delete(m.strings, key)
	delete(m.expires, key)
	delete(m.sets, key)
	delete(m.lists, key)
}

func (m *Memory) keysLocked() []string {
	keys := make([]string, 0, len(m.strings)+len(m.sets)+len(m.lists))
	for k := range m.strings {
		keys = append(keys, k)
	}
	for k := range m.sets {
		keys = append(keys, k)
	}
	for k := range m.lists {
		keys = append(keys, k)
	}
	return keys
}
