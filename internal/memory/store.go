package memory

import (
	"sync"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.RulesStore  = (*RulesStore)(nil)
	_ store.CursorStore = (*CursorStore)(nil)
)

type ruleKey struct {
	typeID int
	method rule.Method
}

// RulesStore is a thread-safe in-memory store.RulesStore.
type RulesStore struct {
	mu    sync.RWMutex
	rules map[ruleKey]rule.Rule
}

// NewRulesStore creates a RulesStore holding rules.
func NewRulesStore(rules ...rule.Rule) *RulesStore {
	s := &RulesStore{rules: make(map[ruleKey]rule.Rule)}
	for _, r := range rules {
		_ = s.Save(r)
	}
	return s
}

func (s *RulesStore) Get(typeID int, method rule.Method) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[ruleKey{typeID, method}]
	if !ok {
		return nil, store.ErrRuleNotFound
	}
	c := r.Clone()
	return &c, nil
}

func (s *RulesStore) All(method rule.Method) (map[int]rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]rule.Rule)
	for k, r := range s.rules {
		if k.method == method {
			out[k.typeID] = r.Clone()
		}
	}
	return out, nil
}

func (s *RulesStore) Save(r rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[ruleKey{r.MembershipTypeID, r.Method()}] = r.Clone()
	return nil
}

func (s *RulesStore) Delete(typeID int, method rule.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := ruleKey{typeID, method}
	if _, ok := s.rules[k]; !ok {
		return store.ErrRuleNotFound
	}
	delete(s.rules, k)
	return nil
}

func (s *RulesStore) Clear(method rule.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.rules {
		if k.method == method {
			delete(s.rules, k)
		}
	}
	return nil
}

// CursorStore is a thread-safe in-memory store.CursorStore.
type CursorStore struct {
	mu      sync.Mutex
	offsets map[string]int
}

// NewCursorStore creates an empty CursorStore.
func NewCursorStore() *CursorStore {
	return &CursorStore{offsets: make(map[string]int)}
}

func (s *CursorStore) Get(key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.offsets[key]
	return v, ok, nil
}

func (s *CursorStore) Set(key string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offsets[key] = offset
	return nil
}

func (s *CursorStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.offsets, key)
	return nil
}
