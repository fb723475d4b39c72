// Package dedupe tracks seen leads across providers and retry rounds so
// the same business is never added to a result set twice.
package dedupe

import (
	"sync"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Set is a thread-safe seen-key set. One Set spans an entire
// orchestration run; once a key is admitted, every later lead with the
// same key is dropped, regardless of provider or round.
type Set struct {
	mu        sync.Mutex
	keyFields []string
	seen      map[string]struct{}
}

// New creates a Set keyed on the given lead fields (default
// company+address).
func New(keyFields ...string) *Set {
	if len(keyFields) == 0 {
		keyFields = []string{"company", "address"}
	}
	return &Set{
		keyFields: keyFields,
		seen:      make(map[string]struct{}),
	}
}

// Seed admits existing leads without returning them, so a run resumed
// with prior results does not re-collect them.
func (s *Set) Seed(leads []model.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range leads {
		s.seen[l.Key(s.keyFields...)] = struct{}{}
	}
}

// Filter returns the leads not seen before, admitting their keys.
// Idempotent: filtering the same input twice yields nothing the second
// time.
func (s *Set) Filter(leads []model.Lead) []model.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []model.Lead
	for _, l := range leads {
		key := l.Key(s.keyFields...)
		if key == "" || isSeparatorOnly(key) {
			continue
		}
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		fresh = append(fresh, l)
	}
	return fresh
}

// Len returns the number of admitted keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func isSeparatorOnly(key string) bool {
	for _, r := range key {
		if r != '-' {
			return false
		}
	}
	return true
}

// Merger is the final-merge dedup used across parallel workers' partial
// outputs. Besides the company+address key it treats a non-trivial
// phone (digits only, length > 5) and a non-empty email as independent
// uniqueness axes: a collision on either axis drops the lead. The
// double scheme catches the same business surfaced by different
// providers under different name spellings.
type Merger struct {
	primary *Set
	phones  map[string]struct{}
	emails  map[string]struct{}
}

// NewMerger creates an empty Merger.
func NewMerger() *Merger {
	return &Merger{
		primary: New(),
		phones:  make(map[string]struct{}),
		emails:  make(map[string]struct{}),
	}
}

// Add reports whether the lead is new, admitting it on all axes when so.
func (m *Merger) Add(l model.Lead) bool {
	phone := model.DigitsOnly(l.Phone)
	if len(phone) <= 5 {
		phone = ""
	}
	email := model.NormalizeKey(l.Email)

	if phone != "" {
		if _, dup := m.phones[phone]; dup {
			return false
		}
	}
	if email != "" {
		if _, dup := m.emails[email]; dup {
			return false
		}
	}
	if fresh := m.primary.Filter([]model.Lead{l}); len(fresh) == 0 {
		return false
	}

	if phone != "" {
		m.phones[phone] = struct{}{}
	}
	if email != "" {
		m.emails[email] = struct{}{}
	}
	return true
}

// Merge filters a batch through Add, preserving order.
func (m *Merger) Merge(leads []model.Lead) []model.Lead {
	var out []model.Lead
	for _, l := range leads {
		if m.Add(l) {
			out = append(out, l)
		}
	}
	return out
}
