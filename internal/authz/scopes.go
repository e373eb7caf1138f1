package authz

import (
	"sort"

	"github.com/angelmondragon/bizhub-backend/pkg/enums"
)

// ScopeSet is a user's effective permissions. Holding SUPER_ADMIN satisfies
// every check.
type ScopeSet struct {
	scopes map[enums.Scope]struct{}
}

func NewScopeSet(scopes ...enums.Scope) ScopeSet {
	set := ScopeSet{scopes: make(map[enums.Scope]struct{}, len(scopes))}
	for _, s := range scopes {
		if s.IsValid() {
			set.scopes[s] = struct{}{}
		}
	}
	return set
}

// ScopeSetFromStrings builds a set from stored values, skipping anything
// outside the enum so a stale row can never grant an unknown permission.
func ScopeSetFromStrings(values []string) ScopeSet {
	parsed, _ := enums.ParseScopes(values)
	return NewScopeSet(parsed...)
}

func (s ScopeSet) IsSuperAdmin() bool {
	_, ok := s.scopes[enums.ScopeSuperAdmin]
	return ok
}

func (s ScopeSet) Has(scope enums.Scope) bool {
	if s.IsSuperAdmin() {
		return true
	}
	_, ok := s.scopes[scope]
	return ok
}

// HasAll reports whether every listed scope is held. An empty list is denied.
func (s ScopeSet) HasAll(scopes ...enums.Scope) bool {
	if s.IsSuperAdmin() {
		return true
	}
	if len(scopes) == 0 {
		return false
	}
	for _, scope := range scopes {
		if _, ok := s.scopes[scope]; !ok {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one listed scope is held.
func (s ScopeSet) HasAny(scopes ...enums.Scope) bool {
	if s.IsSuperAdmin() {
		return true
	}
	for _, scope := range scopes {
		if _, ok := s.scopes[scope]; ok {
			return true
		}
	}
	return false
}

func (s ScopeSet) Len() int {
	return len(s.scopes)
}

// Strings returns the held scopes sorted.
func (s ScopeSet) Strings() []string {
	out := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		out = append(out, string(scope))
	}
	sort.Strings(out)
	return out
}
