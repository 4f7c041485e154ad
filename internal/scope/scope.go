// Package scope describes which random variables a circuit output is defined over.
//
// A Scope is an immutable value: query variables (the ones the output is a
// distribution over) and evidence variables (the ones it is conditioned on).
// Every constructor and operation returns a fresh Scope; nothing mutates in place.
package scope

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidScope is returned for scopes with duplicate query ids or
// overlapping query and evidence sets.
var ErrInvalidScope = errors.New("invalid scope")

// Scope is a set of query variable ids plus optional evidence variable ids.
//
// The query order is preserved as given; evidence is kept sorted. The zero
// value is the empty scope.
type Scope struct {
	query    []int
	evidence []int
}

// New creates a scope over query conditioned on evidence.
func New(query []int, evidence ...int) (Scope, error) {
	seen := make(map[int]struct{}, len(query))
	for _, v := range query {
		if v < 0 {
			return Scope{}, errors.Wrapf(ErrInvalidScope, "negative variable id %d", v)
		}
		if _, dup := seen[v]; dup {
			return Scope{}, errors.Wrapf(ErrInvalidScope, "duplicate query variable %d", v)
		}
		seen[v] = struct{}{}
	}
	ev := slices.Clone(evidence)
	slices.Sort(ev)
	ev = slices.Compact(ev)
	for _, v := range ev {
		if v < 0 {
			return Scope{}, errors.Wrapf(ErrInvalidScope, "negative variable id %d", v)
		}
		if _, overlap := seen[v]; overlap {
			return Scope{}, errors.Wrapf(ErrInvalidScope, "variable %d is both query and evidence", v)
		}
	}
	return Scope{query: slices.Clone(query), evidence: ev}, nil
}

// MustNew is like New but panics on an invalid scope.
func MustNew(query []int, evidence ...int) Scope {
	s, err := New(query, evidence...)
	if err != nil {
		panic(err)
	}
	return s
}

// Of returns the scope over the given query variables with no evidence.
func Of(query ...int) Scope {
	return MustNew(query)
}

// Query returns a copy of the query variable ids.
func (s Scope) Query() []int {
	return slices.Clone(s.query)
}

// Evidence returns a copy of the evidence variable ids.
func (s Scope) Evidence() []int {
	return slices.Clone(s.evidence)
}

// Len returns the number of query variables.
func (s Scope) Len() int {
	return len(s.query)
}

// IsEmpty reports whether the scope has no query variables.
func (s Scope) IsEmpty() bool {
	return len(s.query) == 0
}

// IsConditional reports whether the scope has evidence variables.
func (s Scope) IsConditional() bool {
	return len(s.evidence) > 0
}

// Contains reports whether v is a query variable.
func (s Scope) Contains(v int) bool {
	return slices.Contains(s.query, v)
}

// Equal reports whether both scopes have the same query set and evidence set.
// Query order does not matter.
func (s Scope) Equal(other Scope) bool {
	return s.Key() == other.Key()
}

// Key returns a canonical string form usable as a map key.
func (s Scope) Key() string {
	q := slices.Clone(s.query)
	slices.Sort(q)
	return joinInts(q) + "|" + joinInts(s.evidence)
}

// Remove returns the scope with vars removed from the query.
// Evidence is kept unchanged.
func (s Scope) Remove(vars []int) Scope {
	query := make([]int, 0, len(s.query))
	for _, v := range s.query {
		if !slices.Contains(vars, v) {
			query = append(query, v)
		}
	}
	return Scope{query: query, evidence: slices.Clone(s.evidence)}
}

// Overlaps reports whether any query variable is in vars.
func (s Scope) Overlaps(vars []int) bool {
	for _, v := range s.query {
		if slices.Contains(vars, v) {
			return true
		}
	}
	return false
}

// Join returns the union of both query sets (s first) and both evidence sets,
// without variables that became query variables.
func (s Scope) Join(other Scope) Scope {
	query := slices.Clone(s.query)
	for _, v := range other.query {
		if !slices.Contains(query, v) {
			query = append(query, v)
		}
	}
	var evidence []int
	for _, v := range append(slices.Clone(s.evidence), other.evidence...) {
		if !slices.Contains(query, v) {
			evidence = append(evidence, v)
		}
	}
	slices.Sort(evidence)
	return Scope{query: query, evidence: slices.Compact(evidence)}
}

// String returns a human-readable representation such as "Scope([0 1]|[2])".
func (s Scope) String() string {
	if len(s.evidence) == 0 {
		return fmt.Sprintf("Scope(%v)", s.query)
	}
	return fmt.Sprintf("Scope(%v|%v)", s.query, s.evidence)
}

// AllPairwiseDisjoint reports whether no query variable appears in more than one scope.
func AllPairwiseDisjoint(scopes []Scope) bool {
	seen := make(map[int]struct{})
	for _, s := range scopes {
		for _, v := range s.query {
			if _, dup := seen[v]; dup {
				return false
			}
			seen[v] = struct{}{}
		}
	}
	return true
}

// AllEqual reports whether every scope equals the first. An empty list is equal.
func AllEqual(scopes []Scope) bool {
	for _, s := range scopes[min(1, len(scopes)):] {
		if !s.Equal(scopes[0]) {
			return false
		}
	}
	return true
}

// JoinAll joins scopes in order.
func JoinAll(scopes []Scope) Scope {
	var out Scope
	for _, s := range scopes {
		out = out.Join(s)
	}
	return out
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
