// Package scrambler handles identifier renaming for a single run: the
// memoizing rename tables and the generation of fresh names.
package scrambler

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/whit3rabbit/cmixer/internal/config"
)

const (
	// Generated names are lowercase only.
	charsIdentifier = "abcdefghijklmnopqrstuvwxyz"

	// Limits
	maxIdentifierLen = 16
	minScrambleLen   = 2
	maxRegenAttempts = 50
)

// nameSet tracks every name that is unavailable for generation: reserved
// words, identifiers already present in the program, and names handed out by
// any table sharing the set.
type nameSet struct {
	mu    sync.Mutex
	names map[string]bool
}

func newNameSet() *nameSet {
	return &nameSet{names: make(map[string]bool)}
}

func (n *nameSet) add(names ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, name := range names {
		n.names[name] = true
	}
}

// claim marks name as taken, reporting false if it already was.
func (n *nameSet) claim(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.names[name] || isReserved(name) {
		return false
	}
	n.names[name] = true
	return true
}

// Scrambler manages the renaming map for one namespace. The first lookup of
// an original name allocates a fresh name, later lookups reuse it.
type Scrambler struct {
	sType         ScrambleType
	rng           *rand.Rand
	targetLength  int
	currentLength int             // Current generation length
	ignoreMap     map[string]bool // names passed through unchanged
	taken         *nameSet

	scrambleMap  map[string]string // original -> scrambled
	rScrambleMap map[string]string // scrambled -> original

	mu sync.RWMutex
}

// NewScrambler creates a standalone scrambler. Names it generates avoid
// reserved words and anything passed to Reserve.
func NewScrambler(sType ScrambleType, length int, rng *rand.Rand) *Scrambler {
	return newScrambler(sType, length, rng, newNameSet())
}

func newScrambler(sType ScrambleType, length int, rng *rand.Rand, taken *nameSet) *Scrambler {
	if length < minScrambleLen {
		length = minScrambleLen
	}
	if length > maxIdentifierLen {
		length = maxIdentifierLen
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Scrambler{
		sType:         sType,
		rng:           rng,
		targetLength:  length,
		currentLength: length,
		ignoreMap:     make(map[string]bool),
		taken:         taken,
		scrambleMap:   make(map[string]string),
		rScrambleMap:  make(map[string]string),
	}
}

// Ignore marks names that Scramble returns unchanged.
func (s *Scrambler) Ignore(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.ignoreMap[n] = true
	}
}

// Reserve marks names that must never be generated, typically every
// identifier already present in the program.
func (s *Scrambler) Reserve(names ...string) {
	s.taken.add(names...)
}

// ShouldIgnore reports whether name is passed through unchanged.
func (s *Scrambler) ShouldIgnore(name string) bool {
	return isReserved(name) || s.ignoreMap[name]
}

// Scramble returns the generated name for originalName, allocating one on
// first use.
func (s *Scrambler) Scramble(originalName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ShouldIgnore(originalName) {
		return originalName
	}
	if scrambled, exists := s.scrambleMap[originalName]; exists {
		return scrambled
	}
	scrambled := s.generateUnique()
	s.scrambleMap[originalName] = scrambled
	s.rScrambleMap[scrambled] = originalName
	return scrambled
}

// Fresh returns a generated name bound to no original. It is unique among
// every name known to the scrambler's set.
func (s *Scrambler) Fresh() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateUnique()
}

// Unscramble looks up the original name given a scrambled name.
func (s *Scrambler) Unscramble(scrambledName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	original, found := s.rScrambleMap[scrambledName]
	return original, found
}

// LookupObfuscated returns the generated name for original without
// allocating one.
func (s *Scrambler) LookupObfuscated(original string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obfuscated, found := s.scrambleMap[original]
	return obfuscated, found
}

// Len returns the number of memoized names.
func (s *Scrambler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scrambleMap)
}

// Mapping returns a copy of the original -> generated map.
func (s *Scrambler) Mapping() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.scrambleMap))
	for k, v := range s.scrambleMap {
		out[k] = v
	}
	return out
}

// generateUnique draws names until one is free. After repeated collisions
// the generation length grows.
func (s *Scrambler) generateUnique() string {
	for attempt := 0; ; attempt++ {
		name := s.generateScrambledName()
		if s.taken.claim(name) {
			return name
		}
		if attempt > 5 && s.currentLength < maxIdentifierLen {
			s.currentLength++
		}
		if attempt > maxRegenAttempts*maxIdentifierLen {
			// The space at maxIdentifierLen is never exhausted in practice.
			panic(fmt.Sprintf("scrambler: no free %s name after %d attempts", s.sType, attempt))
		}
	}
}

func (s *Scrambler) generateScrambledName() string {
	b := make([]byte, s.currentLength)
	for i := range b {
		b[i] = charsIdentifier[s.rng.Intn(len(charsIdentifier))]
	}
	return string(b)
}

// Mapping is the serializable view of a run's rename tables.
type Mapping struct {
	Scope     string                       `yaml:"scope"`
	Functions map[string]string            `yaml:"functions,omitempty"`
	Locals    map[string]map[string]string `yaml:"locals,omitempty"`
	Names     map[string]string            `yaml:"names,omitempty"`
}

// Table is the rename table of one run. In scoped mode function names and
// each function's locals live in separate tables; in flat mode every name
// shares one table, so a variable and a function with the same original
// text map to the same generated name.
type Table struct {
	scope     string
	length    int
	rng       *rand.Rand
	taken     *nameSet
	functions *Scrambler

	mu     sync.Mutex // guards locals
	locals map[string]*Scrambler
}

// NewTable creates the rename table for one run. scope is
// config.RenameScopeScoped or config.RenameScopeFlat.
func NewTable(scope string, length int, rng *rand.Rand) *Table {
	if scope != config.RenameScopeFlat {
		scope = config.RenameScopeScoped
	}
	taken := newNameSet()
	t := &Table{
		scope:  scope,
		length: length,
		rng:    rng,
		taken:  taken,
		locals: make(map[string]*Scrambler),
	}
	sType := TypeFunction
	if scope == config.RenameScopeFlat {
		sType = TypeShared
	}
	t.functions = newScrambler(sType, length, rng, taken)
	return t
}

// Scope returns the table's scope mode.
func (t *Table) Scope() string { return t.scope }

// Flat reports whether every name shares one namespace.
func (t *Table) Flat() bool { return t.scope == config.RenameScopeFlat }

// Reserve marks names that must never be generated.
func (t *Table) Reserve(names ...string) { t.taken.add(names...) }

// Ignore marks function names that are never renamed, such as the entry
// point.
func (t *Table) Ignore(names ...string) { t.functions.Ignore(names...) }

// Scramble is the flat-namespace lookup: every kind of name goes through the
// same memoized map.
func (t *Table) Scramble(name string) string { return t.functions.Scramble(name) }

// Function returns the generated name of a function.
func (t *Table) Function(name string) string { return t.functions.Scramble(name) }

// Local returns the generated name of a parameter or variable declared in
// function fn. In flat mode it is Scramble.
func (t *Table) Local(fn, name string) string {
	if t.Flat() {
		return t.functions.Scramble(name)
	}
	return t.localTable(fn).Scramble(name)
}

// LookupLocal returns the generated name of a local without allocating.
func (t *Table) LookupLocal(fn, name string) (string, bool) {
	if t.Flat() {
		return t.functions.LookupObfuscated(name)
	}
	t.mu.Lock()
	sc, ok := t.locals[fn]
	t.mu.Unlock()
	if !ok {
		return "", false
	}
	return sc.LookupObfuscated(name)
}

// LookupFunction returns the generated name of a function without
// allocating.
func (t *Table) LookupFunction(name string) (string, bool) {
	return t.functions.LookupObfuscated(name)
}

// Fresh returns a new name unique across the whole table.
func (t *Table) Fresh() string { return t.functions.Fresh() }

func (t *Table) localTable(fn string) *Scrambler {
	t.mu.Lock()
	defer t.mu.Unlock()
	sc, ok := t.locals[fn]
	if !ok {
		sc = newScrambler(TypeVariable, t.length, t.rng, t.taken)
		t.locals[fn] = sc
	}
	return sc
}

// Mapping returns the table's contents for export.
func (t *Table) Mapping() Mapping {
	m := Mapping{Scope: t.scope}
	if t.Flat() {
		m.Names = t.functions.Mapping()
		return m
	}
	m.Functions = t.functions.Mapping()
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.locals) > 0 {
		m.Locals = make(map[string]map[string]string, len(t.locals))
		for fn, sc := range t.locals {
			if local := sc.Mapping(); len(local) > 0 {
				m.Locals[fn] = local
			}
		}
	}
	return m
}
