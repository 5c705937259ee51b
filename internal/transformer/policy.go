package transformer

import "math/rand"

// InjectionPolicy decides whether a block receives a dead declaration.
// blockID is the stream index of the block's opening brace, stable for the
// whole run.
type InjectionPolicy interface {
	ShouldInject(blockID int) bool
}

// RandomPolicy injects with a fixed probability.
type RandomPolicy struct {
	Rate float64
	Rand *rand.Rand
}

// ShouldInject implements InjectionPolicy.
func (p RandomPolicy) ShouldInject(int) bool {
	if p.Rate <= 0 {
		return false
	}
	if p.Rate >= 1 {
		return true
	}
	return p.Rand.Float64() < p.Rate
}

// AlwaysPolicy injects into every block.
type AlwaysPolicy struct{}

// ShouldInject implements InjectionPolicy.
func (AlwaysPolicy) ShouldInject(int) bool { return true }

// NeverPolicy injects nothing.
type NeverPolicy struct{}

// ShouldInject implements InjectionPolicy.
func (NeverPolicy) ShouldInject(int) bool { return false }

// PolicyFunc adapts a function to InjectionPolicy.
type PolicyFunc func(blockID int) bool

// ShouldInject implements InjectionPolicy.
func (f PolicyFunc) ShouldInject(blockID int) bool { return f(blockID) }
