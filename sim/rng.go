package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible training run. Two runs with the same
// key, track and configuration produce identical controllers and fitness.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemPopulation seeds the initial population. Uses the master seed directly.
	SubsystemPopulation = "population"

	// SubsystemMutation drives parent selection and weight perturbation.
	SubsystemMutation = "mutation"

	// SubsystemIdentity generates genome IDs so that reruns name controllers identically.
	SubsystemIdentity = "identity"
)

// PartitionedRNG hands out one deterministic *rand.Rand per named subsystem so
// that adding draws in one subsystem never shifts another.
//
// Seeds: SubsystemPopulation uses the master seed; every other subsystem uses
// masterSeed XOR fnv1a64(name).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the cached RNG for name, creating it on first use. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	seed := int64(p.key)
	if name != SubsystemPopulation {
		seed ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
