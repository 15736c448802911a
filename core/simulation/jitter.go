package simulation

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Jitter draws uniformly distributed offsets.
type Jitter interface {
	Uniform(min, max float64) float64
}

// UniformJitter samples gonum's continuous uniform distribution.
type UniformJitter struct {
	mu  sync.Mutex
	src rand.Source
}

// NewUniformJitter seeds a PCG source. Seed zero picks a random seed.
func NewUniformJitter(seed uint64) *UniformJitter {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &UniformJitter{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (j *UniformJitter) Uniform(min, max float64) float64 {
	if min >= max {
		return min
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return distuv.Uniform{Min: min, Max: max, Src: j.src}.Rand()
}
