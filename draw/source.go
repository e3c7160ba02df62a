package draw

import "math/rand/v2"

// Source yields uniformly distributed indexes in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// Seeded returns a deterministic Source, for reproducible draws in tests.
func Seeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed))
}
