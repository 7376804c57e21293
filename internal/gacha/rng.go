package gacha

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource abstract
type RandomSource interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

// lockedRNG is a PCG generator safe for concurrent draws.
type lockedRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRNG) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// DefaultRNG returns a per-process PCG seeded from crypto/rand. Draws have no
// cryptographic requirement, only a well-seeded generator.
func DefaultRNG() RandomSource {
	var buf [16]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to the runtime-seeded global source
		return &lockedRNG{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	s1 := binary.BigEndian.Uint64(buf[:8])
	s2 := binary.BigEndian.Uint64(buf[8:])
	return &lockedRNG{r: rand.New(rand.NewPCG(s1, s2))}
}

// Replicable RNG (e.g. Monte Carlo, tests)
func NewSeededRNG(seed uint64) RandomSource {
	return &lockedRNG{r: rand.New(rand.NewPCG(seed, 0))}
}
