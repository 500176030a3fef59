package services

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// PasswordHasher is implemented by *cryptox.Hasher.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, digest string) bool
}

// HashPool bounds the number of password hashes computed at once so a
// burst of sign-ups cannot starve the rest of the process of CPU and memory.
type HashPool struct {
	hasher PasswordHasher
	sem    *semaphore.Weighted
}

// NewHashPool returns a pool running at most size hashes concurrently.
// size <= 0 means runtime.NumCPU().
func NewHashPool(h PasswordHasher, size int) *HashPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &HashPool{hasher: h, sem: semaphore.NewWeighted(int64(size))}
}

// Hash waits for a free slot, then hashes password. It returns ctx.Err()
// if ctx is done before a slot frees up.
func (p *HashPool) Hash(ctx context.Context, password []byte) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	return p.hasher.Hash(password)
}

// Verify waits for a free slot, then checks password against digest.
func (p *HashPool) Verify(ctx context.Context, password []byte, digest string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	return p.hasher.Verify(password, digest), nil
}
