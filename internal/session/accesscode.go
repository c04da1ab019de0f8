package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeMaxTries = 10
)

// AccessCodeAllocator hands out short join codes and guarantees uniqueness
// among sessions that are still live. Allocation also consults the durable
// store so codes belonging to sessions a crashed process never marked ended
// are not reissued.
type AccessCodeAllocator struct {
	mu    sync.Mutex
	inUse map[string]struct{}
	store Store

	// newCode is a seam for tests to force collisions.
	newCode func() string
}

// NewAccessCodeAllocator builds an allocator backed by the given store.
func NewAccessCodeAllocator(store Store) *AccessCodeAllocator {
	return &AccessCodeAllocator{
		inUse:   make(map[string]struct{}),
		store:   store,
		newCode: randomCode,
	}
}

// Allocate returns a fresh 6-character code, or ErrAccessCodeExhausted after
// the retry bound. Never loops forever.
func (a *AccessCodeAllocator) Allocate(ctx context.Context) (string, error) {
	active, err := a.store.ActiveAccessCodes(ctx)
	if err != nil {
		return "", fmt.Errorf("load active codes: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	stored := make(map[string]struct{}, len(active))
	for _, code := range active {
		stored[code] = struct{}{}
	}

	for attempt := 0; attempt < codeMaxTries; attempt++ {
		code := a.newCode()
		if _, live := a.inUse[code]; live {
			continue
		}
		if _, held := stored[code]; held {
			continue
		}
		a.inUse[code] = struct{}{}
		return code, nil
	}
	return "", ErrAccessCodeExhausted
}

// Release frees a code once its session ends. Idempotent.
func (a *AccessCodeAllocator) Release(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inUse, code)
}

// IsInUse reports whether a code is currently held by a live session.
func (a *AccessCodeAllocator) IsInUse(code string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inUse[code]
	return ok
}

func randomCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(buf)
}
