package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateReturnsWellFormedCode(t *testing.T) {
	a := NewAccessCodeAllocator(newStubStore(nil))

	code, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Len(t, code, codeLength)
	for _, c := range code {
		assert.Contains(t, codeAlphabet, string(c))
	}
	assert.True(t, a.IsInUse(code))
}

func TestAllocateNeverReturnsLiveCode(t *testing.T) {
	a := NewAccessCodeAllocator(newStubStore(nil))

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := a.Allocate(context.Background())
		require.NoError(t, err)
		_, dup := seen[code]
		require.False(t, dup, "code %s issued twice", code)
		seen[code] = struct{}{}
	}
}

func TestAllocateExhaustsAfterBoundedAttempts(t *testing.T) {
	a := NewAccessCodeAllocator(newStubStore(nil))
	a.newCode = func() string { return "AAAAAA" }

	code, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", code)

	// Every attempt now collides with the live code.
	_, err = a.Allocate(context.Background())
	assert.ErrorIs(t, err, ErrAccessCodeExhausted)
}

func TestAllocateSkipsCodesHeldByDurableStore(t *testing.T) {
	store := newStubStore(nil)
	store.activeCodes = []string{"AAAAAA"}
	a := NewAccessCodeAllocator(store)

	calls := 0
	a.newCode = func() string {
		calls++
		if calls == 1 {
			return "AAAAAA"
		}
		return "BBBBBB"
	}

	code, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", code)
}

func TestReleaseMakesCodeReusable(t *testing.T) {
	a := NewAccessCodeAllocator(newStubStore(nil))
	a.newCode = func() string { return "CCCCCC" }

	code, err := a.Allocate(context.Background())
	require.NoError(t, err)

	a.Release(code)
	assert.False(t, a.IsInUse(code))

	again, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, code, again)

	// Releasing twice is harmless.
	a.Release(code)
	a.Release(code)
}
