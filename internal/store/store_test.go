package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMiss(t *testing.T) {
	s := New[[]string]()

	v, ok := s.Get("acme/evalset")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestPutReplaces(t *testing.T) {
	s := New[[]string]()

	s.Put("acme/evalset", []string{"a", "b"})
	s.Put("acme/evalset", []string{"c"})

	v, ok := s.Get("acme/evalset")
	require.True(t, ok)
	assert.Equal(t, []string{"c"}, v)
	assert.Equal(t, 1, s.Len())
}

func TestInvalidate(t *testing.T) {
	s := New[int]()
	s.Put("a", 1)
	s.Put("b", 2)

	s.Invalidate("a")

	_, ok := s.Get("a")
	assert.False(t, ok)
	_, ok = s.Get("b")
	assert.True(t, ok)

	// Invalidating an absent key is fine.
	s.Invalidate("missing")
}

func TestClear(t *testing.T) {
	s := New[int]()
	s.Put("a", 1)
	s.Put("b", 2)

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
}

func TestKeysSorted(t *testing.T) {
	s := New[int]()
	s.Put("zeta/ds", 1)
	s.Put("acme/ds", 2)
	s.Put("mid/ds", 3)

	assert.Equal(t, []string{"acme/ds", "mid/ds", "zeta/ds"}, s.Keys())
}

func TestConcurrentAccess(t *testing.T) {
	s := New[[]int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Put("shared", []int{n})
		}(i)
		go func() {
			defer wg.Done()
			if v, ok := s.Get("shared"); ok {
				// Whole-entry replacement: never a half-written slice.
				assert.Len(t, v, 1)
			}
		}()
	}
	wg.Wait()
}
