package pqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[T any](q *Queue[T]) []T {
	var out []T
	for {
		v, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestQueue(t *testing.T) {
	t.Run("empty pop", func(t *testing.T) {
		q := New[string]()
		_, ok := q.Pop()
		assert.False(t, ok)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("orders by rank then insertion", func(t *testing.T) {
		q := New[string]()
		q.Push(2, "low-1")
		q.Push(1, "medium-1")
		q.Push(0, "high-1")
		q.Push(2, "low-2")
		q.Push(0, "high-2")
		q.Push(1, "medium-2")
		require.Equal(t, 6, q.Len())

		assert.Equal(t, []string{"high-1", "high-2", "medium-1", "medium-2", "low-1", "low-2"}, drain(q))
	})

	t.Run("equal ranks keep insertion order", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 100; i++ {
			q.Push(1, i)
		}
		got := drain(q)
		for i, v := range got {
			assert.Equal(t, i, v)
		}
	})

	t.Run("sequence numbers increase", func(t *testing.T) {
		q := New[int]()
		a := q.Push(0, 1)
		b := q.Push(0, 2)
		assert.Less(t, a, b)
	})

	t.Run("concurrent push and pop", func(t *testing.T) {
		q := New[int]()
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				q.Push(i%3, i)
			}(i)
		}
		wg.Wait()

		var mu sync.Mutex
		seen := make(map[int]int)
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					v, ok := q.Pop()
					if !ok {
						return
					}
					mu.Lock()
					seen[v]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, 200)
		for _, n := range seen {
			assert.Equal(t, 1, n, "every entry pops exactly once")
		}
	})
}
