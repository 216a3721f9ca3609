// Package pqueue is a mutex-guarded priority queue ordered by (rank, sequence).
// Lower ranks pop first; equal ranks pop in push order.
package pqueue

import (
	"container/heap"
	"sync"
)

type item[T any] struct {
	rank  int
	seq   uint64
	value T
}

type items[T any] []item[T]

func (q items[T]) Len() int { return len(q) }

func (q items[T]) Less(i, j int) bool {
	if q[i].rank != q[j].rank {
		return q[i].rank < q[j].rank
	}
	return q[i].seq < q[j].seq
}

func (q items[T]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *items[T]) Push(x any) { *q = append(*q, x.(item[T])) }

func (q *items[T]) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	var zero item[T]
	old[n-1] = zero
	*q = old[:n-1]
	return it
}

// Queue is safe for concurrent use.
type Queue[T any] struct {
	mu    sync.Mutex
	items items[T]
	seq   uint64
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push enqueues value with the given rank and returns its sequence number.
func (q *Queue[T]) Push(rank int, value T) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.items, item[T]{rank: rank, seq: q.seq, value: value})
	return q.seq
}

// Pop removes the lowest (rank, sequence) entry. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (value T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return value, false
	}
	it := heap.Pop(&q.items).(item[T])
	return it.value, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
