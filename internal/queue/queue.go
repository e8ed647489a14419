// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package queue provides the bounded, thread-safe priority queue drained by
// the arbitrator.
package queue

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/metrics"
)

// DefaultMaxSize is the default maximum number of messages a queue can hold.
const DefaultMaxSize = 100

// ErrQueueFull is returned when attempting to push to a full queue.
var ErrQueueFull = errors.New("queue is full")

// ErrNilMessage is returned when pushing a nil message.
var ErrNilMessage = errors.New("queue: nil message")

// PriorityQueue orders messages by (priority asc, sequence asc).
// Push never blocks; a full queue rejects.
type PriorityQueue struct {
	mu      sync.Mutex
	h       msgHeap
	maxSize int
	name    string
}

// New creates a PriorityQueue. If maxSize is <= 0, DefaultMaxSize is used.
func New(maxSize int) *PriorityQueue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &PriorityQueue{maxSize: maxSize, name: "arbitration"}
}

// Capacity returns the maximum number of queued messages.
func (q *PriorityQueue) Capacity() int { return q.maxSize }

// Push adds a message. Returns ErrQueueFull if the queue is at capacity.
func (q *PriorityQueue) Push(m *message.Message) error {
	if m == nil {
		return ErrNilMessage
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) >= q.maxSize {
		metrics.IncQueueRejected(q.name)
		return ErrQueueFull
	}
	heap.Push(&q.h, m)
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.h)))
	return nil
}

// PopOne removes and returns the most urgent message, or nil if empty.
func (q *PriorityQueue) PopOne() *message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		return nil
	}
	m := heap.Pop(&q.h).(*message.Message)
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.h)))
	return m
}

// PopUpTo removes up to n messages in priority order.
func (q *PriorityQueue) PopUpTo(n int) []*message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.h) {
		n = len(q.h)
	}
	if n <= 0 {
		return nil
	}
	out := make([]*message.Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, heap.Pop(&q.h).(*message.Message))
	}
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.h)))
	return out
}

// Clear discards every queued message without delivery and returns how many were dropped.
func (q *PriorityQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.h)
	q.h = nil
	metrics.QueueDepth.WithLabelValues(q.name).Set(0)
	return n
}

// Size returns the current number of queued messages.
func (q *PriorityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

type msgHeap []*message.Message

func (h msgHeap) Len() int { return len(h) }

func (h msgHeap) Less(i, j int) bool {
	if h[i].Priority() != h[j].Priority() {
		return h[i].Priority() < h[j].Priority()
	}
	return h[i].Sequence() < h[j].Sequence()
}

func (h msgHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *msgHeap) Push(x any) { *h = append(*h, x.(*message.Message)) }

func (h *msgHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}
