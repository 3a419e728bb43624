package sim

import "container/heap"

// eventQueue is a min-heap of Events ordered by (Timestamp, Sequence),
// modeled on the teacher's container/heap-based book queues: Less, Swap,
// Push and Pop implement heap.Interface directly on the backing slice.
type eventQueue []Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].Timestamp == q[j].Timestamp {
		return q[i].Sequence < q[j].Sequence
	}
	return q[i].Timestamp < q[j].Timestamp
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(Event))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

var _ heap.Interface = (*eventQueue)(nil)
