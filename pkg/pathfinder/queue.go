package pathfinder

// queue is a FIFO of arena indices.
type queue struct {
	items []int
	head  int
}

func (q *queue) push(i int) {
	q.items = append(q.items, i)
}

func (q *queue) pop() (int, bool) {
	if q.head == len(q.items) {
		return 0, false
	}
	i := q.items[q.head]
	q.head++
	// Reclaim the consumed prefix once it dominates the slice.
	if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return i, true
}

func (q *queue) len() int {
	return len(q.items) - q.head
}
