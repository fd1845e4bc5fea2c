package registry

const minQueueCapacity = 8

// itemQueue is a growable ring buffer. Not safe for concurrent use;
// the registry lock guards it.
type itemQueue struct {
	buf   []Item
	head  int
	count int
}

func newItemQueue() *itemQueue {
	return &itemQueue{buf: make([]Item, minQueueCapacity)}
}

func (q *itemQueue) len() int {
	return q.count
}

func (q *itemQueue) push(item Item) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
}

func (q *itemQueue) pop() (Item, bool) {
	if q.count == 0 {
		return Item{}, false
	}
	item := q.buf[q.head]
	// release the string for GC
	q.buf[q.head] = Item{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	if q.count == 0 {
		q.head = 0
	}
	return item, true
}

func (q *itemQueue) front() (Item, bool) {
	if q.count == 0 {
		return Item{}, false
	}
	return q.buf[q.head], true
}

// grow doubles capacity and unwraps the ring so head is at index 0.
func (q *itemQueue) grow() {
	next := make([]Item, len(q.buf)*2)
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.buf = next
	q.head = 0
}
