package loopback

import (
	"sync"
)

// ring is a circular byte buffer connecting the playback side of a pair to
// the capture side. It grows on demand so a slow reader never blocks the
// writer.
type ring struct {
	data     []byte
	capacity int
	size     int
	readPos  int
	writePos int
	mu       sync.Mutex
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}

	return &ring{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
}

// write adds bytes to the buffer, growing it if needed.
func (r *ring) write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needed := len(p)
	if needed == 0 {
		return
	}

	if r.size+needed > r.capacity {
		r.grow(r.size + needed)
	}

	for _, b := range p {
		r.data[r.writePos] = b
		r.writePos = (r.writePos + 1) % r.capacity
		r.size++
	}
}

// read fills p with buffered bytes and zero-fills any shortfall, modeling
// silence on loopback underrun. Returns the number of buffered bytes used.
func (r *ring) read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(p)
	if n > r.size {
		n = r.size
	}

	for i := 0; i < n; i++ {
		p[i] = r.data[r.readPos]
		r.readPos = (r.readPos + 1) % r.capacity
		r.size--
	}
	clear(p[n:])

	return n
}

// available returns the number of buffered bytes.
func (r *ring) available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// grow expands the buffer to at least minCapacity, preserving order.
func (r *ring) grow(minCapacity int) {
	newCapacity := r.capacity * 2
	if newCapacity < minCapacity {
		newCapacity = minCapacity
	}

	newData := make([]byte, newCapacity)
	for i := 0; i < r.size; i++ {
		newData[i] = r.data[(r.readPos+i)%r.capacity]
	}

	r.data = newData
	r.capacity = newCapacity
	r.readPos = 0
	r.writePos = r.size
}
