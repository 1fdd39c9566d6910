package sosso

// Buffer is an owned frame buffer with a transfer cursor. Ownership moves
// between the runner and a channel on SetBuffer/TakeBuffer; the holder has
// exclusive access, so Buffer needs no locking.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer allocates a zero-filled buffer of the given size in bytes.
func NewBuffer(size uint) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Data returns the full backing slice, including already-transferred bytes.
func (b *Buffer) Data() []byte {
	return b.data
}

// Size returns the buffer capacity in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Position returns the transfer cursor in bytes.
func (b *Buffer) Position() int {
	return b.pos
}

// Remaining returns the number of bytes left to transfer.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Done reports whether the buffer has been fully transferred.
func (b *Buffer) Done() bool {
	return b.pos >= len(b.data)
}

// Advance moves the transfer cursor forward by up to n bytes and returns
// the number of bytes actually advanced.
func (b *Buffer) Advance(n int) int {
	if n < 0 {
		n = 0
	}
	if r := b.Remaining(); n > r {
		n = r
	}
	b.pos += n
	return n
}

// Write copies bytes into the buffer at the cursor and advances it.
// Returns the number of bytes copied, bounded by the remaining space.
func (b *Buffer) Write(p []byte) int {
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n
}

// Read copies bytes out of the buffer at the cursor and advances it.
// Returns the number of bytes copied, bounded by the remaining data.
func (b *Buffer) Read(p []byte) int {
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n
}

// Reset rewinds the cursor and zero-fills the buffer so it can be queued
// again for the next period.
func (b *Buffer) Reset() {
	b.pos = 0
	clear(b.data)
}
