package gcode

// BufferCapacity is the depth of the command FIFO. Sized so the host can
// keep a few lines in flight without outrunning the executor.
const BufferCapacity = 8

// Buffer is a fixed-capacity FIFO of decoded commands. Single producer and
// single consumer on the same control thread, so no locking; push and pop
// never block.
type Buffer struct {
	items [BufferCapacity]Command
	head  int
	tail  int
	count int
}

// Push appends a command. Returns false without modifying the buffer when
// full.
func (b *Buffer) Push(c Command) bool {
	if b.count >= BufferCapacity {
		return false
	}
	b.items[b.tail] = c
	b.tail = (b.tail + 1) % BufferCapacity
	b.count++
	return true
}

// Pop removes and returns the oldest command. Returns false when empty.
func (b *Buffer) Pop() (Command, bool) {
	if b.count == 0 {
		return nil, false
	}
	c := b.items[b.head]
	b.items[b.head] = nil
	b.head = (b.head + 1) % BufferCapacity
	b.count--
	return c, true
}

// Clear drops every queued command.
func (b *Buffer) Clear() {
	for b.count > 0 {
		b.Pop()
	}
}

func (b *Buffer) Full() bool  { return b.count >= BufferCapacity }
func (b *Buffer) Empty() bool { return b.count == 0 }
func (b *Buffer) Len() int    { return b.count }
