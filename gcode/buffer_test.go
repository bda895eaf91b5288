package gcode

import "testing"

func TestBufferFIFO(t *testing.T) {
	var b Buffer
	if !b.Empty() {
		t.Fatal("new buffer not empty")
	}

	b.Push(Move{HasX: true, X: 1})
	b.Push(Move{HasX: true, X: 2})
	b.Push(ReportPosition{})

	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	first, _ := b.Pop()
	if m := first.(Move); m.X != 1 {
		t.Fatalf("popped %+v, want the first push", m)
	}
	second, _ := b.Pop()
	if m := second.(Move); m.X != 2 {
		t.Fatalf("popped %+v out of order", m)
	}
}

func TestBufferCapacity(t *testing.T) {
	var b Buffer
	for i := 0; i < BufferCapacity; i++ {
		if !b.Push(ReportPosition{}) {
			t.Fatalf("push %d rejected below capacity", i)
		}
	}
	if !b.Full() {
		t.Fatal("buffer not full at capacity")
	}
	if b.Push(ReportPosition{}) {
		t.Fatal("push beyond capacity accepted")
	}
	if b.Len() != BufferCapacity {
		t.Fatalf("overflowing push changed Len to %d", b.Len())
	}

	// One pop makes room for exactly one push.
	b.Pop()
	if !b.Push(ReportPosition{}) {
		t.Fatal("push rejected after a pop made room")
	}
}

func TestBufferWrapAround(t *testing.T) {
	var b Buffer
	// Force the ring indices to wrap a few times.
	for round := 0; round < 5; round++ {
		for i := 0; i < BufferCapacity; i++ {
			b.Push(Move{HasX: true, X: float64(round*100 + i)})
		}
		for i := 0; i < BufferCapacity; i++ {
			cmd, ok := b.Pop()
			if !ok {
				t.Fatalf("round %d: pop %d failed", round, i)
			}
			if m := cmd.(Move); m.X != float64(round*100+i) {
				t.Fatalf("round %d: popped %v, want %d", round, m.X, round*100+i)
			}
		}
	}
}

func TestBufferPopEmpty(t *testing.T) {
	var b Buffer
	if cmd, ok := b.Pop(); ok || cmd != nil {
		t.Fatal("pop on empty buffer returned a command")
	}
}

func TestBufferClear(t *testing.T) {
	var b Buffer
	for i := 0; i < 5; i++ {
		b.Push(ReportPosition{})
	}
	b.Clear()
	if !b.Empty() {
		t.Fatal("buffer not empty after Clear")
	}
	if !b.Push(ReportPosition{}) {
		t.Fatal("push rejected after Clear")
	}
}
