package engine

import "testing"

func TestEditQueuePushPop(t *testing.T) {
	q := newEditQueue(4)

	for i := 0; i < 4; i++ {
		if err := q.push(Command{kind: cmdStopAll}); err != nil {
			t.Fatalf("push %d: unexpected error %v", i, err)
		}
	}

	if err := q.push(Command{kind: cmdStopAll}); err != ErrQueueFull {
		t.Fatalf("push on full queue = %v, want ErrQueueFull", err)
	}

	for i := 0; i < 4; i++ {
		cmd, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: expected a command", i)
		}
		if cmd.kind != cmdStopAll {
			t.Errorf("pop %d: kind = %v, want cmdStopAll", i, cmd.kind)
		}
	}

	if _, ok := q.pop(); ok {
		t.Fatal("pop on empty queue returned ok=true")
	}
}

func TestEditQueueCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	q := newEditQueue(5)
	if len(q.buf) != 8 {
		t.Fatalf("len(buf) = %d, want 8", len(q.buf))
	}
}

func TestEditQueueFIFOOrder(t *testing.T) {
	q := newEditQueue(8)
	for i := 0; i < 3; i++ {
		if err := q.push(Command{kind: cmdSetMute, sequenceIndex: i}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		cmd, ok := q.pop()
		if !ok || cmd.sequenceIndex != i {
			t.Fatalf("pop %d = (%+v, %v), want sequenceIndex %d", i, cmd, ok, i)
		}
	}
}
