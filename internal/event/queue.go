package event

// Queue is an unbounded FIFO channel pair. Push never blocks regardless
// of how slowly the consumer drains; pending events are buffered in
// order between the two channels.
type Queue[T any] struct {
	in   chan T
	out  chan T
	done chan struct{}
}

// NewQueue creates a Queue and starts its pump goroutine.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		in:   make(chan T),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go q.pump()
	return q
}

// Push enqueues an event. It never blocks on the consumer; it only
// returns false after Close.
func (q *Queue[T]) Push(v T) bool {
	select {
	case q.in <- v:
		return true
	case <-q.done:
		return false
	}
}

// Out returns the receive side. The channel is closed after Close once
// all buffered events have been delivered.
func (q *Queue[T]) Out() <-chan T {
	return q.out
}

// Close stops accepting events. Buffered events are still delivered,
// then Out is closed.
func (q *Queue[T]) Close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

func (q *Queue[T]) pump() {
	defer close(q.out)

	var buf []T
	for {
		// Flush the buffer before accepting more input so FIFO order
		// holds and a closed queue drains fully.
		outCh := func() chan T {
			if len(buf) == 0 {
				return nil
			}
			return q.out
		}()
		var next T
		if len(buf) > 0 {
			next = buf[0]
		}

		select {
		case v := <-q.in:
			buf = append(buf, v)
		case outCh <- next:
			buf = buf[1:]
		case <-q.done:
			for _, v := range buf {
				q.out <- v
			}
			return
		}
	}
}
