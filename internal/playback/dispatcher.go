package playback

// dispatcher serializes all player mutations onto a single goroutine, the
// equivalent of a UI-affine callback queue. Network and file work stays on
// worker goroutines and marshals results back through do.
type dispatcher struct {
	ops  chan func()
	quit chan struct{}
	done chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		ops:  make(chan func(), 64),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case fn := <-d.ops:
			fn()
		case <-d.quit:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case fn := <-d.ops:
					fn()
				default:
					return
				}
			}
		}
	}
}

// do queues fn; it is dropped if the dispatcher has shut down.
func (d *dispatcher) do(fn func()) {
	select {
	case d.ops <- fn:
	case <-d.done:
	}
}

// sync runs fn on the queue and waits for it to finish.
func (d *dispatcher) sync(fn func()) {
	ran := make(chan struct{})
	d.do(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
	case <-d.done:
	}
}

func (d *dispatcher) close() {
	close(d.quit)
	<-d.done
}
