package querycache

import "sync"

// dispatcher delivers one key's notifications in the order they were
// enqueued. Jobs are enqueued while the key is locked, so queue order is
// transition order. Whoever enqueues into an idle dispatcher drains it;
// a callback that triggers another transition on the same key only enqueues,
// and the running drain picks it up next.
type dispatcher struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// enqueue appends f and reports whether the caller must drain.
func (d *dispatcher) enqueue(f func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, f)
	if d.running {
		return false
	}
	d.running = true
	return true
}

func (d *dispatcher) drain() {
	defer func() {
		if r := recover(); r != nil {
			// leave the rest of the queue for the next enqueue
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
			panic(r)
		}
	}()
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.queue = nil
			d.mu.Unlock()
			return
		}
		f := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()
		f()
	}
}
