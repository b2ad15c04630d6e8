package ovdino

import (
	"sync"
)

// Pool is a simple runtime pool that opens multiple sessions of the same
// Model.  It is the serialization point for concurrent requests: a session
// is checked out for the duration of one inference call, so a pool of size
// one serializes all calls against a single loaded instance.
type Pool struct {
	// pool of runtimes
	runtimes chan *Runtime
	// size of pool
	size int
	// mu guards closed so a runtime checked out across Close is not sent on
	// the closed channel
	mu     sync.Mutex
	closed bool
	close  sync.Once
}

// NewPool creates a new runtime pool of the given size for the model file
func NewPool(size int, modelFile string) (*Pool, error) {

	p := &Pool{
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	// with a single session leave thread counts to the ONNX Runtime default,
	// pooled sessions are restricted so they don't contend for cores
	threads := 0

	if size > 1 {
		threads = 1
	}

	for i := 0; i < size; i++ {
		rt, err := NewRuntime(modelFile, threads)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(rt)
	}

	return p, nil
}

// Gets a runtime from the pool
func (p *Pool) Get() *Runtime {
	return <-p.runtimes
}

// Return a runtime to the pool.  A runtime returned after the pool was
// closed is closed directly instead of being put back.
func (p *Pool) Return(runtime *Runtime) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = runtime.Close()
		return
	}

	select {
	case p.runtimes <- runtime:
	default:
		// pool is full
	}
}

// Size returns the number of sessions the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Close the pool and all runtimes in it
func (p *Pool) Close() {
	p.close.Do(func() {
		p.mu.Lock()
		p.closed = true

		// close channel
		close(p.runtimes)
		p.mu.Unlock()

		// close all runtimes
		for next := range p.runtimes {
			_ = next.Close()
		}
	})
}
