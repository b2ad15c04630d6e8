package ovdino

import "testing"

// testPool builds a pool without loading any model, runtimes with no session
// close as a no-op
func testPool(size int) *Pool {

	p := &Pool{
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		p.Return(&Runtime{})
	}

	return p
}

func TestPoolGetReturn(t *testing.T) {

	p := testPool(2)

	if p.Size() != 2 {
		t.Fatalf("pool size %d, expected 2", p.Size())
	}

	rt := p.Get()

	if rt == nil {
		t.Fatalf("Get returned nil from a populated pool")
	}

	p.Return(rt)
	p.Close()
}

func TestPoolReturnAfterClose(t *testing.T) {

	p := testPool(1)

	// hold the runtime across Close, as a request in flight during shutdown
	// would
	rt := p.Get()

	p.Close()

	// must not panic on the closed pool
	p.Return(rt)
}

func TestPoolCloseIdempotent(t *testing.T) {

	p := testPool(1)

	p.Close()
	p.Close()
}
