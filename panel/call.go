package panel

import (
	"context"
	"sync"
)

// Call is an in-flight request which nobody is obliged to wait for
type Call struct {
	mu       sync.Mutex
	err      error
	resolved bool
	done     chan struct{}
	thens    []func(error)
}

func newCall() *Call {
	return &Call{
		done: make(chan struct{}),
	}
}

// resolve runs registered callbacks before closing done, so waiters observe their effects
func (c *Call) resolve(err error) {
	c.mu.Lock()
	c.err = err
	c.resolved = true
	thens := c.thens
	c.thens = nil
	c.mu.Unlock()
	for _, fn := range thens {
		fn(err)
	}
	close(c.done)
}

// Then registers fn to be called with the result. If the call is already finished fn is called immediately
func (c *Call) Then(fn func(err error)) *Call {
	c.mu.Lock()
	if c.resolved {
		err := c.err
		c.mu.Unlock()
		fn(err)
		return c
	}
	c.thens = append(c.thens, fn)
	c.mu.Unlock()
	return c
}

// Done is closed when the call is finished
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Err returns result of finished call (nil while in flight)
func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Wait blocks until the call is finished or ctx is done
func (c *Call) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// all resolves once every call is finished. The first error (in calls order) wins
func all(calls []*Call) *Call {
	joined := newCall()
	go func() {
		var first error
		for _, call := range calls {
			<-call.done
			if err := call.Err(); err != nil && first == nil {
				first = err
			}
		}
		joined.resolve(first)
	}()
	return joined
}
