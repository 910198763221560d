package collcomm

import (
	"fmt"

	"github.com/google/uuid"
)

// A Request is a handle on a non-blocking operation.
//
// A Request starts out issued and becomes completed when
// Wait returns.
// Test may be used to check on an issued request, but it
// never completes it.
// Using a request after it has been waited on is a
// programming error and panics.
type Request struct {
	id     string
	test   func() bool
	wait   func()
	finish func()
	ready  bool
	waited bool
}

func newRequest(test func() bool, wait func()) *Request {
	return &Request{test: test, wait: wait}
}

// ID uniquely identifies the request in diagnostics.
// It is generated on first use, so issuing a request does
// not pay for it.
func (r *Request) ID() string {
	if r.id == "" {
		r.id = uuid.NewString()
	}
	return r.id
}

// completedRequest creates a request for an operation that
// finished when it was issued.
func completedRequest() *Request {
	return newRequest(func() bool { return true }, func() {})
}

// Test reports whether the operation has finished, without
// blocking.
func (r *Request) Test() bool {
	r.checkLive()
	if !r.ready {
		r.ready = r.test()
	}
	return r.ready
}

// Wait blocks until the operation has finished.
// After Wait returns, the output buffers of the operation
// are valid.
func (r *Request) Wait() {
	r.checkLive()
	if !r.ready {
		r.wait()
		r.ready = true
	}
	r.waited = true
	if r.finish != nil {
		r.finish()
	}
}

// Completed reports whether Wait has returned.
func (r *Request) Completed() bool {
	return r.waited
}

func (r *Request) checkLive() {
	if r.waited {
		panic(fmt.Sprintf("request %s used after completion", r.ID()))
	}
}
