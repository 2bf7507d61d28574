package rpcwire

import "github.com/cwsl/sdrctl/internal/sdrtype"

// The façade command surface replies through callbacks rather than
// returning values, since commands are queued onto the shared worker
// (spec.md §4.1) and may complete after the call that enqueued them
// returns. The RPC handlers below are themselves synchronous (one gRPC
// call, one reply), so these helpers bridge a callback-shaped façade call
// back into a plain blocking call the handler can return from.

func syncCode(submit func(reply func(sdrtype.ErrorKind))) sdrtype.ErrorKind {
	ch := make(chan sdrtype.ErrorKind, 1)
	submit(func(code sdrtype.ErrorKind) { ch <- code })
	return <-ch
}

func syncCodeU32(submit func(reply func(sdrtype.ErrorKind, uint32))) (sdrtype.ErrorKind, uint32) {
	type result struct {
		code sdrtype.ErrorKind
		v    uint32
	}
	ch := make(chan result, 1)
	submit(func(code sdrtype.ErrorKind, v uint32) { ch <- result{code, v} })
	r := <-ch
	return r.code, r.v
}

func syncCodeInt(submit func(reply func(sdrtype.ErrorKind, int))) (sdrtype.ErrorKind, int) {
	type result struct {
		code sdrtype.ErrorKind
		v    int
	}
	ch := make(chan result, 1)
	submit(func(code sdrtype.ErrorKind, v int) { ch <- result{code, v} })
	r := <-ch
	return r.code, r.v
}

func syncCodeU64(submit func(reply func(sdrtype.ErrorKind, uint64))) (sdrtype.ErrorKind, uint64) {
	type result struct {
		code sdrtype.ErrorKind
		v    uint64
	}
	ch := make(chan result, 1)
	submit(func(code sdrtype.ErrorKind, v uint64) { ch <- result{code, v} })
	r := <-ch
	return r.code, r.v
}
