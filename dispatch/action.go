package dispatch

import "os"

// Call carries one invocation's blobs to an Action. All slices alias the
// engine's reusable buffers and are only valid until Invoke returns.
type Call struct {
	Opcode uint32
	// Arg is the fixed argument blob (nil when the opcode declares none).
	Arg []byte
	// In is the input-data blob.
	In []byte
	// Result is the fixed result-argument blob, zeroed before the call. It
	// is sent back only when Invoke returns a non-negative result.
	Result []byte
	// Out has room for as many output bytes as the controller accepts.
	Out []byte
	// OutLen starts at len(Out); the action sets it to the number of
	// output bytes it produced.
	OutLen int
	// FD is the descriptor passed with the command, if the opcode takes
	// one. The action owns it and must close it or keep it.
	FD *os.File
}

// Action executes one opcode. It returns a non-negative result on success
// or a negated errno; the engine gives the value no meaning beyond its sign.
type Action interface {
	Invoke(call *Call) int32
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(call *Call) int32

// Invoke calls f(call).
func (f ActionFunc) Invoke(call *Call) int32 {
	return f(call)
}

// Scope brackets every invoked action. Begin runs before the action; a
// negative result declines the invocation and becomes the reply's result.
// End runs exactly once after each action Begin admitted.
type Scope interface {
	Begin() int32
	End()
}

// ScopeFuncs adapts a pair of functions to the Scope interface. Nil
// functions are no-ops.
type ScopeFuncs struct {
	BeginFunc func() int32
	EndFunc   func()
}

// Begin calls BeginFunc.
func (s ScopeFuncs) Begin() int32 {
	if s.BeginFunc == nil {
		return 0
	}
	return s.BeginFunc()
}

// End calls EndFunc.
func (s ScopeFuncs) End() {
	if s.EndFunc != nil {
		s.EndFunc()
	}
}
